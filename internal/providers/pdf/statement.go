package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// StatementData is a rep's commission statement for one pay period. Amounts
// are preformatted by the caller.
type StatementData struct {
	RepName     string
	RepEmail    string
	PeriodStart string
	PeriodEnd   string
	PayDate     string
	BatchID     string

	Lines []StatementLine

	NewSales int
	Renewals int
	Total    string
}

type StatementLine struct {
	SoldAt     string
	Restaurant string
	Plan       string
	Kind       string
	Tier       string
	Amount     string
}

var ErrEmptyStatement = errors.New("statement has no rep")

func (p *PDFProvider) GeneratePayrollStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	if data.RepName == "" {
		return nil, ErrEmptyStatement
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Commission statement", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "TasteLanc", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New(data.RepName, props.Text{Style: fontstyle.Bold}),
			text.New(data.RepEmail, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Pay period: "+data.PeriodStart+" to "+data.PeriodEnd, props.Text{Align: align.Right}),
			text.New("Pay date: "+data.PayDate, props.Text{Top: 5, Align: align.Right}),
			text.New("Batch: "+data.BatchID, props.Text{Top: 10, Align: align.Right, Size: 8}),
		),
	)

	m.AddRow(10,
		text.NewCol(2, "Sold", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Restaurant", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Plan", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Kind", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Tier", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, line := range data.Lines {
		m.AddRow(8,
			text.NewCol(2, line.SoldAt, props.Text{Size: 9}),
			text.NewCol(4, line.Restaurant, props.Text{Size: 9}),
			text.NewCol(2, line.Plan, props.Text{Size: 9}),
			text.NewCol(1, line.Kind, props.Text{Size: 9}),
			text.NewCol(1, line.Tier, props.Text{Size: 9}),
			text.NewCol(2, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Sales", props.Text{Size: 9}),
		text.NewCol(2, fmt.Sprintf("%d new / %d renewal", data.NewSales, data.Renewals), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(2, data.Total, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
