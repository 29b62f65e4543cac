package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ClickType is a tracked call to action on a restaurant page.
type ClickType string

const (
	ClickPhone      ClickType = "phone"
	ClickWebsite    ClickType = "website"
	ClickDirections ClickType = "directions"
	ClickShare      ClickType = "share"
	ClickFavorite   ClickType = "favorite"
	ClickHappyHour  ClickType = "happy_hour"
	ClickEvent      ClickType = "event"
	ClickMenu       ClickType = "menu"
)

var clickTypes = []ClickType{
	ClickPhone, ClickWebsite, ClickDirections, ClickShare,
	ClickFavorite, ClickHappyHour, ClickEvent, ClickMenu,
}

// ClickTypes lists every tracked click type.
func ClickTypes() []ClickType {
	out := make([]ClickType, len(clickTypes))
	copy(out, clickTypes)
	return out
}

func ParseClickType(raw string) (ClickType, bool) {
	c := ClickType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range clickTypes {
		if c == known {
			return c, true
		}
	}
	return "", false
}

type PageView struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	RestaurantID snowflake.ID `gorm:"column:restaurant_id;not null;index:ix_page_views_restaurant,priority:1"`
	VisitorID    string       `gorm:"column:visitor_id;type:text;not null"`
	Path         *string      `gorm:"column:path;type:text"`
	Referrer     *string      `gorm:"column:referrer;type:text"`
	OccurredAt   time.Time    `gorm:"column:occurred_at;not null;index:ix_page_views_restaurant,priority:2"`
}

func (PageView) TableName() string { return "analytics_page_views" }

type Click struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	RestaurantID snowflake.ID `gorm:"column:restaurant_id;not null;index:ix_clicks_restaurant,priority:1"`
	VisitorID    string       `gorm:"column:visitor_id;type:text;not null"`
	ClickType    ClickType    `gorm:"column:click_type;type:text;not null"`
	OccurredAt   time.Time    `gorm:"column:occurred_at;not null;index:ix_clicks_restaurant,priority:2"`
}

func (Click) TableName() string { return "analytics_clicks" }

type SectionImpression struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	RestaurantID snowflake.ID `gorm:"column:restaurant_id;not null;index:ix_section_impressions_restaurant,priority:1"`
	VisitorID    string       `gorm:"column:visitor_id;type:text;not null"`
	SectionName  string       `gorm:"column:section_name;type:text;not null"`
	Position     int          `gorm:"column:position;not null;default:0"`
	OccurredAt   time.Time    `gorm:"column:occurred_at;not null;index:ix_section_impressions_restaurant,priority:2"`
}

func (SectionImpression) TableName() string { return "section_impressions" }

// SectionStat aggregates impressions of one page section.
type SectionStat struct {
	Section     string  `json:"section" gorm:"column:section_name"`
	Impressions int64   `json:"impressions" gorm:"column:impressions"`
	AvgPosition float64 `json:"avg_position" gorm:"column:avg_position"`
}
