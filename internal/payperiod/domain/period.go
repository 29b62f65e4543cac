package domain

import "time"

const day = 24 * time.Hour

// PayPeriod is a Sunday–Saturday payroll week. Start and End are calendar
// days at midnight in the resolver's calendar; PayDate is the Friday after End.
type PayPeriod struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	PayDate time.Time `json:"pay_date"`
}

// Resolver maps instants to pay periods in one fixed calendar.
type Resolver struct {
	loc *time.Location
}

// NewResolver returns a resolver for loc. A nil location means UTC.
func NewResolver(loc *time.Location) Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return Resolver{loc: loc}
}

// Location returns the calendar used by the resolver.
func (r Resolver) Location() *time.Location {
	if r.loc == nil {
		return time.UTC
	}
	return r.loc
}

// Resolve returns the pay period enclosing t in UTC.
func Resolve(t time.Time) PayPeriod {
	return NewResolver(time.UTC).Resolve(t)
}

// Resolve returns the pay period enclosing t. t is converted to the resolver's
// calendar before its time of day is discarded.
func (r Resolver) Resolve(t time.Time) PayPeriod {
	d := r.Day(t)
	start := d.AddDate(0, 0, -int(d.Weekday()))
	end := start.AddDate(0, 0, 6)
	return PayPeriod{
		Start:   start,
		End:     end,
		PayDate: end.AddDate(0, 0, 6),
	}
}

// Day truncates t to midnight of its calendar day.
func (r Resolver) Day(t time.Time) time.Time {
	local := t.In(r.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.Location())
}

// Contains reports whether t falls on one of the period's days.
func (p PayPeriod) Contains(t time.Time) bool {
	loc := p.Start.Location()
	local := t.In(loc)
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return !d.Before(p.Start) && !d.After(p.End)
}

// EndExclusive is the first instant after the period.
func (p PayPeriod) EndExclusive() time.Time {
	return p.End.AddDate(0, 0, 1)
}

// Next returns the following pay period.
func (p PayPeriod) Next() PayPeriod {
	return shift(p, 7)
}

// Previous returns the preceding pay period.
func (p PayPeriod) Previous() PayPeriod {
	return shift(p, -7)
}

func shift(p PayPeriod, days int) PayPeriod {
	return PayPeriod{
		Start:   p.Start.AddDate(0, 0, days),
		End:     p.End.AddDate(0, 0, days),
		PayDate: p.PayDate.AddDate(0, 0, days),
	}
}

// Days is the number of calendar days in a pay period.
func (p PayPeriod) Days() int {
	return int(p.EndExclusive().Sub(p.Start).Round(day) / day)
}
