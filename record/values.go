package record

import "time"

// IRI marks a value as an IRI reference regardless of its form.
type IRI string

// Literal forces a literal value, optionally with a language tag or an
// explicit datatype IRI.
type Literal struct {
	Value    string
	Lang     string
	Datatype string
}

// Date is a calendar date rendered as xsd:date.
type Date struct {
	time.Time
}

// NewDate returns the Date for t.
func NewDate(t time.Time) Date { return Date{Time: t} }

// ParseDate parses layout-formatted text into a Date.
func ParseDate(layout, value string) (Date, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String returns the date in YYYY-MM-DD form.
func (d Date) String() string { return d.Format(time.DateOnly) }
