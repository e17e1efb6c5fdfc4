package models

// QuarterlyRow is one line of the quarterly results table: a metric label
// and one value per reported quarter, kept as display strings.
type QuarterlyRow struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// QuarterlyResults is the quarterly results table for a company as
// published upstream: column headers naming the quarters and the metric
// rows beneath them. The shape is carried through untouched.
type QuarterlyResults struct {
	Quarters []string       `json:"quarters"`
	Rows     []QuarterlyRow `json:"rows"`
}

// Empty reports whether the table carries no data at all.
func (q *QuarterlyResults) Empty() bool {
	return q == nil || (len(q.Quarters) == 0 && len(q.Rows) == 0)
}
