package conformance

// Report aggregates one catalog run. Total and Failed are derived from the
// ordered outcomes at construction; there is no other logic here.
type Report struct {
	Total    int       `json:"total"`
	Failed   int       `json:"failed"`
	Outcomes []Outcome `json:"outcomes"`
}

// NewReport derives the counts from the outcomes.
func NewReport(outcomes []Outcome) Report {
	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Passed {
			failed++
		}
	}
	return Report{Total: len(outcomes), Failed: failed, Outcomes: outcomes}
}

// Passing reports whether every scenario passed.
func (r Report) Passing() bool {
	return r.Failed == 0
}
