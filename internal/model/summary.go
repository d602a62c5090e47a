package model

import "time"

// Summary aggregates the outcomes of one enrichment run.
type Summary struct {
	RunID       string
	Input       string
	Output      string
	StartedAt   time.Time
	Duration    time.Duration
	Total       int
	ByStatus    map[Status]int
	Interesting []Outcome
}

// Summarize counts outcomes per status and collects the interesting ones.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{
		Total:    len(outcomes),
		ByStatus: make(map[Status]int),
	}
	for _, o := range outcomes {
		s.ByStatus[o.Status]++
		if o.Interesting {
			s.Interesting = append(s.Interesting, o)
		}
	}
	return s
}

// Succeeded returns the number of rows enriched without error.
func (s Summary) Succeeded() int {
	return s.ByStatus[StatusOK]
}

// Failed returns the number of rows that carry an error status.
func (s Summary) Failed() int {
	return s.Total - s.Succeeded()
}

// InterestingPct is the share of interesting companies over all rows, in percent.
func (s Summary) InterestingPct() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(len(s.Interesting)) / float64(s.Total) * 100
}
