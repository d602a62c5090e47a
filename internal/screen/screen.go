// Package screen flags enriched companies that meet the investment criteria.
package screen

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/dealscan/internal/model"
)

// Ensure CriteriaScreener implements model.Screener.
var _ model.Screener = (*CriteriaScreener)(nil)

// Criteria are the thresholds a company must meet to be marked interesting.
// Zero-valued numeric bounds and empty lists are treated as "no constraint".
type Criteria struct {
	MaxAgeYears     int      // founded within this many years of the current year
	MinEmployees    int      // inclusive
	MaxEmployees    int      // inclusive
	Regions         []string // headquarters must name one as a whole word (case-insensitive)
	Classifications []string // classification must equal one (case-insensitive)
	MinGrowth       int      // growth potential >= MinGrowth
	MaxRisk         int      // risk level <= MaxRisk

	// Checked only for rows that carry the optional columns.
	MinRegionShare float64 // share of employees located in Regions must exceed this
	StableGrowth   bool    // headcount growth must be positive and steady
}

// DefaultCriteria screens for young, small, North American SaaS companies.
func DefaultCriteria() Criteria {
	return Criteria{
		MaxAgeYears:     5,
		MinEmployees:    20,
		MaxEmployees:    60,
		Regions:         []string{"USA", "Canada"},
		Classifications: []string{"SaaS"},
		MinGrowth:       7,
		MaxRisk:         6,
		MinRegionShare:  0.5,
		StableGrowth:    true,
	}
}

// CriteriaScreener applies Criteria to a record and its enrichment.
type CriteriaScreener struct {
	criteria Criteria
	now      func() time.Time
}

// NewCriteriaScreener returns a screener evaluated against the current year.
func NewCriteriaScreener(c Criteria) *CriteriaScreener {
	return &CriteriaScreener{criteria: c, now: time.Now}
}

// Interesting returns true when both the record-level and the model-derived criteria hold.
func (s *CriteriaScreener) Interesting(rec model.CompanyRecord, res model.EnrichmentResult) bool {
	return s.basicMatch(rec) && s.advancedMatch(res)
}

func (s *CriteriaScreener) basicMatch(rec model.CompanyRecord) bool {
	c := s.criteria
	if c.MaxAgeYears > 0 && s.now().Year()-rec.FoundedYear > c.MaxAgeYears {
		return false
	}
	if c.MinEmployees > 0 && rec.TotalEmployees < c.MinEmployees {
		return false
	}
	if c.MaxEmployees > 0 && rec.TotalEmployees > c.MaxEmployees {
		return false
	}
	if len(c.Regions) > 0 && !mentionsAny(rec.Headquarters, c.Regions) {
		return false
	}
	if c.MinRegionShare > 0 && len(c.Regions) > 0 && rec.EmployeeLocations != "" &&
		!mostlyIn(rec.EmployeeLocations, c.Regions, c.MinRegionShare) {
		return false
	}
	if c.StableGrowth && rec.Growth1Y != nil && rec.Growth6M != nil &&
		!stableGrowth(rec.Growth2Y, *rec.Growth1Y, *rec.Growth6M) {
		return false
	}
	return true
}

// mostlyIn reports whether more than minShare of the headcount in locations,
// a mapping such as {'USA': 30, 'Germany': 5}, sits in one of regions.
// Unreadable or empty mappings never match.
func mostlyIn(locations string, regions []string, minShare float64) bool {
	var counts map[string]float64
	if err := yaml.Unmarshal([]byte(locations), &counts); err != nil {
		return false
	}
	var total, inRegion float64
	for place, n := range counts {
		total += n
		if equalsAny(place, regions) {
			inRegion += n
		}
	}
	if total <= 0 {
		return false
	}
	return inRegion/total > minShare
}

// stableGrowth compares annualised headcount growth rates (percent). All must be
// positive and the fastest may be less than three times the slowest. Without
// two-year data the company must be growing, and faster over the year than the
// last six months.
func stableGrowth(growth2Y *float64, growth1Y, growth6M float64) bool {
	if growth2Y == nil {
		return growth1Y > growth6M && growth6M > 0
	}
	rates := []float64{*growth2Y / 2, growth1Y, growth6M * 2}
	lo, hi := slices.Min(rates), slices.Max(rates)
	if lo <= 0 {
		return false
	}
	return hi/lo < 3
}

func (s *CriteriaScreener) advancedMatch(res model.EnrichmentResult) bool {
	c := s.criteria
	if len(c.Classifications) > 0 && !equalsAny(res.Classification, c.Classifications) {
		return false
	}
	if c.MinGrowth > 0 && res.GrowthPotential < c.MinGrowth {
		return false
	}
	if c.MaxRisk > 0 && res.RiskLevel > c.MaxRisk {
		return false
	}
	return true
}

// mentionsAny reports whether any keyword appears in s as a whole word or word
// sequence, ignoring case: "USA" matches "Austin, USA" but not "Jerusalem".
func mentionsAny(s string, keywords []string) bool {
	words := tokenize(s)
	for _, kw := range keywords {
		if hasSequence(words, tokenize(kw)) {
			return true
		}
	}
	return false
}

func hasSequence(words, seq []string) bool {
	if len(seq) == 0 {
		return false
	}
outer:
	for i := 0; i+len(seq) <= len(words); i++ {
		for j, w := range seq {
			if !strings.EqualFold(words[i+j], w) {
				continue outer
			}
		}
		return true
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func equalsAny(s string, values []string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}
