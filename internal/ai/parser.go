package ai

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/amishk599/dealscan/internal/model"
)

// Section labels the prompt asks the model to emit.
const (
	labelGrowth    = "Growth Potential"
	labelRisk      = "Risk Assessment"
	labelStrengths = "Key Strengths"
	labelClass     = "Classification"
	labelConcerns  = "Concerns"
	labelTarget    = "Target Market"
	labelAdvantage = "Competitive Advantage"
)

// labelAliases maps lower-cased label spellings seen in model output to canonical labels.
var labelAliases = map[string]string{
	"growth potential":      labelGrowth,
	"growth":                labelGrowth,
	"risk assessment":       labelRisk,
	"risk level":            labelRisk,
	"risk":                  labelRisk,
	"key strengths":         labelStrengths,
	"strengths":             labelStrengths,
	"classification":        labelClass,
	"category":              labelClass,
	"concerns":              labelConcerns,
	"key concerns":          labelConcerns,
	"target market":         labelTarget,
	"competitive advantage": labelAdvantage,
}

var requiredLabels = []string{labelGrowth, labelRisk, labelStrengths, labelClass}

var (
	// "Growth Potential: 8", "**Growth Potential:** 8", "## Growth Potential: 8"
	labelLine  = regexp.MustCompile(`^#*\s*\**\s*([A-Za-z][A-Za-z ]*?)\s*\**\s*:\s*\**\s*(.*)$`)
	bulletLine = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+(.*)$`)
	scoreValue = regexp.MustCompile(`^(\d{1,2})(?:\s*/\s*10)?(?:$|[^\d])(.*)$`)
	fractional = regexp.MustCompile(`^\d+[.,]\d`)
)

type section struct {
	text  []string // inline value and continuation lines
	items []string // bullet items
}

// ParseResponse extracts an EnrichmentResult from labeled-section model output.
// Any required section that is absent, empty or malformed yields a *model.ParseError.
func ParseResponse(raw string) (model.EnrichmentResult, error) {
	sections := splitSections(raw)

	var res model.EnrichmentResult
	perr := &model.ParseError{}

	for _, label := range requiredLabels {
		s, ok := sections[label]
		if !ok || (len(s.text) == 0 && len(s.items) == 0) {
			perr.Missing = append(perr.Missing, label)
		}
	}

	if s, ok := sections[labelGrowth]; ok && len(s.values()) > 0 {
		score, _, err := parseScore(s.values()[0])
		if err != nil && perr.Reason == "" {
			perr.Reason = fmt.Sprintf("%s: %v", labelGrowth, err)
		}
		res.GrowthPotential = score
	}

	if s, ok := sections[labelRisk]; ok && len(s.values()) > 0 {
		vals := s.values()
		score, rest, err := parseScore(vals[0])
		if err != nil && perr.Reason == "" {
			perr.Reason = fmt.Sprintf("%s: %v", labelRisk, err)
		}
		res.RiskLevel = score
		res.RiskAssessment = joinNonEmpty(append([]string{rest}, vals[1:]...), " ")
	}

	if s, ok := sections[labelStrengths]; ok {
		res.KeyStrengths = s.list()
		if len(res.KeyStrengths) == 0 && !contains(perr.Missing, labelStrengths) {
			perr.Missing = append(perr.Missing, labelStrengths)
		}
	}

	if s, ok := sections[labelClass]; ok {
		res.Classification = cleanValue(joinNonEmpty(s.values(), " "))
		if res.Classification == "" && !contains(perr.Missing, labelClass) {
			perr.Missing = append(perr.Missing, labelClass)
		}
	}

	if s, ok := sections[labelConcerns]; ok {
		res.Concerns = s.list()
	}
	if s, ok := sections[labelTarget]; ok {
		res.TargetMarket = cleanValue(joinNonEmpty(s.text, " "))
	}
	if s, ok := sections[labelAdvantage]; ok {
		res.CompetitiveAdvantage = cleanValue(joinNonEmpty(s.text, " "))
	}

	if len(perr.Missing) > 0 || perr.Reason != "" {
		return model.EnrichmentResult{}, perr
	}
	return res, nil
}

// splitSections groups lines under the most recent recognised label.
// Lines before the first label and unrecognised labels are ignored.
func splitSections(raw string) map[string]*section {
	sections := make(map[string]*section)
	var cur *section

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}

		if m := bulletLine.FindStringSubmatch(line); m != nil {
			if cur != nil {
				if item := cleanValue(m[1]); item != "" {
					cur.items = append(cur.items, item)
				}
			}
			continue
		}

		if m := labelLine.FindStringSubmatch(line); m != nil {
			if label, ok := labelAliases[strings.ToLower(strings.TrimSpace(m[1]))]; ok {
				cur = &section{}
				sections[label] = cur
				if v := strings.TrimSpace(m[2]); v != "" {
					cur.text = append(cur.text, v)
				}
				continue
			}
		}

		if cur != nil {
			cur.text = append(cur.text, line)
		}
	}
	return sections
}

// values returns inline text followed by bullet items.
func (s *section) values() []string {
	out := make([]string, 0, len(s.text)+len(s.items))
	out = append(out, s.text...)
	return append(out, s.items...)
}

// list returns bullet items, or the inline value split on ';' (preferred) or ','.
func (s *section) list() []string {
	if len(s.items) > 0 {
		return s.items
	}
	inline := joinNonEmpty(s.text, " ")
	sep := ","
	if strings.Contains(inline, ";") {
		sep = ";"
	}
	var out []string
	for _, part := range strings.Split(inline, sep) {
		if v := cleanValue(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseScore reads a leading 1-10 score ("7", "7/10", "7 - text") and returns the trailing text.
func parseScore(v string) (int, string, error) {
	v = strings.TrimSpace(strings.Trim(v, "*"))
	m := scoreValue.FindStringSubmatch(v)
	if m == nil {
		return 0, "", fmt.Errorf("expected a score from 1 to 10, got %q", v)
	}
	if fractional.MatchString(v) {
		return 0, "", fmt.Errorf("expected a whole-number score, got %q", v)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > 10 {
		return 0, "", fmt.Errorf("score %q out of range 1-10", m[1])
	}
	rest := strings.TrimSpace(strings.TrimLeft(m[2], " -–—:,."))
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	return n, rest, nil
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, "*\"'`")
	v = strings.TrimSuffix(v, ".")
	return strings.TrimSpace(v)
}

func joinNonEmpty(parts []string, sep string) string {
	var keep []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, sep)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
