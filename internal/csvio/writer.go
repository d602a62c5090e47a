package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/amishk599/dealscan/internal/model"
)

// Enrichment columns appended after the input columns, in this order.
const (
	ColGrowthPotential      = "Growth Potential"
	ColRiskLevel            = "Risk Level"
	ColRiskAssessment       = "Risk Assessment"
	ColKeyStrengths         = "Key Strengths"
	ColClassification       = "Classification"
	ColConcerns             = "Concerns"
	ColTargetMarket         = "Target Market"
	ColCompetitiveAdvantage = "Competitive Advantage"
	ColInteresting          = "Interesting"
	ColStatus               = "Status"
	ColError                = "Error"
)

// EnrichmentColumns is the output suffix appended to every input header.
var EnrichmentColumns = []string{
	ColGrowthPotential,
	ColRiskLevel,
	ColRiskAssessment,
	ColKeyStrengths,
	ColClassification,
	ColConcerns,
	ColTargetMarket,
	ColCompetitiveAdvantage,
	ColInteresting,
	ColStatus,
	ColError,
}

// ListSeparator joins multi-valued fields such as key strengths.
const ListSeparator = "; "

// OutputHeader returns the input header followed by the enrichment columns.
func OutputHeader(inputHeader []string) []string {
	out := make([]string, 0, len(inputHeader)+len(EnrichmentColumns))
	out = append(out, inputHeader...)
	return append(out, EnrichmentColumns...)
}

// Write serializes one output row per outcome, in the order given.
func Write(w io.Writer, inputHeader []string, outcomes []model.Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputHeader(inputHeader)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, o := range outcomes {
		if err := cw.Write(outputRow(o)); err != nil {
			return fmt.Errorf("write line %d: %w", o.Row.Record.Line, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the output next to path under a temporary name and renames it
// into place, so a failed run never leaves a truncated file behind.
func WriteFile(path string, inputHeader []string, outcomes []model.Outcome) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := Write(tmp, inputHeader, outcomes); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

func outputRow(o model.Outcome) []string {
	row := make([]string, 0, len(o.Row.Cells)+len(EnrichmentColumns))
	row = append(row, o.Row.Cells...)

	if o.Status != model.StatusOK || o.Result == nil {
		blank := make([]string, len(EnrichmentColumns)-2)
		row = append(row, blank...)
		return append(row, string(o.Status), o.Err)
	}

	r := o.Result
	interesting := "No"
	if o.Interesting {
		interesting = "Yes"
	}
	return append(row,
		strconv.Itoa(r.GrowthPotential),
		strconv.Itoa(r.RiskLevel),
		r.RiskAssessment,
		strings.Join(r.KeyStrengths, ListSeparator),
		r.Classification,
		strings.Join(r.Concerns, ListSeparator),
		r.TargetMarket,
		r.CompetitiveAdvantage,
		interesting,
		string(o.Status),
		"",
	)
}
