package ai

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"text/template"
)

//go:embed prompts/company_analysis.md
var companyAnalysisPromptRaw string

// CompanyAnalysisTemplate is the parsed prompt template for company analysis.
// Parsed once at package init; reused on every Classify call.
var CompanyAnalysisTemplate = template.Must(template.New("company_analysis").Parse(companyAnalysisPromptRaw))

// PromptVersion identifies the prompt text so cached results are invalidated when it changes.
var PromptVersion = func() string {
	sum := sha256.Sum256([]byte(companyAnalysisPromptRaw))
	return hex.EncodeToString(sum[:6])
}()
