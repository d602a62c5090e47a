package ai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/amishk599/dealscan/internal/model"
)

// Ensure LLMClassifier implements model.Classifier.
var _ model.Classifier = (*LLMClassifier)(nil)

// LLMClassifier implements model.Classifier using an LLM.
type LLMClassifier struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMClassifier creates a classifier that enriches company records with LLM-generated analysis.
func NewLLMClassifier(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMClassifier {
	return &LLMClassifier{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// BuildPrompt renders the analysis prompt for rec.
func BuildPrompt(tmpl *template.Template, rec model.CompanyRecord) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, rec); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// Classify sends one prompt for rec and parses the labeled response.
func (c *LLMClassifier) Classify(ctx context.Context, rec model.CompanyRecord) (model.EnrichmentResult, error) {
	prompt, err := BuildPrompt(c.tmpl, rec)
	if err != nil {
		return model.EnrichmentResult{}, err
	}

	raw, err := c.provider.Complete(ctx, prompt)
	if err != nil {
		return model.EnrichmentResult{}, fmt.Errorf("llm complete: %w", err)
	}

	res, err := ParseResponse(raw)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("unparseable model output", "company", rec.Name, "line", rec.Line, "raw", raw)
		}
		return model.EnrichmentResult{}, fmt.Errorf("parse analysis: %w", err)
	}
	return res, nil
}
