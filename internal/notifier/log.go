package notifier

import (
	"log/slog"
	"time"

	"github.com/amishk599/dealscan/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes the run summary to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs run summaries via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs one line for the run and one per interesting company.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(s model.Summary) error {
	args := []any{
		"run_id", s.RunID,
		"output", s.Output,
		"total", s.Total,
		"ok", s.Succeeded(),
		"failed", s.Failed(),
		"interesting", len(s.Interesting),
		"duration", s.Duration.Round(time.Millisecond).String(),
	}
	for _, st := range failureStatuses {
		if c := s.ByStatus[st]; c > 0 {
			args = append(args, string(st), c)
		}
	}
	n.logger.Info("run summary", args...)

	for _, o := range s.Interesting {
		args := []any{"company", o.Row.Record.Name, "line", o.Row.Record.Line}
		if o.Result != nil {
			args = append(args,
				"classification", o.Result.Classification,
				"growth", o.Result.GrowthPotential,
				"risk", o.Result.RiskLevel,
			)
		}
		n.logger.Info("interesting company", args...)
	}
	return nil
}

// failureStatuses is the fixed order failure counts are reported in.
var failureStatuses = []model.Status{
	model.StatusInvalid,
	model.StatusParseError,
	model.StatusAPIError,
	model.StatusRateLimited,
	model.StatusAuthError,
	model.StatusCancelled,
}
