package notifier

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/amishk599/dealscan/internal/model"
)

func TestLogNotifier_Notify_emptySummary(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := n.Notify(model.Summary{}); err != nil {
		t.Errorf("Notify(empty) = %v, want nil", err)
	}
	if !strings.Contains(buf.String(), "total=0") {
		t.Errorf("expected summary line, got %q", buf.String())
	}
}

func TestLogNotifier_Notify_logsInterestingCompanies(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := n.Notify(sampleSummary()); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	out := buf.String()
	for _, want := range []string{
		"msg=\"run summary\"",
		"ok=3",
		"failed=2",
		"parse_error=1",
		"msg=\"interesting company\"",
		"company=\"Acme Corp\"",
		"classification=SaaS",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "auth_error=") {
		t.Errorf("zero counts should be omitted:\n%s", out)
	}
}
