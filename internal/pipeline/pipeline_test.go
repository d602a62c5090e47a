package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/amishk599/dealscan/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Mock/Fake Implementations ---

// FakeClassifier answers via fn and counts calls.
type FakeClassifier struct {
	fn    func(rec model.CompanyRecord) (model.EnrichmentResult, error)
	calls atomic.Int64
}

func (c *FakeClassifier) Classify(_ context.Context, rec model.CompanyRecord) (model.EnrichmentResult, error) {
	c.calls.Add(1)
	return c.fn(rec)
}

// InMemoryCache is a map-based ResultCache.
type InMemoryCache struct {
	mu      sync.Mutex
	results map[string]model.EnrichmentResult
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{results: make(map[string]model.EnrichmentResult)}
}

func (c *InMemoryCache) Get(key string) (*model.EnrichmentResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results[key]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (c *InMemoryCache) Put(key string, res model.EnrichmentResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key] = res
	return nil
}

// NameScreener flags companies whose name starts with prefix.
type NameScreener struct{ prefix string }

func (s NameScreener) Interesting(rec model.CompanyRecord, _ model.EnrichmentResult) bool {
	return s.prefix != "" && strings.HasPrefix(rec.Name, s.prefix)
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nameKey(rec model.CompanyRecord) string { return rec.Name }

func resultFor(rec model.CompanyRecord) (model.EnrichmentResult, error) {
	return model.EnrichmentResult{
		GrowthPotential: 7,
		RiskLevel:       4,
		RiskAssessment:  "moderate risk for " + rec.Name,
		KeyStrengths:    []string{"team", "product"},
		Classification:  "SaaS",
	}, nil
}

func makeRows(names ...string) []model.Row {
	rows := make([]model.Row, len(names))
	for i, name := range names {
		rows[i] = model.Row{
			Record: model.CompanyRecord{
				Line:           i + 2,
				Name:           name,
				FoundedYear:    2021,
				TotalEmployees: 40,
				Headquarters:   "Austin, USA",
				Industry:       "Software",
				Description:    "Does things",
			},
			Cells: []string{name, "2021", "40", "Austin, USA", "Software", "Does things"},
		}
	}
	return rows
}

func newEnricher(c model.Classifier, cache model.ResultCache, concurrency int) *Enricher {
	return NewEnricher(c, cache, NameScreener{prefix: "Acme"}, nameKey, concurrency, discardLogger())
}

const header = "Company Name,Founded Year,Total Employees,Headquarters,Industry,Description\n"

func writeInput(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// --- Tests ---

func TestEnrich_OneOutcomePerRowInOrder(t *testing.T) {
	fc := &FakeClassifier{fn: resultFor}
	rows := makeRows("Acme", "Beta", "Gamma")

	outcomes := newEnricher(fc, NewInMemoryCache(), 1).Enrich(context.Background(), rows)

	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.Equal(t, rows[i].Record.Name, o.Row.Record.Name)
		assert.Equal(t, model.StatusOK, o.Status)
		require.NotNil(t, o.Result)
		assert.Equal(t, "moderate risk for "+rows[i].Record.Name, o.Result.RiskAssessment)
	}
	assert.True(t, outcomes[0].Interesting)
	assert.False(t, outcomes[1].Interesting)
	assert.EqualValues(t, 3, fc.calls.Load())
}

func TestEnrich_ConcurrentRunKeepsOrderAndBound(t *testing.T) {
	var inFlight, peak atomic.Int64
	fc := &FakeClassifier{fn: func(rec model.CompanyRecord) (model.EnrichmentResult, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return resultFor(rec)
	}}

	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("Company %02d", i)
	}
	rows := makeRows(names...)

	outcomes := newEnricher(fc, NewInMemoryCache(), 3).Enrich(context.Background(), rows)

	require.Len(t, outcomes, len(rows))
	for i, o := range outcomes {
		assert.Equal(t, names[i], o.Row.Record.Name)
		assert.Equal(t, model.StatusOK, o.Status)
	}
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestEnrich_InvalidRowsAreNotSent(t *testing.T) {
	fc := &FakeClassifier{fn: resultFor}
	rows := makeRows("Acme", "Broken", "Gamma")
	rows[1].Invalid = &model.ValidationError{Line: 3, Problems: []string{`Founded Year "soon" is not an integer`}}

	outcomes := newEnricher(fc, NewInMemoryCache(), 2).Enrich(context.Background(), rows)

	assert.EqualValues(t, 2, fc.calls.Load())
	assert.Equal(t, model.StatusInvalid, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Err, "line 3")
	assert.Nil(t, outcomes[1].Result)
	assert.Equal(t, model.StatusOK, outcomes[2].Status)
}

func TestEnrich_ClassifierFailuresMapToStatus(t *testing.T) {
	fc := &FakeClassifier{fn: func(rec model.CompanyRecord) (model.EnrichmentResult, error) {
		switch rec.Name {
		case "Garbled":
			return model.EnrichmentResult{}, fmt.Errorf("parse analysis: %w", &model.ParseError{Missing: []string{"Classification"}})
		case "Throttled":
			return model.EnrichmentResult{}, &model.HTTPError{StatusCode: 429, Err: errors.New("slow down")}
		case "Down":
			return model.EnrichmentResult{}, &model.HTTPError{StatusCode: 503, Err: errors.New("unavailable")}
		}
		return resultFor(rec)
	}}
	rows := makeRows("Garbled", "Throttled", "Down", "Fine")

	outcomes := newEnricher(fc, NewInMemoryCache(), 1).Enrich(context.Background(), rows)

	assert.Equal(t, model.StatusParseError, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Err, "Classification")
	assert.Equal(t, model.StatusRateLimited, outcomes[1].Status)
	assert.Equal(t, model.StatusAPIError, outcomes[2].Status)
	assert.Equal(t, model.StatusOK, outcomes[3].Status)
}

func TestEnrich_AuthFailureStopsFurtherCalls(t *testing.T) {
	fc := &FakeClassifier{fn: func(model.CompanyRecord) (model.EnrichmentResult, error) {
		return model.EnrichmentResult{}, &model.HTTPError{StatusCode: 401, Err: errors.New("bad key")}
	}}
	rows := makeRows("A", "B", "C", "D")

	outcomes := newEnricher(fc, NewInMemoryCache(), 1).Enrich(context.Background(), rows)

	assert.EqualValues(t, 1, fc.calls.Load())
	for _, o := range outcomes {
		assert.Equal(t, model.StatusAuthError, o.Status)
		assert.Contains(t, o.Err, "bad key")
	}
}

func TestEnrich_CancelledContextMarksRows(t *testing.T) {
	fc := &FakeClassifier{fn: resultFor}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := newEnricher(fc, NewInMemoryCache(), 2).Enrich(ctx, makeRows("A", "B"))

	assert.EqualValues(t, 0, fc.calls.Load())
	for _, o := range outcomes {
		assert.Equal(t, model.StatusCancelled, o.Status)
	}
}

func TestEnrich_CacheHitSkipsClassifier(t *testing.T) {
	cache := NewInMemoryCache()
	cached, _ := resultFor(model.CompanyRecord{Name: "cached"})
	require.NoError(t, cache.Put("Acme", cached))
	fc := &FakeClassifier{fn: resultFor}

	outcomes := newEnricher(fc, cache, 1).Enrich(context.Background(), makeRows("Acme", "Beta"))

	assert.EqualValues(t, 1, fc.calls.Load())
	assert.Equal(t, "moderate risk for cached", outcomes[0].Result.RiskAssessment)
	assert.True(t, outcomes[0].Interesting)

	stored, err := cache.Get("Beta")
	require.NoError(t, err)
	require.NotNil(t, stored, "successful result should be cached")
}

func TestEnrich_ReportsProgress(t *testing.T) {
	fc := &FakeClassifier{fn: resultFor}
	e := newEnricher(fc, NewInMemoryCache(), 2)

	var mu sync.Mutex
	var seen []int
	e.OnProgress(func(done, total int, _ model.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		seen = append(seen, done)
	})
	e.Enrich(context.Background(), makeRows("A", "B", "C"))

	assert.ElementsMatch(t, []int{1, 2, 3}, seen)
}

func TestProcess_MissingColumnWritesNothing(t *testing.T) {
	fc := &FakeClassifier{fn: resultFor}
	in := writeInput(t, "Company Name,Total Employees,Headquarters,Industry,Description\n"+
		"Acme,40,\"Austin, USA\",Software,Widgets\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	_, _, err := newEnricher(fc, NewInMemoryCache(), 1).Process(context.Background(), in, out)

	require.ErrorIs(t, err, model.ErrMissingColumn)
	assert.Contains(t, err.Error(), "Founded Year")
	assert.EqualValues(t, 0, fc.calls.Load())
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "output file must not be created")
}

func TestProcess_WritesSummaryAndIsDeterministic(t *testing.T) {
	fc := &FakeClassifier{fn: resultFor}
	in := writeInput(t, header+
		"Acme,2021,40,\"Austin, USA\",Software,Widgets\n"+
		"Beta,soon,12,Berlin,Fintech,Payments\n"+
		"Gamma,2019,55,Toronto,Health,Clinics\n")
	dir := t.TempDir()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")

	e := NewEnricher(fc, NewInMemoryCache(), NameScreener{prefix: "Acme"}, nameKey, 2, discardLogger())
	summary, outcomes, err := e.Process(context.Background(), in, first)
	require.NoError(t, err)
	_, _, err = e.Process(context.Background(), in, second)
	require.NoError(t, err)

	assert.Len(t, outcomes, 3)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())
	assert.Len(t, summary.Interesting, 1)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, first, summary.Output)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	lines := strings.Split(strings.TrimSpace(string(a)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "Acme,"))
	assert.True(t, strings.HasPrefix(lines[2], "Beta,"))
	assert.Contains(t, lines[2], "invalid")
	assert.True(t, strings.HasPrefix(lines[3], "Gamma,"))

	// Second run is served entirely from cache.
	assert.EqualValues(t, 2, fc.calls.Load())
}
