package store

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/amishk599/dealscan/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() model.EnrichmentResult {
	return model.EnrichmentResult{
		GrowthPotential: 8,
		RiskLevel:       3,
		RiskAssessment:  "thin moat",
		KeyStrengths:    []string{"team", "pricing"},
		Classification:  "SaaS",
		Concerns:        []string{"crowded market"},
	}
}

func TestPutThenGet(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("k1", sampleResult()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get("k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || !reflect.DeepEqual(*got, sampleResult()) {
		t.Errorf("Get = %+v, want %+v", got, sampleResult())
	}
}

func TestGetUnknownReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get("does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown key, got %+v", got)
	}
}

func TestPutReplaces(t *testing.T) {
	s := newTestStore(t)

	if err := s.Put("k1", sampleResult()); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	updated := sampleResult()
	updated.Classification = "Marketplace"
	if err := s.Put("k1", updated); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, err := s.Get("k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Classification != "Marketplace" {
		t.Errorf("Classification = %q, want Marketplace", got.Classification)
	}
}

func TestCleanupRemovesOldKeepsFresh(t *testing.T) {
	s := newTestStore(t)

	// Insert an "old" entry by writing directly with a past timestamp.
	_, err := s.db.Exec(
		"INSERT INTO results (cache_key, payload, created_at) VALUES (?, ?, ?)",
		"old", `{"Classification":"SaaS"}`, time.Now().UTC().Add(-48*time.Hour),
	)
	if err != nil {
		t.Fatalf("inserting old result: %v", err)
	}

	if err := s.Put("fresh", sampleResult()); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}

	if err := s.Cleanup(24 * time.Hour); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if got, _ := s.Get("old"); got != nil {
		t.Error("expected old result to be cleaned up")
	}
	if got, _ := s.Get("fresh"); got == nil {
		t.Error("expected fresh result to survive cleanup")
	}
}

func TestCacheKey(t *testing.T) {
	rec := model.CompanyRecord{Line: 2, Name: "Acme", FoundedYear: 2021, TotalEmployees: 35, Industry: "Software"}
	moved := rec
	moved.Line = 40

	if CacheKey("m", "v1", rec) != CacheKey("m", "v1", moved) {
		t.Error("line number must not affect the cache key")
	}
	if CacheKey("m", "v1", rec) == CacheKey("m", "v2", rec) {
		t.Error("prompt version must affect the cache key")
	}
	if CacheKey("m", "v1", rec) == CacheKey("other", "v1", rec) {
		t.Error("model must affect the cache key")
	}
	edited := rec
	edited.Description = "pivoted"
	if CacheKey("m", "v1", rec) == CacheKey("m", "v1", edited) {
		t.Error("record content must affect the cache key")
	}
}

func TestRecordRunAndRecentRuns(t *testing.T) {
	s := newTestStore(t)

	first := model.Summary{
		StartedAt: time.Now().Add(-time.Hour),
		Duration:  1500 * time.Millisecond,
		Input:     "in.csv",
		Output:    "out.csv",
		Total:     3,
		ByStatus:  map[model.Status]int{model.StatusOK: 2, model.StatusParseError: 1},
	}
	second := first
	second.StartedAt = time.Now()
	second.Interesting = []model.Outcome{{Status: model.StatusOK, Interesting: true}}

	id1, err := s.RecordRun(first)
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if id1 == "" {
		t.Fatal("expected a generated run ID")
	}
	if _, err := s.RecordRun(second); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := s.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("RecentRuns len = %d, want 2", len(runs))
	}
	if runs[1].ID != id1 {
		t.Errorf("expected oldest run last, got %q", runs[1].ID)
	}
	if runs[1].Succeeded != 2 || runs[1].Failed != 1 || runs[1].Duration != 1500*time.Millisecond {
		t.Errorf("run = %+v", runs[1])
	}
	if runs[0].Interesting != 1 {
		t.Errorf("Interesting = %d, want 1", runs[0].Interesting)
	}
}

func TestRecordRun_StoresAbsolutePaths(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := s.RecordRun(model.Summary{
		StartedAt: time.Now(),
		Input:     "companies.csv",
		Output:    filepath.Join("out", "enriched.csv"),
	})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	// Review may run from another directory.
	t.Chdir(t.TempDir())
	runs, err := s.RecentRuns(1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("RecentRuns = %v, %v", runs, err)
	}
	if want := filepath.Join(dir, "companies.csv"); runs[0].Input != want {
		t.Errorf("Input = %q, want %q", runs[0].Input, want)
	}
	if want := filepath.Join(dir, "out", "enriched.csv"); runs[0].Output != want {
		t.Errorf("Output = %q, want %q", runs[0].Output, want)
	}
}
