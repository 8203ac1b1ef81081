package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"engtest-service/internal/app"
	"engtest-service/internal/domain"
	"engtest-service/internal/infra/memory"
)

type stubAnalyzer struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ []domain.StudentResult) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.text, a.err
}

func (a *stubAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func resultWithScore(id string, score float64) domain.StudentResult {
	return domain.StudentResult{ID: id, StudentName: "s" + id, StudentClass: "6A1", Score: score, MaxScore: 10}
}

func TestStatsWithNoResults(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	service := app.NewAnalyticsService(store, &stubAnalyzer{}, time.Minute)

	stats := service.Stats()
	if stats.PassRate != 0 {
		t.Fatalf("empty result set must yield pass rate 0, got %v", stats.PassRate)
	}
	for _, b := range stats.Histogram {
		if b.Count != 0 {
			t.Fatalf("expected empty histogram, got %+v", stats.Histogram)
		}
	}
}

func TestStatsBucketsAndPassRate(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	service := app.NewAnalyticsService(store, &stubAnalyzer{}, time.Minute)

	// bucket boundaries are inclusive on the upper edge
	scores := []float64{0, 2, 2.1, 5, 5.1, 8, 8.1, 10}
	for i, s := range scores {
		store.AppendResult(resultWithScore(string(rune('a'+i)), s))
	}

	stats := service.Stats()
	wantCounts := []int{2, 2, 2, 2}
	for i, want := range wantCounts {
		if stats.Histogram[i].Count != want {
			t.Fatalf("bucket %s: expected %d, got %d", stats.Histogram[i].Label, want, stats.Histogram[i].Count)
		}
	}
	// 5, 5.1, 8, 8.1, 10 pass
	if stats.PassRate != 62.5 {
		t.Fatalf("expected pass rate 62.5, got %v", stats.PassRate)
	}
}

func TestBand(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{8, "Giỏi"},
		{7.9, "Khá"},
		{6.5, "Khá"},
		{6.4, "Trung bình"},
		{5, "Trung bình"},
		{4.9, "Yếu"},
		{0, "Yếu"},
	}
	for _, c := range cases {
		if got := app.Band(c.score); got != c.want {
			t.Fatalf("band(%v): expected %s, got %s", c.score, c.want, got)
		}
	}
}

func TestSummaryEmptyResultSet(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	analyzer := &stubAnalyzer{text: "should not be called"}
	service := app.NewAnalyticsService(store, analyzer, time.Minute)

	summary, pending := service.Summary(context.Background())
	if summary != app.NoAnalysis || pending {
		t.Fatalf("expected placeholder without pending, got %q pending=%v", summary, pending)
	}
	if analyzer.callCount() != 0 {
		t.Fatalf("analyzer must not run with no data")
	}
}

func TestSummaryRefreshesAsynchronously(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	analyzer := &stubAnalyzer{text: "lớp học khá đều"}
	service := app.NewAnalyticsService(store, analyzer, time.Minute)

	store.AppendResult(resultWithScore("r1", 7.5))

	summary, pending := service.Summary(context.Background())
	if !pending {
		t.Fatalf("first call must report a pending refresh")
	}
	if summary != app.NoAnalysis {
		t.Fatalf("expected placeholder while pending, got %q", summary)
	}

	waitFor(t, func() bool {
		text, pending := service.Summary(context.Background())
		return !pending && text == "lớp học khá đều"
	})
	if analyzer.callCount() != 1 {
		t.Fatalf("expected one analyzer call, got %d", analyzer.callCount())
	}

	// cached while the result set is unchanged
	if _, pending := service.Summary(context.Background()); pending {
		t.Fatalf("expected cache hit")
	}
	if analyzer.callCount() != 1 {
		t.Fatalf("cache hit must not call the analyzer again, got %d calls", analyzer.callCount())
	}
}

func TestSummaryDegradesOnAnalyzerFailure(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	analyzer := &stubAnalyzer{err: errors.New("provider down")}
	service := app.NewAnalyticsService(store, analyzer, time.Minute)

	store.AppendResult(resultWithScore("r1", 7.5))

	if _, pending := service.Summary(context.Background()); !pending {
		t.Fatalf("expected pending refresh")
	}
	waitFor(t, func() bool {
		_, pending := service.Summary(context.Background())
		return !pending
	})
	summary, _ := service.Summary(context.Background())
	if summary != app.NoAnalysis {
		t.Fatalf("failure must degrade to placeholder, got %q", summary)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
