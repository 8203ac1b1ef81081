package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"engtest-service/internal/domain"
)

// Analyzer turns a result set into a free-text pedagogical summary.
// Implemented by the AI collaborator client; never relied on for anything
// beyond this contract.
type Analyzer interface {
	Analyze(ctx context.Context, results []domain.StudentResult) (string, error)
}

// NoAnalysis is the placeholder shown when no summary is available, either
// because there is no data or because the collaborator failed.
const NoAnalysis = "Chưa có dữ liệu để phân tích."

// ScoreBucket is one histogram bar.
type ScoreBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ResultRow pairs a result with its qualitative band for the result table.
type ResultRow struct {
	domain.StudentResult
	Band string `json:"band"`
}

// Stats are the derived read-side analytics. Nothing here is ever stored.
type Stats struct {
	Histogram []ScoreBucket `json:"histogram"`
	PassRate  float64       `json:"passRate"`
	Rows      []ResultRow   `json:"rows"`
}

// AnalyticsService computes distribution statistics over the result set and
// maintains an asynchronously refreshed AI summary. Concurrent refreshes
// are coalesced with singleflight and the summary is cached with a TTL so
// repeated dashboard loads do not hammer the collaborator.
type AnalyticsService struct {
	store    StateStore
	analyzer Analyzer
	ttl      time.Duration
	clock    func() time.Time
	rnd      *rand.Rand
	sf       singleflight.Group

	mu        sync.Mutex
	summary   string
	version   int
	expiresAt time.Time
}

func NewAnalyticsService(store StateStore, analyzer Analyzer, ttl time.Duration) *AnalyticsService {
	return &AnalyticsService{
		store:    store,
		analyzer: analyzer,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Band maps a score onto its qualitative label.
func Band(score float64) string {
	switch {
	case score >= 8:
		return "Giỏi"
	case score >= 6.5:
		return "Khá"
	case score >= 5:
		return "Trung bình"
	default:
		return "Yếu"
	}
}

// Stats derives the histogram, pass rate and banded rows from the current
// result set. An empty set yields a zero pass rate, not NaN.
func (s *AnalyticsService) Stats() Stats {
	results := s.store.Results()

	buckets := []ScoreBucket{
		{Label: "0-2"}, {Label: "2-5"}, {Label: "5-8"}, {Label: "8-10"},
	}
	passed := 0
	rows := make([]ResultRow, 0, len(results))
	for _, r := range results {
		switch {
		case r.Score <= 2:
			buckets[0].Count++
		case r.Score <= 5:
			buckets[1].Count++
		case r.Score <= 8:
			buckets[2].Count++
		default:
			buckets[3].Count++
		}
		if r.Score >= 5 {
			passed++
		}
		rows = append(rows, ResultRow{StudentResult: r, Band: Band(r.Score)})
	}

	passRate := 0.0
	if len(results) > 0 {
		passRate = float64(passed) / float64(len(results)) * 100
	}
	return Stats{Histogram: buckets, PassRate: passRate, Rows: rows}
}

// Summary returns the current AI summary and whether a refresh is pending.
// A stale or missing summary triggers an asynchronous refresh; the caller
// gets the placeholder (or the previous text) immediately and can re-request
// once the pending flag clears. Collaborator failures degrade to the
// placeholder and are logged, never surfaced as a crash.
func (s *AnalyticsService) Summary(ctx context.Context) (string, bool) {
	results := s.store.Results()
	if len(results) == 0 {
		return NoAnalysis, false
	}
	version := len(results)

	s.mu.Lock()
	if s.version == version && s.clock().Before(s.expiresAt) {
		text := s.summary
		s.mu.Unlock()
		return text, false
	}
	stale := s.summary
	s.mu.Unlock()

	go func() {
		_, _, _ = s.sf.Do("summary", func() (interface{}, error) {
			text, err := s.analyzer.Analyze(context.WithoutCancel(ctx), results)
			if err != nil {
				log.Printf("result analysis failed: %v", err)
				text = NoAnalysis
			}
			s.mu.Lock()
			s.summary = text
			s.version = version
			s.expiresAt = s.clock().Add(s.ttlWithJitter())
			s.mu.Unlock()
			return text, nil
		})
	}()

	if stale == "" {
		stale = NoAnalysis
	}
	return stale, true
}

func (s *AnalyticsService) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
