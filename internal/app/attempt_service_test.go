package app_test

import (
	"context"
	"errors"
	"testing"

	"engtest-service/internal/app"
	"engtest-service/internal/domain"
	"engtest-service/internal/infra/memory"
)

func publishedTest() domain.Test {
	return domain.Test{
		Title:       "15 Phút - Unit 5",
		Grade:       domain.Grade6,
		Unit:        "Unit 5: Natural Wonders of the World",
		Duration:    15,
		Questions:   fourQuestionBank(),
		TestCode:    "ENG6-1000",
		IsPublished: true,
	}
}

func TestStartRequiresPublishedTest(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	service := app.NewAttemptService(store)

	if _, err := service.Start("ENG6-1000", "An", "6A1"); !errors.Is(err, domain.ErrRoomClosed) {
		t.Fatalf("expected room closed with no test, got %v", err)
	}

	test := publishedTest()
	test.IsPublished = false
	store.SaveTest(test)

	// correct room code does not help while unpublished
	if _, err := service.Start("ENG6-1000", "An", "6A1"); !errors.Is(err, domain.ErrRoomClosed) {
		t.Fatalf("expected room closed while unpublished, got %v", err)
	}
}

func TestStartValidatesRoomCodeCaseInsensitively(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	store.SaveTest(publishedTest())
	service := app.NewAttemptService(store)

	if _, err := service.Start("ENG6-9999", "An", "6A1"); !errors.Is(err, domain.ErrInvalidRoomCode) {
		t.Fatalf("expected invalid room code, got %v", err)
	}
	if _, err := service.Start("engl6-1000", "An", "6A1"); !errors.Is(err, domain.ErrInvalidRoomCode) {
		t.Fatalf("expected invalid room code for engl6 prefix, got %v", err)
	}
	if _, err := service.Start("eng6-1000", "An", "6A1"); err != nil {
		t.Fatalf("case-insensitive match must pass, got %v", err)
	}
}

func TestStartValidatesIdentification(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	store.SaveTest(publishedTest())
	service := app.NewAttemptService(store)

	if _, err := service.Start("ENG6-1000", "   ", "6A1"); !errors.Is(err, domain.ErrMissingIdentification) {
		t.Fatalf("expected missing identification for blank name, got %v", err)
	}
	if _, err := service.Start("ENG6-1000", "An", ""); !errors.Is(err, domain.ErrMissingIdentification) {
		t.Fatalf("expected missing identification for blank class, got %v", err)
	}

	attempt, err := service.Start("ENG6-1000", " An ", " 6A1 ")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if attempt.StudentName != "An" || attempt.StudentClass != "6A1" {
		t.Fatalf("expected trimmed identification, got %q / %q", attempt.StudentName, attempt.StudentClass)
	}
}

func TestSubmitGradesAndAppendsResult(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	store.SaveTest(publishedTest())
	service := app.NewAttemptService(store)

	attempt, err := service.Start("ENG6-1000", "An", "6A1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// 3 of 4 correct: q3 wrong, q4 matches after normalization
	result := service.Submit(attempt, map[string]string{
		"q1": "B",
		"q2": "A",
		"q3": "A",
		"q4": " Since  2010? ",
	})
	if result.Result.Score != 7.5 {
		t.Fatalf("expected score 7.5, got %v", result.Result.Score)
	}
	if result.Result.MaxScore != 10 {
		t.Fatalf("expected max score 10, got %v", result.Result.MaxScore)
	}
	if result.Result.ID == "" {
		t.Fatalf("expected generated result id")
	}
	if len(result.Review) != 4 {
		t.Fatalf("expected review of all questions, got %d", len(result.Review))
	}
	if result.Review[2].Correct {
		t.Fatalf("q3 should be wrong")
	}
	if !result.Review[3].Correct {
		t.Fatalf("q4 should match after normalization")
	}
	if got := len(store.Results()); got != 1 {
		t.Fatalf("expected result appended, got %d", got)
	}
}

func TestUnpublishDoesNotAffectStartedAttempt(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	store.SaveTest(publishedTest())
	service := app.NewAttemptService(store)

	attempt, err := service.Start("ENG6-1000", "An", "6A1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	test, _ := store.ActiveTest()
	test.IsPublished = false
	store.SaveTest(test)

	result := service.Submit(attempt, map[string]string{"q1": "B", "q2": "A", "q3": "C", "q4": "since"})
	if result.Result.Score != 10 {
		t.Fatalf("attempt snapshot must still grade, got score %v", result.Result.Score)
	}
}

func TestEndToEndAttemptFeedsAnalytics(t *testing.T) {
	store := memory.NewStateStore(context.Background(), nil)
	exam := app.NewExamService(store, &stubGenerator{questions: fourQuestionBank()})
	attempts := app.NewAttemptService(store)
	analytics := app.NewAnalyticsService(store, &stubAnalyzer{text: "ok"}, 0)

	if _, err := exam.Generate(context.Background(), defaultParams()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	test, err := exam.TogglePublish()
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	attempt, err := attempts.Start(test.TestCode, "An", "6A1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	result := attempts.Submit(attempt, map[string]string{"q1": "B", "q2": "A", "q3": "C", "q4": "wrong"})
	if result.Result.Score != 7.5 {
		t.Fatalf("expected 7.5, got %v", result.Result.Score)
	}

	stats := analytics.Stats()
	if stats.Histogram[2].Count != 1 {
		t.Fatalf("expected (5,8] bucket to hold the new entry, got %+v", stats.Histogram)
	}
	if stats.PassRate != 100 {
		t.Fatalf("expected pass rate 100, got %v", stats.PassRate)
	}
}
