package app

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"engtest-service/internal/domain"
)

// Attempt is one student's run through a test. It holds a snapshot of the
// test taken at start, so unpublishing or replacing the test mid-attempt
// does not affect grading. Answers live only in the caller until Submit.
type Attempt struct {
	Test         domain.Test
	StudentName  string
	StudentClass string
	StartedAt    time.Time
}

// AttemptService validates attempt entry and grades submissions.
type AttemptService struct {
	store StateStore
	now   func() time.Time
}

func NewAttemptService(store StateStore) *AttemptService {
	return &AttemptService{store: store, now: time.Now}
}

// NewAttemptServiceWithClock is test-only for deterministic timestamps.
func NewAttemptServiceWithClock(store StateStore, now func() time.Time) *AttemptService {
	return &AttemptService{store: store, now: now}
}

// Start validates entry in order, short-circuiting on the first failure:
// a published test must exist, the room code must match case-insensitively,
// and name and class must be non-empty after trimming.
func (s *AttemptService) Start(roomCode, name, class string) (Attempt, error) {
	test, ok := s.store.ActiveTest()
	if !ok || !test.IsPublished {
		return Attempt{}, domain.ErrRoomClosed
	}
	if !strings.EqualFold(roomCode, test.TestCode) {
		return Attempt{}, domain.ErrInvalidRoomCode
	}
	name = strings.TrimSpace(name)
	class = strings.TrimSpace(class)
	if name == "" || class == "" {
		return Attempt{}, domain.ErrMissingIdentification
	}
	return Attempt{
		Test:         test,
		StudentName:  name,
		StudentClass: class,
		StartedAt:    s.now(),
	}, nil
}

// Submit grades the full question set once against the attempt's snapshot,
// appends a StudentResult to the store and returns the read-only review.
// The attempt is finished after this; there is no resume.
func (s *AttemptService) Submit(attempt Attempt, answers map[string]string) domain.AttemptResult {
	if answers == nil {
		answers = map[string]string{}
	}
	correct, review := GradeAnswers(attempt.Test.Questions, answers)

	result := domain.StudentResult{
		ID:           uuid.NewString(),
		StudentName:  attempt.StudentName,
		StudentClass: attempt.StudentClass,
		Score:        Score(correct, len(attempt.Test.Questions)),
		MaxScore:     MaxScore,
		SubmittedAt:  s.now(),
		Answers:      answers,
	}
	s.store.AppendResult(result)

	return domain.AttemptResult{Result: result, Review: review}
}
