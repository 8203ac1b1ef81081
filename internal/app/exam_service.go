package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"engtest-service/internal/domain"
)

// Generator produces a question set from generation parameters. Implemented
// by the AI collaborator client; tests substitute a deterministic stub.
type Generator interface {
	Generate(ctx context.Context, params domain.GenerateParams) ([]domain.Question, error)
}

// ExamService owns the lifecycle of the single active test: creation from
// AI-generated content, publish/unpublish, deletion.
type ExamService struct {
	store StateStore
	gen   Generator

	mu  sync.Mutex // serializes test mutations and guards rnd
	rnd *rand.Rand
}

func NewExamService(store StateStore, gen Generator) *ExamService {
	return &ExamService{
		store: store,
		gen:   gen,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Active returns the current test, if any.
func (s *ExamService) Active() (domain.Test, bool) {
	return s.store.ActiveTest()
}

// Generate delegates question authoring to the generator and, on success,
// installs the result as the active test with a fresh room code, unpublished.
// Any generator failure or malformed content leaves state untouched.
func (s *ExamService) Generate(ctx context.Context, params domain.GenerateParams) (domain.Test, error) {
	if !params.Grade.Valid() {
		return domain.Test{}, fmt.Errorf("%w: unknown grade %q", domain.ErrGeneration, params.Grade)
	}
	if params.QuestionCount <= 0 {
		return domain.Test{}, fmt.Errorf("%w: question count must be positive", domain.ErrGeneration)
	}

	questions, err := s.gen.Generate(ctx, params)
	if err != nil {
		return domain.Test{}, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if err := validateQuestions(questions); err != nil {
		return domain.Test{}, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	test := domain.Test{
		Title:       fmt.Sprintf("%s - %s", params.TestType, params.Unit),
		Grade:       params.Grade,
		Unit:        params.Unit,
		Duration:    params.Duration,
		Questions:   questions,
		TestCode:    s.newTestCodeLocked(params.Grade),
		IsPublished: false,
	}
	s.store.SaveTest(test)
	return test, nil
}

// TogglePublish flips the publish flag. The only precondition is that a
// test exists. Attempts already started keep their snapshot and are not
// affected by unpublishing.
func (s *ExamService) TogglePublish() (domain.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	test, ok := s.store.ActiveTest()
	if !ok {
		return domain.Test{}, domain.ErrNoActiveTest
	}
	test.IsPublished = !test.IsPublished
	s.store.SaveTest(test)
	return test, nil
}

// Delete removes the active test. Recorded results are retained.
func (s *ExamService) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store.ActiveTest(); !ok {
		return domain.ErrNoActiveTest
	}
	s.store.DeleteTest()
	return nil
}

// newTestCodeLocked builds a room code of the form ENG{grade}-{4 digits}.
// Callers must hold s.mu.
func (s *ExamService) newTestCodeLocked(grade domain.Grade) string {
	return fmt.Sprintf("ENG%s-%04d", grade, s.rnd.Intn(10000))
}

// validateQuestions rejects generator output that would break grading: a
// multiple-choice answer must be one of the positional labels the options
// were assigned.
func validateQuestions(questions []domain.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("generator returned no questions")
	}
	for i, q := range questions {
		if q.Content == "" {
			return fmt.Errorf("question %d has no content", i+1)
		}
		if q.Answer == "" {
			return fmt.Errorf("question %d has no answer", i+1)
		}
		if !q.MultipleChoice() {
			continue
		}
		valid := false
		for j := range q.Options {
			if q.Answer == OptionLabel(j) {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("question %d answer %q is not an option label", i+1, q.Answer)
		}
	}
	return nil
}
