package app

import (
	"math"
	"strings"

	"engtest-service/internal/domain"
)

// MaxScore is the fixed score ceiling regardless of question count.
const MaxScore = 10.0

// Normalize canonicalizes a free-response answer before comparison:
// lowercase, strip the characters . ? ! , collapse whitespace runs to a
// single space, trim. Punctuation is stripped before whitespace collapsing
// so the function is idempotent. Diacritics and other punctuation are kept.
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '.', '?', '!', ',':
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// OptionLabel returns the positional choice label for a zero-based option
// index: A, B, C, ... then AA, AB, ... past 26 options.
func OptionLabel(i int) string {
	label := ""
	for {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
		if i < 0 {
			return label
		}
	}
}

// IsCorrect grades one submitted value against a question. Multiple-choice
// answers are compared by exact label match; free-response answers by
// normalized text equality.
func IsCorrect(q domain.Question, submitted string) bool {
	if q.MultipleChoice() {
		return submitted == q.Answer
	}
	return Normalize(submitted) == Normalize(q.Answer)
}

// GradeAnswers grades a full question set once. Unanswered questions grade
// as the empty string. It returns the correct count and a per-question
// review in question order.
func GradeAnswers(questions []domain.Question, answers map[string]string) (int, []domain.QuestionReview) {
	correct := 0
	review := make([]domain.QuestionReview, 0, len(questions))
	for _, q := range questions {
		submitted := answers[q.ID]
		ok := IsCorrect(q, submitted)
		if ok {
			correct++
		}
		review = append(review, domain.QuestionReview{
			Question:  q,
			Submitted: submitted,
			Correct:   ok,
		})
	}
	return correct, review
}

// Score maps a correct count onto the 0-10 scale, rounded to one decimal
// (half away from zero on the tenths digit).
func Score(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*MaxScore*10) / 10
}
