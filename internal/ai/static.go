package ai

import (
	"context"
	"fmt"

	"engtest-service/internal/domain"
)

// Static is a deterministic generator/analyzer backed by a small built-in
// question bank. It keeps the service usable in demos and tests when no
// provider credentials are configured.
type Static struct{}

func NewStatic() *Static {
	return &Static{}
}

func (s *Static) Generate(_ context.Context, params domain.GenerateParams) ([]domain.Question, error) {
	bank := []domain.Question{
		{
			Type:        "Multiple Choice",
			Instruction: "Choose the best answer.",
			Content:     "She ____ to school every day.",
			Options:     []string{"go", "goes", "going", "gone"},
			Answer:      "B",
			Explanation: "Chủ ngữ ngôi thứ ba số ít đi với động từ thêm -es.",
		},
		{
			Type:        "Multiple Choice",
			Instruction: "Choose the best answer.",
			Content:     "There ____ many natural wonders in the world.",
			Options:     []string{"is", "are", "was", "be"},
			Answer:      "B",
			Explanation: "Danh từ số nhiều dùng 'are'.",
		},
		{
			Type:        "Sentence Completion",
			Instruction: "Fill in the blank with one word.",
			Content:     "I have lived here ____ 2010.",
			Answer:      "since",
			Explanation: "Dùng 'since' với một mốc thời gian.",
		},
		{
			Type:        "Multiple Choice",
			Instruction: "Choose the word with a different stress pattern.",
			Content:     "Pick the odd one out.",
			Options:     []string{"teacher", "student", "mistake", "lesson"},
			Answer:      "C",
			Explanation: "'Mistake' có trọng âm ở âm tiết thứ hai.",
		},
	}

	count := params.QuestionCount
	if count <= 0 {
		return nil, fmt.Errorf("question count must be positive")
	}
	questions := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, bank[i%len(bank)])
	}
	return questions, nil
}

func (s *Static) Analyze(_ context.Context, results []domain.StudentResult) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("no results to analyze")
	}
	total := 0.0
	for _, r := range results {
		total += r.Score
	}
	avg := total / float64(len(results))
	return fmt.Sprintf("Lớp có %d bài nộp, điểm trung bình %.1f/10. Hãy ôn tập thêm các câu vận dụng cao.", len(results), avg), nil
}
