package domain

import "time"

// Grade identifies the school grade a test targets.
type Grade string

const (
	Grade6 Grade = "6"
	Grade7 Grade = "7"
	Grade8 Grade = "8"
	Grade9 Grade = "9"
)

// Valid reports whether g is one of the supported grades.
func (g Grade) Valid() bool {
	switch g {
	case Grade6, Grade7, Grade8, Grade9:
		return true
	}
	return false
}

// Question is a single test item. Options is empty for free-response items;
// when present, Answer holds the positional label (A, B, C, ...) of the
// correct option.
type Question struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Instruction string   `json:"instruction"`
	Content     string   `json:"content"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// MultipleChoice reports whether the question is graded by option label.
func (q Question) MultipleChoice() bool {
	return len(q.Options) > 0
}

// Test is the single active test record. TestCode is the room code students
// must present to start an attempt; IsPublished gates whether they may.
type Test struct {
	Title       string     `json:"title"`
	Grade       Grade      `json:"grade"`
	Unit        string     `json:"unit"`
	Duration    int        `json:"duration"` // minutes, displayed only
	Questions   []Question `json:"questions"`
	TestCode    string     `json:"testCode"`
	IsPublished bool       `json:"isPublished"`
}

// StudentResult is one graded submission. Records are append-only: they are
// never mutated and survive deletion of the test they were taken from.
type StudentResult struct {
	ID           string            `json:"id"`
	StudentName  string            `json:"studentName"`
	StudentClass string            `json:"studentClass"`
	Score        float64           `json:"score"`
	MaxScore     float64           `json:"maxScore"`
	SubmittedAt  time.Time         `json:"submittedAt"`
	Answers      map[string]string `json:"answers"`
}

// GenerateParams are the inputs to AI test generation.
type GenerateParams struct {
	Grade         Grade          `json:"grade"`
	Unit          string         `json:"unit"`
	TestType      string         `json:"testType"`
	Duration      int            `json:"duration"`
	QuestionCount int            `json:"questionCount"`
	DifficultyMix map[string]int `json:"difficultyMix"` // level label -> percent
}

// QuestionReview is the per-question breakdown shown after submission.
type QuestionReview struct {
	Question  Question `json:"question"`
	Submitted string   `json:"submitted"`
	Correct   bool     `json:"correct"`
}

// AttemptResult is what a student gets back from a graded submission.
type AttemptResult struct {
	Result StudentResult    `json:"result"`
	Review []QuestionReview `json:"review"`
}
