// Package ai implements the generative collaborator behind the narrow
// Generator/Analyzer contracts. The provider is an OpenAI-compatible
// chat-completions endpoint; nothing outside this package assumes anything
// about it, so tests substitute deterministic stubs.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"engtest-service/internal/domain"
)

// Client calls a chat-completions API to generate question sets and analyze
// result sets. The request timeout is explicit configuration, not a hidden
// default.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	model      string
}

func NewClient(apiURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Available reports whether the client has credentials to call the API.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const generateSystemPrompt = `You are an English test generator for Vietnamese secondary school students. You must respond with ONLY valid JSON (no markdown, no code fences, no explanations): an array of question objects in the following format:

[
  {
    "type": "Multiple Choice",
    "instruction": "Choose the best answer.",
    "content": "She ____ to school every day.",
    "options": ["go", "goes", "going", "gone"],
    "answer": "B",
    "explanation": "Third person singular takes -es."
  },
  {
    "type": "Sentence Completion",
    "instruction": "Fill in the blank with one word.",
    "content": "I have lived here ____ 2010.",
    "answer": "since",
    "explanation": "Use 'since' with a point in time."
  }
]

Rules:
- For multiple-choice questions, "answer" must be the letter label (A, B, C, ...) of the correct option by position
- Free-response questions must omit "options" and put the exact expected text in "answer"
- Every question needs a short "explanation" in Vietnamese
- Return ONLY the JSON array, nothing else`

// Generate asks the provider for a question set matching params. Any
// transport, provider or shape failure comes back as an error; the caller
// never sees a partially usable question list.
func (c *Client) Generate(ctx context.Context, params domain.GenerateParams) ([]domain.Question, error) {
	if !c.Available() {
		return nil, fmt.Errorf("ai generation is not configured")
	}

	content, err := c.complete(ctx, generateSystemPrompt, generateUserPrompt(params))
	if err != nil {
		return nil, err
	}

	var questions []domain.Question
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &questions); err != nil {
		return nil, fmt.Errorf("provider returned invalid JSON: %w", err)
	}
	return questions, nil
}

const analyzeSystemPrompt = `You are an experienced English teacher. Given a class's test results as JSON, write a short pedagogical summary in Vietnamese: overall performance, notable strengths and weaknesses, and one concrete suggestion for the next lesson. Plain text only.`

// Analyze requests a free-text summary of the full result set.
func (c *Client) Analyze(ctx context.Context, results []domain.StudentResult) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("ai analysis is not configured")
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	content, err := c.complete(ctx, analyzeSystemPrompt, string(payload))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, raw)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return "", fmt.Errorf("parse provider response: %w", err)
	}
	if chat.Error != nil {
		return "", fmt.Errorf("provider error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("empty response from provider")
	}
	return chat.Choices[0].Message.Content, nil
}

func generateUserPrompt(params domain.GenerateParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create an English test for grade %s, unit %q, test type %q, with exactly %d questions.",
		params.Grade, params.Unit, params.TestType, params.QuestionCount)
	if len(params.DifficultyMix) > 0 {
		b.WriteString(" Difficulty mix (percent): ")
		mix, _ := json.Marshal(params.DifficultyMix)
		b.Write(mix)
		b.WriteString(".")
	}
	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence some models add
// despite the prompt.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
