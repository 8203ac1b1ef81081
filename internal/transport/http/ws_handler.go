package http

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"engtest-service/internal/app"
	"engtest-service/internal/domain"
)

// WSHandler exposes the teacher and student surfaces over one websocket
// endpoint. A connection starts with no role; "teacherLogin" grants the
// teacher role for that connection, "joinExam" starts a student attempt.
type WSHandler struct {
	exam      *app.ExamService
	attempts  *app.AttemptService
	analytics *app.AnalyticsService
	store     app.StateStore
	password  string
	upgrader  websocket.Upgrader
}

func NewWSHandler(exam *app.ExamService, attempts *app.AttemptService, analytics *app.AnalyticsService, store app.StateStore, teacherPassword string) *WSHandler {
	return &WSHandler{
		exam:      exam,
		attempts:  attempts,
		analytics: analytics,
		store:     store,
		password:  teacherPassword,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type loginPayload struct {
	Password string `json:"password"`
}

type joinPayload struct {
	TestCode string `json:"testCode"`
	Name     string `json:"name"`
	Class    string `json:"class"`
}

type submitPayload struct {
	Answers map[string]string `json:"answers"`
}

// studentQuestion is a question as shown to a student mid-attempt: answer
// and explanation stay on the server until the attempt is graded.
type studentQuestion struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Instruction string   `json:"instruction"`
	Content     string   `json:"content"`
	Options     []string `json:"options,omitempty"`
}

type examJoinedPayload struct {
	Title     string            `json:"title"`
	Grade     domain.Grade      `json:"grade"`
	Unit      string            `json:"unit"`
	Duration  int               `json:"duration"` // minutes, for the visible countdown
	StartedAt time.Time         `json:"startedAt"`
	Questions []studentQuestion `json:"questions"`
}

type testStatePayload struct {
	Test         *domain.Test `json:"test"`
	ResultsCount int          `json:"resultsCount"`
}

type analyticsPayload struct {
	Stats     app.Stats `json:"stats"`
	Summary   string    `json:"summary"`
	Analyzing bool      `json:"analyzing"`
}

type curriculumPayload struct {
	Units         map[domain.Grade][]string `json:"units"`
	DifficultyMix []domain.DifficultyLevel  `json:"difficultyMix"`
}

// ServeWS upgrades the request and runs the message loop for one client.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	changes, cancel := h.store.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	changesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(changesDone)
		for {
			select {
			case change, ok := <-changes:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "stateChanged", Payload: change}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	teacher := false
	var attempt *app.Attempt

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "teacherLogin":
			var payload loginPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg("invalid login payload")
				continue
			}
			if subtle.ConstantTimeCompare([]byte(payload.Password), []byte(h.password)) != 1 {
				send <- errMsg(domain.ErrAuthFailed.Error())
				continue
			}
			teacher = true
			send <- outboundMessage[any]{Type: "teacherGranted", Payload: h.testState()}

		case "generateTest":
			if !teacher {
				send <- errMsg("teacher authentication required")
				continue
			}
			var params domain.GenerateParams
			if err := json.Unmarshal(inbound.Payload, &params); err != nil {
				send <- errMsg("invalid generation payload")
				continue
			}
			test, err := h.exam.Generate(r.Context(), params)
			if err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "testGenerated", Payload: testStatePayload{Test: &test, ResultsCount: len(h.store.Results())}}

		case "togglePublish":
			if !teacher {
				send <- errMsg("teacher authentication required")
				continue
			}
			test, err := h.exam.TogglePublish()
			if err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "testState", Payload: testStatePayload{Test: &test, ResultsCount: len(h.store.Results())}}

		case "deleteTest":
			if !teacher {
				send <- errMsg("teacher authentication required")
				continue
			}
			if err := h.exam.Delete(); err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "testState", Payload: h.testState()}

		case "testState":
			if !teacher {
				send <- errMsg("teacher authentication required")
				continue
			}
			send <- outboundMessage[any]{Type: "testState", Payload: h.testState()}

		case "analytics":
			if !teacher {
				send <- errMsg("teacher authentication required")
				continue
			}
			summary, analyzing := h.analytics.Summary(r.Context())
			send <- outboundMessage[any]{Type: "analytics", Payload: analyticsPayload{
				Stats:     h.analytics.Stats(),
				Summary:   summary,
				Analyzing: analyzing,
			}}

		case "curriculum":
			units := make(map[domain.Grade][]string, 4)
			for _, g := range []domain.Grade{domain.Grade6, domain.Grade7, domain.Grade8, domain.Grade9} {
				units[g] = domain.CurriculumUnits(g)
			}
			send <- outboundMessage[any]{Type: "curriculum", Payload: curriculumPayload{
				Units:         units,
				DifficultyMix: domain.DefaultDifficultyMix(),
			}}

		case "joinExam":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg("invalid join payload")
				continue
			}
			started, err := h.attempts.Start(payload.TestCode, payload.Name, payload.Class)
			if err != nil {
				send <- errMsg(err.Error())
				continue
			}
			attempt = &started
			send <- outboundMessage[any]{Type: "examJoined", Payload: joinedPayload(started)}

		case "submitAttempt":
			if attempt == nil {
				send <- errMsg("no attempt in progress")
				continue
			}
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg("invalid submission payload")
				continue
			}
			result := h.attempts.Submit(*attempt, payload.Answers)
			attempt = nil
			send <- outboundMessage[any]{Type: "attemptResult", Payload: result}

		case "leaveExam":
			attempt = nil
			send <- outboundMessage[any]{Type: "examLeft", Payload: struct{}{}}

		default:
			send <- errMsg("unsupported message type")
		}
	}

	close(closeSignals)
	<-changesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) testState() testStatePayload {
	payload := testStatePayload{ResultsCount: len(h.store.Results())}
	if test, ok := h.exam.Active(); ok {
		payload.Test = &test
	}
	return payload
}

func joinedPayload(attempt app.Attempt) examJoinedPayload {
	questions := make([]studentQuestion, 0, len(attempt.Test.Questions))
	for _, q := range attempt.Test.Questions {
		questions = append(questions, studentQuestion{
			ID:          q.ID,
			Type:        q.Type,
			Instruction: q.Instruction,
			Content:     q.Content,
			Options:     q.Options,
		})
	}
	return examJoinedPayload{
		Title:     attempt.Test.Title,
		Grade:     attempt.Test.Grade,
		Unit:      attempt.Test.Unit,
		Duration:  attempt.Test.Duration,
		StartedAt: attempt.StartedAt,
		Questions: questions,
	}
}

func errMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
