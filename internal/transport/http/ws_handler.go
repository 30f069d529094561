package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"code-session-service/internal/app"
	"code-session-service/internal/domain"
	"github.com/gorilla/websocket"
)

// SessionConfig carries the per-session timing knobs.
type SessionConfig struct {
	AutosaveInterval time.Duration
	StatusRevert     time.Duration
	WarnWindow       time.Duration
	ClearedNotice    time.Duration
}

// WSHandler upgrades editor pages to websockets and wires them into the
// session layer: code resolution on open, autosave, submissions, the
// deadline countdown, and panel layout swaps.
type WSHandler struct {
	drafts      app.DraftStore
	progress    app.ProgressRepository
	assignments app.AssignmentRepository
	judge       app.JudgeClient
	cfg         SessionConfig
	upgrader    websocket.Upgrader
}

func NewWSHandler(drafts app.DraftStore, progress app.ProgressRepository, assignments app.AssignmentRepository, judge app.JudgeClient, cfg SessionConfig) *WSHandler {
	return &WSHandler{
		drafts:      drafts,
		progress:    progress,
		assignments: assignments,
		judge:       judge,
		cfg:         cfg,
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

type codePayload struct {
	Code string `json:"code"`
}

type submitPayload struct {
	Mode string `json:"mode"`
}

type swapPayload struct {
	Dragged string `json:"dragged"`
	Target  string `json:"target"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type tickPayload struct {
	RemainingSec int64  `json:"remainingSec"`
	Tier         string `json:"tier"`
}

type expiredPayload struct {
	Message string `json:"message"`
	Evicted bool   `json:"evicted"`
}

// ServeWS runs one editor session over a websocket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, role, ok := parseSessionParams(r)
	if !ok {
		http.Error(w, "missing or invalid problemId, sectionId, language, or role", http.StatusBadRequest)
		return
	}
	lang, ok := app.LanguageByID(identity.Language)
	if !ok {
		http.Error(w, "unknown language", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()

	sessionID, err := h.drafts.Init(ctx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "draft store unavailable"}})
		return
	}
	log.Printf("editor session %s opened for %s (%s)", sessionID, identity.Key(), role)

	assignment, err := h.assignments.GetAssignment(ctx, identity.SectionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "assignment not found"}})
		return
	}

	resolver := app.NewResolver(h.drafts, h.progress)
	resolution, err := resolver.Resolve(ctx, identity)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var closeOnce sync.Once
	shutdown := func() { closeOnce.Do(func() { close(closeSignals) }) }

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	// The server keeps the authoritative copy of the editor buffer,
	// refreshed by inbound update/save messages.
	var bufMu sync.Mutex
	buffer := resolution.Code
	readBuffer := func() string {
		bufMu.Lock()
		defer bufMu.Unlock()
		return buffer
	}
	writeBuffer := func(code string) {
		bufMu.Lock()
		buffer = code
		bufMu.Unlock()
	}

	var governor *app.Governor
	if !assignment.EndAt.IsZero() {
		governor = app.NewGovernor(assignment.EndAt, h.cfg.WarnWindow, func() {
			evicted := !role.Privileged()
			push(outboundMessage[any]{Type: "expired", Payload: expiredPayload{
				Message: "Time is up. The quiz has ended.",
				Evicted: evicted,
			}})
			if evicted {
				// Give the writer a moment to flush the notice, then force
				// the read loop to unblock.
				time.AfterFunc(200*time.Millisecond, func() { _ = conn.Close() })
			}
		})
		go governor.Run(ctx)
	}

	orchestrator := app.NewOrchestrator(h.drafts, h.judge, assignment, h.cfg.ClearedNotice, func() {
		push(outboundMessage[any]{Type: "deactivated", Payload: errorPayload{
			Message: "This assignment has been deactivated. You will be redirected.",
		}})
		time.AfterFunc(200*time.Millisecond, func() { _ = conn.Close() })
	})

	autosaver := app.NewAutosaver(h.drafts, identity, lang, readBuffer, governor, h.cfg.AutosaveInterval, h.cfg.StatusRevert)
	statuses, cancelStatuses := autosaver.Subscribe()
	defer cancelStatuses()
	go autosaver.Run(ctx)

	go func() {
		for {
			select {
			case status, ok := <-statuses:
				if !ok {
					return
				}
				push(outboundMessage[any]{Type: "saveStatus", Payload: string(status)})
			case <-closeSignals:
				return
			}
		}
	}()

	if governor != nil {
		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if governor.Expired() {
						return
					}
					push(outboundMessage[any]{Type: "tick", Payload: tickPayload{
						RemainingSec: int64(governor.Remaining() / time.Second),
						Tier:         string(governor.Tier()),
					}})
				case <-closeSignals:
					return
				}
			}
		}()
	}

	layout := domain.DefaultLayout()

	push(outboundMessage[any]{Type: "resolved", Payload: resolution})
	push(outboundMessage[any]{Type: "layout", Payload: layout})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "update":
			var payload codePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid update payload"}})
				continue
			}
			writeBuffer(payload.Code)

		case "save":
			// The manual chord may carry a fresher buffer than the last
			// update message.
			var payload codePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err == nil && payload.Code != "" {
				writeBuffer(payload.Code)
			}
			autosaver.Save(ctx)

		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid submit payload"}})
				continue
			}
			mode := app.ModeJudge
			if payload.Mode == string(app.ModeOutput) {
				mode = app.ModeOutput
			}
			outcome, err := orchestrator.Submit(ctx, app.SubmitRequest{
				Identity: identity,
				Code:     readBuffer(),
				Role:     role,
				Mode:     mode,
			})
			if err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: policyMessage(err)}})
				continue
			}
			push(outboundMessage[any]{Type: "verdict", Payload: outcome})

		case "swap":
			var payload swapPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid swap payload"}})
				continue
			}
			layout = layout.Swap(domain.PanelRole(payload.Dragged), domain.PanelRole(payload.Target))
			push(outboundMessage[any]{Type: "layout", Payload: layout})

		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	shutdown()
	<-writerDone
}

func parseSessionParams(r *http.Request) (domain.DraftIdentity, domain.Role, bool) {
	q := r.URL.Query()
	problemID, err := strconv.ParseInt(q.Get("problemId"), 10, 64)
	if err != nil {
		return domain.DraftIdentity{}, "", false
	}
	sectionID, err := strconv.ParseInt(q.Get("sectionId"), 10, 64)
	if err != nil {
		return domain.DraftIdentity{}, "", false
	}
	language := q.Get("language")
	if language == "" {
		return domain.DraftIdentity{}, "", false
	}
	role := domain.Role(q.Get("role"))
	switch role {
	case domain.RoleStudent, domain.RoleTutor, domain.RoleAdmin, domain.RoleSuperAdmin:
	default:
		return domain.DraftIdentity{}, "", false
	}
	return domain.DraftIdentity{ProblemID: problemID, SectionID: sectionID, Language: language}, role, true
}

func policyMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCode):
		return "Cannot submit empty code."
	case errors.Is(err, domain.ErrDeadlinePassed):
		return "The deadline has passed; submissions are closed."
	case errors.Is(err, domain.ErrAssignmentInactive):
		return "This assignment has been deactivated."
	case errors.Is(err, domain.ErrSubmissionInFlight):
		return "A submission is already being judged."
	}
	return err.Error()
}
