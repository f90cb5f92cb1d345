package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"edinsights/internal/agents"
	"edinsights/internal/attachments"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

// maxRequestBytes bounds the whole request body. Individual attachment caps
// are enforced by the attachments service; this is the outer transport limit.
const maxRequestBytes = 64 << 20

// Orchestrator is the slice of the agent layer the handler needs.
type Orchestrator interface {
	Handle(ctx context.Context, req agents.ChatRequest) (*agents.ChatResult, error)
}

// Handler serves POST /api/chat.
type Handler struct {
	orchestrator Orchestrator
	attachments  *attachments.Service
	log          *logger.Logger
}

// New creates the chat handler.
func New(orchestrator Orchestrator, atts *attachments.Service, log *logger.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		attachments:  atts,
		log:          log.With("component", "chat_handler"),
	}
}

type chatRequestBody struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type chatResponseBody struct {
	SessionID string      `json:"session_id"`
	Response  interface{} `json:"response"`
	Usage     usageBody   `json:"usage"`
}

type usageBody struct {
	Tokens     int     `json:"tokens"`
	CostUSD    float64 `json:"cost_usd"`
	DurationMs int64   `json:"duration_ms"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeHTTP handles one chat turn. Accepts JSON or, when attachments ride
// along, multipart form data. Attachments are validated before the
// orchestrator runs so an oversized file never triggers a query or a model
// call.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	req, uploads, err := h.parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if len(uploads) > 0 {
		validated, err := h.attachments.Validate(uploads)
		if err != nil {
			h.writeError(w, err)
			return
		}
		req.Attachments = attachments.ToParts(validated)
	}

	result, err := h.orchestrator.Handle(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, chatResponseBody{
		SessionID: result.SessionID,
		Response:  result.Payload,
		Usage: usageBody{
			Tokens:     result.TokensUsed,
			CostUSD:    result.CostUSD,
			DurationMs: result.Duration.Milliseconds(),
		},
	})
}

func (h *Handler) parseRequest(r *http.Request) (agents.ChatRequest, []attachments.Upload, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.parseMultipart(r)
	}

	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return agents.ChatRequest{}, nil, errors.NewValidationError("body", "invalid JSON body", err.Error())
	}
	return agents.ChatRequest{SessionID: body.SessionID, Question: strings.TrimSpace(body.Message)}, nil, nil
}

func (h *Handler) parseMultipart(r *http.Request) (agents.ChatRequest, []attachments.Upload, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return agents.ChatRequest{}, nil, errors.NewValidationError("body", "invalid multipart body", err.Error())
	}

	req := agents.ChatRequest{
		SessionID: r.FormValue("session_id"),
		Question:  strings.TrimSpace(r.FormValue("message")),
	}

	var uploads []attachments.Upload
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["attachments"] {
			f, err := fh.Open()
			if err != nil {
				return agents.ChatRequest{}, nil, errors.NewValidationError("attachments", "attachment is unreadable", fh.Filename)
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return agents.ChatRequest{}, nil, errors.NewValidationError("attachments", "attachment is unreadable", fh.Filename)
			}
			uploads = append(uploads, attachments.Upload{Filename: fh.Filename, Data: data})
		}
	}

	return req, uploads, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("Chat request failed: %v", err)
	} else {
		h.log.Warnf("Chat request rejected: %v", err)
	}

	h.writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: publicMessage(err, code)}})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

// statusForError maps the error taxonomy onto HTTP statuses. Each failure
// class keeps a distinct status so clients can tell a bad request from a
// degraded backend.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, errors.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, errors.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, errors.ErrDataUnavailable):
		return http.StatusBadGateway, "data_unavailable"
	case errors.Is(err, errors.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// publicMessage hides internals for 5xx responses while keeping validation
// feedback specific.
func publicMessage(err error, code string) string {
	switch code {
	case "validation_error", "insufficient_data":
		return err.Error()
	case "data_unavailable":
		return "The education data warehouse is currently unavailable."
	case "model_unavailable":
		return "The language model is currently unavailable. Please retry shortly."
	default:
		return "An internal error occurred."
	}
}
