package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edinsights/internal/adapters/config"
	"edinsights/internal/agents"
	"edinsights/internal/attachments"
	"edinsights/internal/formatter"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

type stubOrchestrator struct {
	lastReq agents.ChatRequest
	result  *agents.ChatResult
	err     error
}

func (s *stubOrchestrator) Handle(_ context.Context, req agents.ChatRequest) (*agents.ChatResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestHandler(t *testing.T, orch *stubOrchestrator) *Handler {
	t.Helper()
	require.NoError(t, logger.Init("error", "test"))
	atts := attachments.NewService(config.AttachmentsConfig{
		MaxImageBytes:    4 * 1024 * 1024,
		MaxDocumentBytes: 10 * 1024 * 1024,
		MaxPerRequest:    5,
	}, logger.Get())
	return New(orch, atts, logger.Get())
}

func TestChatJSONRequest(t *testing.T) {
	orch := &stubOrchestrator{result: &agents.ChatResult{
		SessionID:  "sess-1",
		Payload:    &formatter.ResponsePayload{Summary: "Jefferson High leads with 92.5%."},
		TokensUsed: 1234,
		CostUSD:    0.0021,
		Duration:   1500 * time.Millisecond,
	}}
	h := newTestHandler(t, orch)

	body := `{"session_id":"sess-1","message":"Best graduation rates in Alameda county?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Best graduation rates in Alameda county?", orch.lastReq.Question)

	var resp chatResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, 1234, resp.Usage.Tokens)
	assert.Equal(t, int64(1500), resp.Usage.DurationMs)
}

func TestChatErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", errors.NewValidationError("message", "message text is required", ""), http.StatusBadRequest, "validation_error"},
		{"insufficient data", errors.Wrap(errors.ErrInsufficientData, "analysis"), http.StatusUnprocessableEntity, "insufficient_data"},
		{"data unavailable", errors.Wrap(errors.ErrDataUnavailable, "warehouse query"), http.StatusBadGateway, "data_unavailable"},
		{"model unavailable", errors.Wrap(errors.ErrModelUnavailable, "agent interpreter"), http.StatusServiceUnavailable, "model_unavailable"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubOrchestrator{err: tc.err})

			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var resp errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestChatInternalErrorHidesDetail(t *testing.T) {
	h := newTestHandler(t, &stubOrchestrator{err: errors.New("connection string with password")})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.NotContains(t, rec.Body.String(), "password")
}

func TestChatInvalidJSON(t *testing.T) {
	h := newTestHandler(t, &stubOrchestrator{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatMultipartWithAttachment(t *testing.T) {
	orch := &stubOrchestrator{result: &agents.ChatResult{
		SessionID: "sess-2",
		Payload:   &formatter.ResponsePayload{Summary: "ok"},
	}}
	h := newTestHandler(t, orch)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("message", "What does this chart show?"))
	fw, err := mw.CreateFormFile("attachments", "chart.png")
	require.NoError(t, err)
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0}, 64)...)
	_, err = fw.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, orch.lastReq.Attachments, 1)
	assert.Equal(t, "image/png", orch.lastReq.Attachments[0].InlineData.MIMEType)
}

func TestChatOversizedAttachmentRejectedBeforeOrchestrator(t *testing.T) {
	orch := &stubOrchestrator{result: &agents.ChatResult{SessionID: "x", Payload: &formatter.ResponsePayload{}}}
	h := newTestHandler(t, orch)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("message", "analyze this"))
	fw, err := mw.CreateFormFile("attachments", "huge.png")
	require.NoError(t, err)
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0}, 4*1024*1024)...)
	_, err = fw.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, orch.lastReq.Question, "orchestrator must not run for rejected attachments")
}
