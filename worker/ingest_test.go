package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snow-ghost/sleuth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestServer(t *testing.T, h *harness) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewIngestor(h.orch).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postQuestion(t *testing.T, srv *httptest.Server, body string) (int, submitResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/questions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out submitResponse
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestIngestor_Submit(t *testing.T) {
	h := newHarness(t, nil)
	srv := newIngestServer(t, h)

	status, out := postQuestion(t, srv, `{"question":"Is Tokyo larger than Paris?"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, 1.0, out.Score)

	q := h.getQuestion(t, out.ID)
	require.NoError(t, h.store.UpdateQuestionStatus(h.ctx, q.ID, core.QuestionOpen, core.QuestionSolved))

	status, out = postQuestion(t, srv, `{"question":"Is Tokyo larger than Paris?"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 1.0, out.Redundancy)
	assert.Contains(t, out.Error, "not novel")

	status, out = postQuestion(t, srv, `{"question":"Is Tokyo larger than Paris?","force":true}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, out.ID)

	status, _ = postQuestion(t, srv, `{"question":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = postQuestion(t, srv, `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	big := `{"question":"` + strings.Repeat("a", maxSubmitBytes) + `?"}`
	status, _ = postQuestion(t, srv, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)

	resp, err := http.Get(srv.URL + "/questions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestIngestor_Status(t *testing.T) {
	h := newHarness(t, nil)
	h.question(t, "Is Rome older than Athens?")
	srv := newIngestServer(t, h)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, 1, s.Questions[core.QuestionOpen])
}
