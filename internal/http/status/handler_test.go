package status_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gridport/internal/http/status"
	"github.com/MrJamesThe3rd/gridport/internal/store"
)

type stubRuns struct {
	latest *store.Run
	runs   []*store.Run
	err    error
}

func (s *stubRuns) LatestRun(context.Context, string) (*store.Run, error) {
	return s.latest, s.err
}

func (s *stubRuns) ListRuns(context.Context, int) ([]*store.Run, error) {
	return s.runs, s.err
}

func newServer(runs status.Runs) *httptest.Server {
	r := chi.NewRouter()
	status.NewHandler(runs).Routes(r)

	return httptest.NewServer(r)
}

func TestLatest(t *testing.T) {
	run := &store.Run{
		ID:        uuid.New(),
		FileName:  "sales",
		Status:    store.StatusPartialFailure,
		Detail:    "Sheet1/bad: extract table_not_found",
		StartedAt: time.Now().UTC(),
	}

	srv := newServer(&stubRuns{latest: run})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sales")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestLatest_NotFound(t *testing.T) {
	srv := newServer(&stubRuns{err: store.ErrRunNotFound})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestList(t *testing.T) {
	srv := newServer(&stubRuns{runs: []*store.Run{
		{ID: uuid.New(), FileName: "a", Status: store.StatusSuccess},
		{ID: uuid.New(), FileName: "b", Status: store.StatusFailure},
	}})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
