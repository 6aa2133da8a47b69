package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dhima/proactive-scheduler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testTrigger() *models.Trigger {
	return &models.Trigger{
		ID:   "t1",
		Name: "morning briefing",
		Type: models.TriggerTypeCheckin,
		Spec: json.RawMessage(`{"kind":"daily_checkin","time":{"hour":9,"minute":0}}`),
	}
}

func TestRun_Success(t *testing.T) {
	var got runRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(runResponse{Output: "all clear", CostUSD: 0.02})
	}))
	defer srv.Close()

	r := NewHTTPRunner(srv.URL, zap.NewNop())
	result, err := r.Run(context.Background(), testTrigger())
	require.NoError(t, err)

	assert.Equal(t, "t1", got.TriggerID)
	assert.Equal(t, "morning briefing", got.TriggerName)

	assert.Equal(t, models.ResultStatusSuccess, result.Status)
	assert.Equal(t, "all clear", result.Output)
	assert.Equal(t, 0.02, result.CostUSD)
	assert.Equal(t, "t1", result.TriggerID)
}

func TestRun_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewHTTPRunner(srv.URL, zap.NewNop())
	_, err := r.Run(context.Background(), testTrigger())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestRun_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	r := NewHTTPRunner(srv.URL, zap.NewNop())
	_, err := r.Run(context.Background(), testTrigger())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestRun_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and
		// cancels r.Context() when the client disconnects; otherwise the
		// handler blocks forever and srv.Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	r := NewHTTPRunner(srv.URL, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, testTrigger())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRun_ConnectionRefused(t *testing.T) {
	r := NewHTTPRunner("http://127.0.0.1:1", zap.NewNop())
	_, err := r.Run(context.Background(), testTrigger())
	assert.ErrorIs(t, err, ErrNetworkFailure)
}
