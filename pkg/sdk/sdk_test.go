package sdk_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridgame/boardlink/pkg/sdk"
)

func newStubBoard(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", sdk.CTJSON)
		_, _ = w.Write([]byte(`{
			"instance_id": "abc-123",
			"board": {"name": "bench-board", "type": "solar"},
			"state": "registered",
			"game_active": true
		}`))
	})
	mux.HandleFunc("GET /coefficients", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", sdk.CTJSON)
		_, _ = w.Write([]byte(`{
			"game_active": true,
			"coefficients": {
				"production": [{"source_id": 10, "coefficient": 0.5}],
				"consumption": [{"building_id": 5, "consumption": 0.2}]
			}
		}`))
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", sdk.CTJSON)
		_, _ = w.Write([]byte(`{"status": "ok", "instance_id": "abc-123"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestStatus(t *testing.T) {
	t.Parallel()
	srv := newStubBoard(t)
	s := sdk.NewSDK(sdk.Config{BoardURL: srv.URL})

	status, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, "abc-123", status.InstanceID)
	assert.Equal(t, "bench-board", status.Board.Name)
	assert.Equal(t, "registered", status.State)
	assert.True(t, status.GameActive)
}

func TestCoefficients(t *testing.T) {
	t.Parallel()
	srv := newStubBoard(t)
	s := sdk.NewSDK(sdk.Config{BoardURL: srv.URL})

	coeffs, err := s.Coefficients()
	require.NoError(t, err)
	assert.True(t, coeffs.GameActive)
	require.Len(t, coeffs.Coefficients.Production, 1)
	assert.Equal(t, uint8(10), coeffs.Coefficients.Production[0].SourceID)
	assert.InDelta(t, 0.5, coeffs.Coefficients.Production[0].Coefficient, 1e-9)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newStubBoard(t)
	s := sdk.NewSDK(sdk.Config{BoardURL: srv.URL})

	health, err := s.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestUnexpectedStatusCode(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	s := sdk.NewSDK(sdk.Config{BoardURL: srv.URL})

	_, err := s.Status()
	assert.ErrorContains(t, err, "unexpected response code: 503")
}
