package analyze

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	errs "github.com/evonota/evonota/internal/pkg/errors"
)

func newRemoteAnalyzer(t *testing.T, baseURL string) Analyzer {
	t.Helper()
	a, err := New("remote", map[string]interface{}{"base_url": baseURL}, Deps{Client: http.DefaultClient})
	require.NoError(t, err)
	return a
}

func TestRemoteAnalyzer_Envelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "el paciente reporta insomnio", body["texto"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resultado": {"estres": {"percentage": "75", "entities": ["insomnio"]}}}`))
	}))
	defer server.Close()

	emotions, err := newRemoteAnalyzer(t, server.URL).Analyze(context.Background(), "el paciente reporta insomnio")
	require.NoError(t, err)
	require.Equal(t, 75.0, emotions["estres"].Percentage)
	require.Equal(t, []string{"insomnio"}, emotions["estres"].Entities)
}

func TestRemoteAnalyzer_TopLevelMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"calma": {"porcentaje": 60, "entidades": []}}`))
	}))
	defer server.Close()

	emotions, err := newRemoteAnalyzer(t, server.URL).Analyze(context.Background(), "texto")
	require.NoError(t, err)
	require.Equal(t, 60.0, emotions["calma"].Percentage)
}

func TestRemoteAnalyzer_EmptyTextShortCircuits(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	emotions, err := newRemoteAnalyzer(t, server.URL).Analyze(context.Background(), "   ")
	require.NoError(t, err)
	require.Empty(t, emotions)
	require.NotNil(t, emotions)
	require.False(t, called)
}

func TestRemoteAnalyzer_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newRemoteAnalyzer(t, server.URL).Analyze(context.Background(), "texto")
	require.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
}
