package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/evonota/evonota/internal/docstore"
	"github.com/evonota/evonota/internal/extract"
	"github.com/evonota/evonota/internal/filestore"
	"github.com/evonota/evonota/internal/metrics"
	"github.com/evonota/evonota/internal/model"
	"github.com/evonota/evonota/internal/pkg/jwt"
	"github.com/evonota/evonota/internal/service"
)

type stubExtractor struct {
	kind string
	text string
}

func (s *stubExtractor) Kind() string { return s.kind }

func (s *stubExtractor) Extract(ctx context.Context, in extract.Input) (*extract.Result, error) {
	return &extract.Result{Text: s.text, RawLocator: "local://raw/stub"}, nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, text string) (model.EmotionMap, error) {
	return model.EmotionMap{"estres": {Percentage: 80, Entities: []string{"trabajo"}}}, nil
}

var testSecret = []byte("test-secret")

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docs := docstore.NewMemory()
	objects, err := filestore.New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	orchestrator := service.NewOrchestrator(
		docs, objects,
		&stubExtractor{kind: extract.KindOCR, text: "texto extraido"},
		&stubExtractor{kind: extract.KindTranscription, text: "texto transcrito"},
		stubAnalyzer{}, nil,
	)
	deps := RouterDeps{
		Auth:        NewAuthHandler(service.NewAuthService(docs, testSecret, time.Hour), true),
		Orchestrate: NewOrchestrateHandler(orchestrator),
		Reports:     NewReportHandler(service.NewReportService(docs, objects)),
		Patients:    NewPatientHandler(service.NewPatientService(docs)),
		Metrics:     metrics.NewPipeline(),
		JWTSecret:   testSecret,
	}
	engine := gin.New()
	RegisterRoutes(engine.Group("/"), deps)
	return engine
}

func authHeader(t *testing.T) string {
	t.Helper()
	token, err := jwt.GenerateToken("doc1", "doc@example.com", "Dra. Perez", testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func scopeFields() map[string]string {
	return map[string]string{
		"org_id":     "org1",
		"patient_id": "pat1",
		"session_id": "ses1",
	}
}

func TestRouter_HealthIsPublic(t *testing.T) {
	router := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ok")
}

func TestRouter_PipelineRequiresAuth(t *testing.T) {
	router := newTestRouter(t)
	body, contentType := multipartBody(t, scopeFields(), "photo.jpg", []byte("fake"))
	req := httptest.NewRequest("POST", "/orquestar_foto", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.NotContains(t, w.Body.String(), "note_id")
	require.NotContains(t, w.Body.String(), "texto extraido")
}

func TestRouter_PhotoPipeline(t *testing.T) {
	router := newTestRouter(t)
	fields := scopeFields()
	fields["analyze_now"] = "true"
	body, contentType := multipartBody(t, fields, "photo.jpg", []byte("fake-image"))
	req := httptest.NewRequest("POST", "/orquestar_foto", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	response := w.Body.String()
	require.Contains(t, response, "note_id")
	require.Contains(t, response, "texto extraido")
	require.Contains(t, response, "estres")
	require.Contains(t, response, model.StatusPersisted)
}

func TestRouter_PhotoPipeline_Pending(t *testing.T) {
	router := newTestRouter(t)
	body, contentType := multipartBody(t, scopeFields(), "photo.jpg", []byte("fake-image"))
	req := httptest.NewRequest("POST", "/orquestar_foto", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Contains(t, w.Body.String(), model.StatusReturnedPending)
}

func TestRouter_RejectsEmptyUpload(t *testing.T) {
	router := newTestRouter(t)
	body, contentType := multipartBody(t, scopeFields(), "photo.jpg", nil)
	req := httptest.NewRequest("POST", "/orquestar_foto", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.NotContains(t, w.Body.String(), "note_id")
	require.Contains(t, w.Body.String(), "empty input")
}

func TestRouter_AudioPipeline(t *testing.T) {
	router := newTestRouter(t)
	fields := scopeFields()
	fields["analyze_now"] = "1"
	body, contentType := multipartBody(t, fields, "consulta.mp3", []byte("fake-audio"))
	req := httptest.NewRequest("POST", "/orquestar_audio", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Contains(t, w.Body.String(), "transcripcion")
	require.Contains(t, w.Body.String(), "texto transcrito")
}

func TestRouter_SaveNoteAndReport(t *testing.T) {
	router := newTestRouter(t)

	payload, err := json.Marshal(map[string]string{
		"org_id":     "org1",
		"patient_id": "pat1",
		"session_id": "ses1",
		"texto":      "nota final revisada",
	})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/guardar_nota", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authHeader(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Contains(t, w.Body.String(), "note_id")
	require.Contains(t, w.Body.String(), model.StatusPersisted)

	reportPayload, err := json.Marshal(map[string]string{
		"org_id":     "org1",
		"patient_id": "pat1",
		"session_id": "ses1",
	})
	require.NoError(t, err)
	reportReq := httptest.NewRequest("POST", "/generar_reporte_pdf", bytes.NewReader(reportPayload))
	reportReq.Header.Set("Content-Type", "application/json")
	reportReq.Header.Set("Authorization", authHeader(t))

	reportRec := httptest.NewRecorder()
	router.ServeHTTP(reportRec, reportReq)
	require.Equal(t, http.StatusOK, reportRec.Code)
	require.Contains(t, reportRec.Header().Get("Content-Disposition"), "evolution_note_ses1.html")
	require.NotEmpty(t, reportRec.Header().Get("X-Report-Hash"))
	require.Contains(t, reportRec.Body.String(), "nota final revisada")
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
