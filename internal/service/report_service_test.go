package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evonota/evonota/internal/docstore"
	"github.com/evonota/evonota/internal/model"
	appErr "github.com/evonota/evonota/internal/pkg/errors"
)

type failingObjects struct{}

func (failingObjects) Save(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	return "", fmt.Errorf("bucket unreachable")
}

func (failingObjects) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	return nil, appErr.ErrNotFound
}

func seedReportData(t *testing.T, docs docstore.Store) {
	t.Helper()
	ctx := context.Background()
	scope := testScope()
	require.NoError(t, docs.CreateDoctor(ctx, &model.Doctor{UID: scope.DoctorUID, OrgID: scope.OrgID, Email: "doc@example.com", Name: "Dra. Perez"}))
	require.NoError(t, docs.CreatePatient(ctx, &model.Patient{OrgID: scope.OrgID, DoctorUID: scope.DoctorUID, PatientID: scope.PatientID, FullName: "Juan Lopez", Age: 41}))
	require.NoError(t, docs.PutNote(ctx, &model.Note{
		NoteID: "note1", OrgID: scope.OrgID, DoctorUID: scope.DoctorUID,
		PatientID: scope.PatientID, SessionID: scope.SessionID,
		Type: model.NoteTypeImage, Source: model.NoteSourceUpload,
		Text:     "El paciente refiere dolor de cabeza.",
		Emotions: model.EmotionMap{"estres": {Percentage: 80, Entities: []string{"trabajo"}}},
		Status:   model.StatusPersisted, CreatedAt: 100,
	}))
	require.NoError(t, docs.PutNote(ctx, &model.Note{
		NoteID: "note2", OrgID: scope.OrgID, DoctorUID: scope.DoctorUID,
		PatientID: scope.PatientID, SessionID: scope.SessionID,
		Type: model.NoteTypeText, Source: model.NoteSourceFinal,
		Text:     "Se indica reposo y seguimiento.",
		Emotions: model.EmotionMap{"estres": {Percentage: 40, Entities: []string{"insomnio"}}, "calma": {Percentage: 30, Entities: []string{}}},
		Status:   model.StatusPersisted, CreatedAt: 200,
	}))
}

func TestGenerateSessionReport(t *testing.T) {
	docs := docstore.NewMemory()
	seedReportData(t, docs)
	var events []string
	svc := NewReportService(docs, &recordingObjects{events: &events})
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }

	artifact, err := svc.GenerateSessionReport(context.Background(), testScope())
	require.NoError(t, err)

	html := string(artifact.Content)
	require.Contains(t, html, "Juan Lopez")
	require.Contains(t, html, "Dra. Perez")
	require.Contains(t, html, "El paciente refiere dolor de cabeza.")
	require.Contains(t, html, "Se indica reposo y seguimiento.")
	require.Contains(t, html, "estres")

	sum := sha256.Sum256(artifact.Content)
	require.Equal(t, hex.EncodeToString(sum[:]), artifact.Hash)
	require.Equal(t, "evolution_note_ses1.html", artifact.Filename)
	require.True(t, strings.HasPrefix(artifact.Locator, "local://"))
	require.Contains(t, artifact.Locator, "derived/evolution/evolution_note_ses1.html")

	require.Len(t, events, 1)
}

func TestGenerateSessionReport_UnknownNamesFallBack(t *testing.T) {
	docs := docstore.NewMemory()
	scope := testScope()
	require.NoError(t, docs.PutNote(context.Background(), &model.Note{
		NoteID: "note1", OrgID: scope.OrgID, DoctorUID: scope.DoctorUID,
		PatientID: scope.PatientID, SessionID: scope.SessionID,
		Type: model.NoteTypeText, Text: "nota", Status: model.StatusPersisted,
	}))
	var events []string
	svc := NewReportService(docs, &recordingObjects{events: &events})

	artifact, err := svc.GenerateSessionReport(context.Background(), scope)
	require.NoError(t, err)
	require.Contains(t, string(artifact.Content), "N/A")
}

func TestGenerateSessionReport_NoNotes(t *testing.T) {
	svc := NewReportService(docstore.NewMemory(), failingObjects{})
	_, err := svc.GenerateSessionReport(context.Background(), testScope())
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestGenerateSessionReport_StorageFailureIsFatal(t *testing.T) {
	docs := docstore.NewMemory()
	seedReportData(t, docs)
	svc := NewReportService(docs, failingObjects{})

	_, err := svc.GenerateSessionReport(context.Background(), testScope())
	require.Error(t, err)
	require.Equal(t, "filestore", appErr.StageOf(err))
}

func TestAggregateEmotions(t *testing.T) {
	notes := []model.Note{
		{Emotions: model.EmotionMap{"estres": {Percentage: 80, Entities: []string{"trabajo"}}}},
		{Emotions: model.EmotionMap{"estres": {Percentage: 40, Entities: []string{"insomnio", "trabajo"}}, "calma": {Percentage: 30}}},
	}
	rows := aggregateEmotions(notes)
	require.Len(t, rows, 2)
	require.Equal(t, "estres", rows[0].name)
	require.Equal(t, 60.0, rows[0].percentage)
	require.Equal(t, []string{"insomnio", "trabajo"}, rows[0].entities)
	require.Equal(t, "calma", rows[1].name)
}
