package filestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evonota/evonota/internal/model"
)

func testLayoutScope() model.Scope {
	return model.Scope{OrgID: "org1", DoctorUID: "doc1", PatientID: "pat1", SessionID: "ses1"}
}

func TestRawKey(t *testing.T) {
	at := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	key := RawKey(testLayoutScope(), "note1", ".jpg", at)
	require.Equal(t, "org1/doc1/pat1/sessions/ses1/raw/note1_20250314_150926.jpg", key)
}

func TestRawKey_DefaultExtension(t *testing.T) {
	at := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	require.Equal(t, "org1/doc1/pat1/sessions/ses1/raw/note1_20250314_150926.bin",
		RawKey(testLayoutScope(), "note1", "", at))
	require.Equal(t, "org1/doc1/pat1/sessions/ses1/raw/note1_20250314_150926.png",
		RawKey(testLayoutScope(), "note1", "png", at))
}

func TestDerivedKey(t *testing.T) {
	at := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	key := DerivedKey(testLayoutScope(), KindAnalysis, "note1", at)
	require.Equal(t, "org1/doc1/pat1/sessions/ses1/derived/analisis/note1/analisis_20250314_150926.json", key)
}

func TestReportKey(t *testing.T) {
	key := ReportKey(testLayoutScope(), ".html")
	require.Equal(t, "org1/doc1/pat1/sessions/ses1/derived/evolution/evolution_note_ses1.html", key)
	require.Equal(t, key, ReportKey(testLayoutScope(), "html"))
}
