package filestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/evonota/evonota/internal/model"
)

// Artifact kinds under derived/. "analisis" matches the layout the
// downstream consumers already read.
const (
	KindOCR           = "ocr"
	KindTranscription = "transcription"
	KindAnalysis      = "analisis"
)

const timestampLayout = "20060102_150405"

func Timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

func scopeRoot(s model.Scope) string {
	return fmt.Sprintf("%s/%s/%s/sessions/%s", s.OrgID, s.DoctorUID, s.PatientID, s.SessionID)
}

// RawKey is the location of an uploaded input object.
func RawKey(s model.Scope, noteID, ext string, t time.Time) string {
	if ext == "" {
		ext = ".bin"
	} else if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/raw/%s_%s%s", scopeRoot(s), noteID, Timestamp(t), ext)
}

// DerivedKey is the location of a JSON result snapshot for one pipeline stage.
func DerivedKey(s model.Scope, kind, noteID string, t time.Time) string {
	return fmt.Sprintf("%s/derived/%s/%s/%s_%s.json", scopeRoot(s), kind, noteID, kind, Timestamp(t))
}

// ReportKey is the location of the rendered session report artifact.
// There is one per session; re-rendering overwrites it.
func ReportKey(s model.Scope, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/derived/evolution/evolution_note_%s%s", scopeRoot(s), s.SessionID, ext)
}
