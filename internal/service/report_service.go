package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	rendererhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/evonota/evonota/internal/docstore"
	"github.com/evonota/evonota/internal/filestore"
	"github.com/evonota/evonota/internal/model"
	appErr "github.com/evonota/evonota/internal/pkg/errors"
)

// ReportService renders the evolution report for one session: every
// stored note plus an aggregate emotion table, rendered to HTML and
// saved next to the session's other derived artifacts.
type ReportService struct {
	docs    docstore.Store
	objects filestore.Store
	md      goldmark.Markdown
	now     func() time.Time
}

func NewReportService(docs docstore.Store, objects filestore.Store) *ReportService {
	return &ReportService{
		docs:    docs,
		objects: objects,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(rendererhtml.WithUnsafe()),
		),
		now: time.Now,
	}
}

// ReportArtifact is the rendered report plus where it was stored.
type ReportArtifact struct {
	Filename    string
	ContentType string
	Content     []byte
	Hash        string
	Locator     string
}

func (s *ReportService) GenerateSessionReport(ctx context.Context, scope model.Scope) (*ReportArtifact, error) {
	if !scope.Complete() {
		return nil, appErr.Wrapf(appErr.ErrInvalid, "incomplete scope")
	}
	notes, err := s.docs.ListSessionNotes(ctx, scope)
	if err != nil {
		return nil, appErr.AtStage("docstore", err)
	}
	if len(notes) == 0 {
		return nil, appErr.Wrapf(appErr.ErrNotFound, "no notes for session %s", scope.SessionID)
	}

	doctorName := "N/A"
	if doctor, err := s.docs.GetDoctor(ctx, scope.OrgID, scope.DoctorUID); err == nil && doctor.Name != "" {
		doctorName = doctor.Name
	}
	patientName := "N/A"
	if patient, err := s.docs.GetPatient(ctx, scope.OrgID, scope.DoctorUID, scope.PatientID); err == nil && patient.FullName != "" {
		patientName = patient.FullName
	}

	markdown := buildReportMarkdown(scope, doctorName, patientName, notes, s.now())
	var out bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &out); err != nil {
		return nil, appErr.Wrapf(err, "render report")
	}
	content := out.Bytes()
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	// The report endpoint exists to produce a durable artifact, so a
	// storage failure here is fatal, unlike mid-pipeline writes.
	key := filestore.ReportKey(scope, ".html")
	locator, err := s.objects.Save(ctx, key, content, "text/html; charset=utf-8")
	if err != nil {
		return nil, appErr.AtStage("filestore", appErr.Wrapf(err, "store report"))
	}

	report := model.SessionReport{
		ReportHash:    hash,
		ReportLocator: locator,
		ReportedAt:    s.now().Unix(),
	}
	if err := s.docs.UpdateSessionReport(ctx, scope, report); err != nil {
		logutil.GetLogger(ctx).Warn("session report record update failed",
			zap.String("session_id", scope.SessionID),
			zap.Error(err),
		)
	}

	return &ReportArtifact{
		Filename:    fmt.Sprintf("evolution_note_%s.html", scope.SessionID),
		ContentType: "text/html; charset=utf-8",
		Content:     content,
		Hash:        hash,
		Locator:     locator,
	}, nil
}

func buildReportMarkdown(scope model.Scope, doctorName, patientName string, notes []model.Note, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Nota de Evolución\n\n")
	fmt.Fprintf(&b, "- **Paciente:** %s\n", patientName)
	fmt.Fprintf(&b, "- **Médico:** %s\n", doctorName)
	fmt.Fprintf(&b, "- **Sesión:** %s\n", scope.SessionID)
	fmt.Fprintf(&b, "- **Fecha:** %s\n\n", now.Format("2006-01-02 15:04"))

	fmt.Fprintf(&b, "## Notas\n\n")
	for i, note := range notes {
		fmt.Fprintf(&b, "### Nota %d (%s)\n\n", i+1, note.Type)
		text := strings.TrimSpace(note.Text)
		if text == "" {
			text = "_sin texto_"
		}
		fmt.Fprintf(&b, "%s\n\n", text)
	}

	aggregate := aggregateEmotions(notes)
	if len(aggregate) > 0 {
		fmt.Fprintf(&b, "## Análisis Emocional\n\n")
		fmt.Fprintf(&b, "| Emoción | Intensidad | Entidades |\n|---|---|---|\n")
		for _, row := range aggregate {
			fmt.Fprintf(&b, "| %s | %.1f%% | %s |\n", row.name, row.percentage, strings.Join(row.entities, ", "))
		}
		fmt.Fprintf(&b, "\n")
	}
	return b.String()
}

type emotionRow struct {
	name       string
	percentage float64
	entities   []string
}

// aggregateEmotions averages each emotion's intensity across the notes
// that scored it and unions the entities, strongest emotion first.
func aggregateEmotions(notes []model.Note) []emotionRow {
	totals := map[string]float64{}
	counts := map[string]int{}
	entities := map[string]map[string]struct{}{}
	for _, note := range notes {
		for name, score := range note.Emotions {
			totals[name] += score.Percentage
			counts[name]++
			if entities[name] == nil {
				entities[name] = map[string]struct{}{}
			}
			for _, entity := range score.Entities {
				entities[name][entity] = struct{}{}
			}
		}
	}
	rows := make([]emotionRow, 0, len(totals))
	for name, total := range totals {
		row := emotionRow{name: name, percentage: total / float64(counts[name])}
		for entity := range entities[name] {
			row.entities = append(row.entities, entity)
		}
		sort.Strings(row.entities)
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].percentage != rows[j].percentage {
			return rows[i].percentage > rows[j].percentage
		}
		return rows[i].name < rows[j].name
	})
	return rows
}
