package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/evonota/evonota/internal/analyze"
	"github.com/evonota/evonota/internal/docstore"
	"github.com/evonota/evonota/internal/extract"
	"github.com/evonota/evonota/internal/filestore"
	"github.com/evonota/evonota/internal/metrics"
	"github.com/evonota/evonota/internal/model"
	appErr "github.com/evonota/evonota/internal/pkg/errors"
)

// Orchestrator drives a note through extraction, analysis and
// persistence. Stages run strictly in order and a failed stage is never
// retried here; callers decide whether to resubmit. At most one note
// record write happens per invocation, and only after analysis produced
// a result.
type Orchestrator struct {
	docs       docstore.Store
	objects    filestore.Store
	ocr        extract.Extractor
	transcribe extract.Extractor
	analyzer   analyze.Analyzer
	metrics    *metrics.Pipeline

	now   func() time.Time
	newID func() string
}

func NewOrchestrator(docs docstore.Store, objects filestore.Store, ocr, transcribe extract.Extractor, analyzer analyze.Analyzer, m *metrics.Pipeline) *Orchestrator {
	return &Orchestrator{
		docs:       docs,
		objects:    objects,
		ocr:        ocr,
		transcribe: transcribe,
		analyzer:   analyzer,
		metrics:    m,
		now:        time.Now,
		newID:      newID,
	}
}

// PipelineRequest carries one input for the image or audio pipeline.
// Exactly one of Content or Locator is required; when both are present
// the bytes win and the locator is recorded as the source.
type PipelineRequest struct {
	Scope      model.Scope
	Content    []byte
	Locator    string
	Filename   string
	MIMEHint   string
	AnalyzeNow bool
}

// FinalizeRequest carries reviewed note text for analysis and storage.
// NoteID is optional; when empty a new identity is minted.
type FinalizeRequest struct {
	Scope  model.Scope
	NoteID string
	Text   string
}

// PipelineResult is what an invocation produced. Persisted reports
// whether the note record write succeeded; a false value with a non-nil
// Note means analysis succeeded but storage did not.
type PipelineResult struct {
	Note      *model.Note
	Persisted bool
}

func (o *Orchestrator) RunImagePipeline(ctx context.Context, req PipelineRequest) (*PipelineResult, error) {
	return o.run(ctx, model.NoteTypeImage, o.ocr, "ocr", req)
}

func (o *Orchestrator) RunAudioPipeline(ctx context.Context, req PipelineRequest) (*PipelineResult, error) {
	return o.run(ctx, model.NoteTypeAudio, o.transcribe, "transcription", req)
}

func (o *Orchestrator) run(ctx context.Context, noteType model.NoteType, extractor extract.Extractor, stage string, req PipelineRequest) (*PipelineResult, error) {
	if !req.Scope.Complete() {
		return nil, appErr.Wrapf(appErr.ErrInvalid, "incomplete scope")
	}
	if len(req.Content) == 0 && req.Locator == "" {
		return nil, appErr.ErrMissingInput
	}
	if extractor == nil {
		return nil, appErr.AtStage(stage, appErr.ErrUpstreamUnavailable)
	}

	started := o.now()
	note := &model.Note{
		NoteID:        o.newID(),
		OrgID:         req.Scope.OrgID,
		DoctorUID:     req.Scope.DoctorUID,
		PatientID:     req.Scope.PatientID,
		SessionID:     req.Scope.SessionID,
		Type:          noteType,
		Source:        model.NoteSourceUpload,
		SourceLocator: req.Locator,
		Status:        model.StatusStarted,
		CreatedAt:     started.Unix(),
	}
	if len(req.Content) == 0 {
		note.Source = model.NoteSourceReference
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("note_id", note.NoteID),
		zap.String("type", string(noteType)),
		zap.String("session_id", req.Scope.SessionID),
	)

	extracted, err := o.extractStage(ctx, extractor, stage, note, req)
	if err != nil {
		o.finishRun(ctx, note, stage, err, started)
		return nil, err
	}
	note.Text = extracted.Text
	if extracted.RawLocator != "" {
		note.SourceLocator = extracted.RawLocator
	}
	note.Status = model.StatusExtracted
	o.writeDerived(ctx, note, derivedKindFor(stage), extractionSnapshot(stage, note))

	if !req.AnalyzeNow {
		note.Status = model.StatusReturnedPending
		logger.Info("pipeline paused for review", zap.Int("text_len", len(note.Text)))
		o.finishRun(ctx, note, stage, nil, started)
		return &PipelineResult{Note: note}, nil
	}

	if err := o.analyzeStage(ctx, note); err != nil {
		o.finishRun(ctx, note, "analysis", err, started)
		return nil, err
	}
	o.writeDerived(ctx, note, filestore.KindAnalysis, note.Emotions)

	persisted := o.persistStage(ctx, note, logger)
	o.finishRun(ctx, note, "docstore", nil, started)
	return &PipelineResult{Note: note, Persisted: persisted}, nil
}

// FinalizeNote analyzes reviewed text and stores the resulting note.
// This is the resume path for a pipeline that stopped at review, and
// the only path for purely textual notes.
func (o *Orchestrator) FinalizeNote(ctx context.Context, req FinalizeRequest) (*PipelineResult, error) {
	if !req.Scope.Complete() {
		return nil, appErr.Wrapf(appErr.ErrInvalid, "incomplete scope")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, appErr.ErrEmptyInput
	}

	started := o.now()
	note := &model.Note{
		NoteID:    req.NoteID,
		OrgID:     req.Scope.OrgID,
		DoctorUID: req.Scope.DoctorUID,
		PatientID: req.Scope.PatientID,
		SessionID: req.Scope.SessionID,
		Type:      model.NoteTypeText,
		Source:    model.NoteSourceFinal,
		Text:      req.Text,
		Status:    model.StatusStarted,
		CreatedAt: started.Unix(),
	}
	if note.NoteID == "" {
		note.NoteID = o.newID()
	} else if prior, err := o.docs.GetNote(ctx, req.Scope, note.NoteID); err == nil {
		note.Type = prior.Type
		note.Source = prior.Source
		note.SourceLocator = prior.SourceLocator
		note.CreatedAt = prior.CreatedAt
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("note_id", note.NoteID),
		zap.String("session_id", req.Scope.SessionID),
	)

	if err := o.analyzeStage(ctx, note); err != nil {
		o.finishRun(ctx, note, "analysis", err, started)
		return nil, err
	}
	o.writeDerived(ctx, note, filestore.KindAnalysis, note.Emotions)

	persisted := o.persistStage(ctx, note, logger)
	o.finishRun(ctx, note, "docstore", nil, started)
	return &PipelineResult{Note: note, Persisted: persisted}, nil
}

func (o *Orchestrator) extractStage(ctx context.Context, extractor extract.Extractor, stage string, note *model.Note, req PipelineRequest) (*extract.Result, error) {
	start := o.now()
	result, err := extractor.Extract(ctx, extract.Input{
		Content:  req.Content,
		Locator:  req.Locator,
		Filename: req.Filename,
		MIMEHint: req.MIMEHint,
		Scope:    note.Scope(),
		NoteID:   note.NoteID,
	})
	o.metrics.ObserveStage(stage, o.now().Sub(start))
	if err != nil {
		return nil, appErr.AtStage(stage, err)
	}
	return result, nil
}

func (o *Orchestrator) analyzeStage(ctx context.Context, note *model.Note) error {
	start := o.now()
	emotions, err := o.analyzer.Analyze(ctx, note.Text)
	o.metrics.ObserveStage("analysis", o.now().Sub(start))
	if err != nil {
		return appErr.AtStage("analysis", err)
	}
	if emotions == nil {
		emotions = model.EmotionMap{}
	}
	note.Emotions = emotions
	note.Status = model.StatusAnalyzed
	return nil
}

// persistStage writes the single note record. Analysis already succeeded
// at this point, so a storage failure degrades the response instead of
// failing it.
func (o *Orchestrator) persistStage(ctx context.Context, note *model.Note, logger *zap.Logger) bool {
	note.ProcessedAt = o.now().Unix()
	note.Status = model.StatusPersisted
	start := o.now()
	err := o.docs.PutNote(ctx, note)
	o.metrics.ObserveStage("docstore", o.now().Sub(start))
	if err != nil {
		note.Status = model.StatusAnalyzed
		o.metrics.ObserveDocstoreWrite("error")
		logger.Warn("note record write failed, returning analysis anyway", zap.Error(err))
		return false
	}
	o.metrics.ObserveDocstoreWrite("ok")
	return true
}

// writeDerived snapshots one stage result as a JSON object. Best effort:
// a failure here never changes the pipeline outcome.
func (o *Orchestrator) writeDerived(ctx context.Context, note *model.Note, kind string, payload interface{}) {
	if o.objects == nil || payload == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	key := filestore.DerivedKey(note.Scope(), kind, note.NoteID, o.now())
	if _, err := o.objects.Save(ctx, key, data, "application/json"); err != nil {
		logutil.GetLogger(ctx).Warn("derived artifact write failed",
			zap.String("note_id", note.NoteID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

// finishRun records the audit row and run counter for one invocation.
func (o *Orchestrator) finishRun(ctx context.Context, note *model.Note, stage string, runErr error, started time.Time) {
	outcome := "ok"
	detail := ""
	if runErr != nil {
		outcome = "error"
		detail = runErr.Error()
		if s := appErr.StageOf(runErr); s != "" {
			stage = s
		}
	} else if note.Status == model.StatusReturnedPending {
		outcome = "returned_pending"
	}
	o.metrics.ObserveRun(string(note.Type), outcome)
	if o.docs == nil {
		return
	}
	entry := &model.AuditEntry{
		NoteID:    note.NoteID,
		OrgID:     note.OrgID,
		DoctorUID: note.DoctorUID,
		PatientID: note.PatientID,
		SessionID: note.SessionID,
		NoteType:  note.Type,
		Stage:     stage,
		Outcome:   outcome,
		Detail:    truncate(detail, 512),
		ElapsedMS: o.now().Sub(started).Milliseconds(),
		CreatedAt: o.now().Unix(),
	}
	if err := o.docs.AddAuditEntry(ctx, entry); err != nil {
		logutil.GetLogger(ctx).Warn("audit entry write failed", zap.Error(err))
	}
}

func derivedKindFor(stage string) string {
	if stage == "transcription" {
		return filestore.KindTranscription
	}
	return filestore.KindOCR
}

func extractionSnapshot(stage string, note *model.Note) interface{} {
	if stage == "transcription" {
		return map[string]string{
			"transcripcion": note.Text,
			"audio_gcs":     note.SourceLocator,
		}
	}
	return map[string]string{
		"texto":      note.Text,
		"imagen_gcs": note.SourceLocator,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
