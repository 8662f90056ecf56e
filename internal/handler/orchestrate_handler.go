package handler

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evonota/evonota/internal/model"
	appErr "github.com/evonota/evonota/internal/pkg/errors"
	"github.com/evonota/evonota/internal/pkg/response"
	"github.com/evonota/evonota/internal/service"
)

// 32MB cap on uploaded inputs, matching the largest clinical photo and
// consult-length audio we accept.
const maxUploadBytes = 32 << 20

type OrchestrateHandler struct {
	orchestrator *service.Orchestrator
}

func NewOrchestrateHandler(orchestrator *service.Orchestrator) *OrchestrateHandler {
	return &OrchestrateHandler{orchestrator: orchestrator}
}

// Photo runs the image pipeline: upload or locator in, extracted text
// out, optionally analyzed and stored in the same call.
func (h *OrchestrateHandler) Photo(c *gin.Context) {
	req, err := h.parsePipelineRequest(c)
	if err != nil {
		handleError(c, err)
		return
	}
	result, err := h.orchestrator.RunImagePipeline(c.Request.Context(), *req)
	if err != nil {
		handleError(c, err)
		return
	}
	note := result.Note
	response.Success(c, gin.H{
		"note_id": note.NoteID,
		"ocr": gin.H{
			"texto":      note.Text,
			"imagen_gcs": note.SourceLocator,
		},
		"analisis":        emotionsPayload(note),
		"status_pipeline": note.Status,
	})
}

func (h *OrchestrateHandler) Audio(c *gin.Context) {
	req, err := h.parsePipelineRequest(c)
	if err != nil {
		handleError(c, err)
		return
	}
	result, err := h.orchestrator.RunAudioPipeline(c.Request.Context(), *req)
	if err != nil {
		handleError(c, err)
		return
	}
	note := result.Note
	response.Success(c, gin.H{
		"note_id": note.NoteID,
		"transcripcion": gin.H{
			"texto":     note.Text,
			"audio_gcs": note.SourceLocator,
		},
		"analisis":        emotionsPayload(note),
		"status_pipeline": note.Status,
	})
}

type saveNoteRequest struct {
	OrgID     string `json:"org_id"`
	PatientID string `json:"patient_id"`
	SessionID string `json:"session_id"`
	NoteID    string `json:"note_id"`
	Text      string `json:"texto"`
}

// SaveNote analyzes reviewed text and persists the note. This resumes a
// pipeline that returned pending, or records a purely textual note.
func (h *OrchestrateHandler) SaveNote(c *gin.Context) {
	var body saveNoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, appErr.Wrapf(appErr.ErrInvalid, "decode body"))
		return
	}
	scope := model.Scope{
		OrgID:     body.OrgID,
		DoctorUID: getDoctorUID(c),
		PatientID: body.PatientID,
		SessionID: body.SessionID,
	}
	result, err := h.orchestrator.FinalizeNote(c.Request.Context(), service.FinalizeRequest{
		Scope:  scope,
		NoteID: body.NoteID,
		Text:   body.Text,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	note := result.Note
	response.Success(c, gin.H{
		"note_id":         note.NoteID,
		"analisis":        emotionsPayload(note),
		"status_pipeline": note.Status,
	})
}

func (h *OrchestrateHandler) parsePipelineRequest(c *gin.Context) (*service.PipelineRequest, error) {
	scope := model.Scope{
		OrgID:     c.PostForm("org_id"),
		DoctorUID: getDoctorUID(c),
		PatientID: c.PostForm("patient_id"),
		SessionID: c.PostForm("session_id"),
	}
	req := &service.PipelineRequest{
		Scope:      scope,
		Locator:    strings.TrimSpace(c.PostForm("gcs_uri")),
		AnalyzeNow: isTruthy(c.PostForm("analyze_now")),
	}
	fileHeader, err := c.FormFile("file")
	if err == nil {
		if fileHeader.Size > maxUploadBytes {
			return nil, appErr.Wrapf(appErr.ErrInvalid, "file exceeds %d bytes", maxUploadBytes)
		}
		opened, err := fileHeader.Open()
		if err != nil {
			return nil, appErr.Wrapf(appErr.ErrInvalid, "open upload")
		}
		defer opened.Close()
		content, err := io.ReadAll(io.LimitReader(opened, maxUploadBytes+1))
		if err != nil {
			return nil, appErr.Wrapf(appErr.ErrInvalid, "read upload")
		}
		if len(content) == 0 {
			return nil, appErr.ErrEmptyInput
		}
		if len(content) > maxUploadBytes {
			return nil, appErr.Wrapf(appErr.ErrInvalid, "file exceeds %d bytes", maxUploadBytes)
		}
		req.Content = content
		req.Filename = fileHeader.Filename
		req.MIMEHint = fileHeader.Header.Get("Content-Type")
	}
	return req, nil
}

// emotionsPayload keeps "analisis" an object even before analysis ran.
func emotionsPayload(note *model.Note) model.EmotionMap {
	if note.Emotions == nil {
		return model.EmotionMap{}
	}
	return note.Emotions
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
