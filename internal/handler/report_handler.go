package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evonota/evonota/internal/model"
	appErr "github.com/evonota/evonota/internal/pkg/errors"
	"github.com/evonota/evonota/internal/service"
)

type ReportHandler struct {
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type reportRequest struct {
	OrgID     string `json:"org_id"`
	PatientID string `json:"patient_id"`
	SessionID string `json:"session_id"`
}

// Generate renders the session's evolution report and streams it back.
// The artifact is stored before the response is written.
func (h *ReportHandler) Generate(c *gin.Context) {
	var body reportRequest
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
	artifact, err := h.reports.GenerateSessionReport(c.Request.Context(), scope)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Header("X-Report-Hash", artifact.Hash)
	if artifact.Locator != "" {
		c.Header("X-Report-Locator", artifact.Locator)
	}
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}
