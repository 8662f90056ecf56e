package handler

import (
	"github.com/gin-gonic/gin"

	appErr "github.com/evonota/evonota/internal/pkg/errors"
	"github.com/evonota/evonota/internal/pkg/response"
	"github.com/evonota/evonota/internal/service"
)

type PatientHandler struct {
	patients *service.PatientService
}

func NewPatientHandler(patients *service.PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

type createPatientRequest struct {
	OrgID     string `json:"org_id"`
	PatientID string `json:"patient_id"`
	FullName  string `json:"full_name"`
	Age       int    `json:"age"`
}

func (h *PatientHandler) Create(c *gin.Context) {
	var body createPatientRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, appErr.Wrapf(appErr.ErrInvalid, "decode body"))
		return
	}
	patient, err := h.patients.Create(c.Request.Context(), body.OrgID, getDoctorUID(c), body.PatientID, body.FullName, body.Age)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, patient)
}

func (h *PatientHandler) Get(c *gin.Context) {
	orgID := c.Query("org_id")
	patientID := c.Param("id")
	if orgID == "" || patientID == "" {
		handleError(c, appErr.Wrapf(appErr.ErrInvalid, "org_id and patient id are required"))
		return
	}
	patient, err := h.patients.Get(c.Request.Context(), orgID, getDoctorUID(c), patientID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, patient)
}
