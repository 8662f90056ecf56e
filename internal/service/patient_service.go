package service

import (
	"context"
	"strings"
	"time"

	"github.com/evonota/evonota/internal/docstore"
	"github.com/evonota/evonota/internal/model"
	appErr "github.com/evonota/evonota/internal/pkg/errors"
)

type PatientService struct {
	docs docstore.Store
}

func NewPatientService(docs docstore.Store) *PatientService {
	return &PatientService{docs: docs}
}

func (s *PatientService) Create(ctx context.Context, orgID, doctorUID, patientID, fullName string, age int) (*model.Patient, error) {
	patientID = strings.TrimSpace(patientID)
	if orgID == "" || doctorUID == "" || patientID == "" {
		return nil, appErr.Wrapf(appErr.ErrInvalid, "org_id and patient_id are required")
	}
	patient := &model.Patient{
		OrgID:     orgID,
		DoctorUID: doctorUID,
		PatientID: patientID,
		FullName:  strings.TrimSpace(fullName),
		Age:       age,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.docs.CreatePatient(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *PatientService) Get(ctx context.Context, orgID, doctorUID, patientID string) (*model.Patient, error) {
	return s.docs.GetPatient(ctx, orgID, doctorUID, patientID)
}
