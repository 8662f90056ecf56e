package model

// AuditEntry is one row of the pipeline audit trail: one entry per
// orchestrator invocation, recording the stage reached and the outcome.
type AuditEntry struct {
	NoteID    string   `json:"note_id" db:"note_id"`
	OrgID     string   `json:"org_id" db:"org_id"`
	DoctorUID string   `json:"doctor_uid" db:"doctor_uid"`
	PatientID string   `json:"patient_id" db:"patient_id"`
	SessionID string   `json:"session_id" db:"session_id"`
	NoteType  NoteType `json:"note_type" db:"note_type"`
	Stage     string   `json:"stage" db:"stage"`
	Outcome   string   `json:"outcome" db:"outcome"`
	Detail    string   `json:"detail" db:"detail"`
	ElapsedMS int64    `json:"elapsed_ms" db:"elapsed_ms"`
	CreatedAt int64    `json:"created_at" db:"created_at"`
}
