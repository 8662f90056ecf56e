package model

type Doctor struct {
	UID          string `json:"uid" db:"uid"`
	OrgID        string `json:"org_id" db:"org_id"`
	Email        string `json:"email" db:"email"`
	Name         string `json:"name" db:"name"`
	Cedula       string `json:"cedula" db:"cedula"`
	PasswordHash string `json:"-" db:"password_hash"`
	CreatedAt    int64  `json:"created_at" db:"created_at"`
}

type Patient struct {
	OrgID     string `json:"org_id" db:"org_id"`
	DoctorUID string `json:"doctor_uid" db:"doctor_uid"`
	PatientID string `json:"patient_id" db:"patient_id"`
	FullName  string `json:"full_name" db:"full_name"`
	Age       int    `json:"age" db:"age"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// SessionReport records the latest rendered report artifact for a session.
type SessionReport struct {
	ReportHash    string `json:"report_hash" db:"report_hash"`
	ReportLocator string `json:"report_locator" db:"report_locator"`
	ReportedAt    int64  `json:"reported_at" db:"reported_at"`
}
