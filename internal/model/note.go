package model

type NoteType string

const (
	NoteTypeImage NoteType = "image"
	NoteTypeAudio NoteType = "audio"
	NoteTypeText  NoteType = "text"
)

type NoteSource string

const (
	// NoteSourceUpload means the raw bytes were received and stored by this system.
	NoteSourceUpload NoteSource = "upload"
	// NoteSourceReference means the caller supplied a pre-existing storage locator.
	NoteSourceReference NoteSource = "reference"
	// NoteSourceFinal means the note originates from caller-supplied finished text.
	NoteSourceFinal NoteSource = "final"
)

// Pipeline lifecycle stages. A note only ever moves forward:
// started -> extracted -> (returned_pending | analyzed -> persisted).
const (
	StatusStarted         = "started"
	StatusExtracted       = "extracted"
	StatusReturnedPending = "returned_pending"
	StatusAnalyzed        = "analyzed"
	StatusPersisted       = "persisted"
)

// EmotionScore is the normalized per-emotion result of the analysis step.
type EmotionScore struct {
	Percentage float64  `json:"percentage"`
	Entities   []string `json:"entities"`
}

// EmotionMap maps an emotion name (e.g. "estres", "alegria") to its score.
// An empty map is a valid analysis outcome, not an error.
type EmotionMap map[string]EmotionScore

// Scope is the ownership path under which every artifact of a note is
// namespaced. Scope keys are immutable once a note is created.
type Scope struct {
	OrgID     string `json:"org_id" db:"org_id"`
	DoctorUID string `json:"doctor_uid" db:"doctor_uid"`
	PatientID string `json:"patient_id" db:"patient_id"`
	SessionID string `json:"session_id" db:"session_id"`
}

func (s Scope) Complete() bool {
	return s.OrgID != "" && s.DoctorUID != "" && s.PatientID != "" && s.SessionID != ""
}

// Note is the unit of work flowing through the pipeline. Field names mirror
// the persisted document layout.
type Note struct {
	NoteID        string     `json:"note_id" db:"note_id"`
	OrgID         string     `json:"org_id" db:"org_id"`
	DoctorUID     string     `json:"doctor_uid" db:"doctor_uid"`
	PatientID     string     `json:"patient_id" db:"patient_id"`
	SessionID     string     `json:"session_id" db:"session_id"`
	Type          NoteType   `json:"type" db:"type"`
	Source        NoteSource `json:"source" db:"source"`
	SourceLocator string     `json:"gcs_uri_source" db:"gcs_uri_source"`
	Text          string     `json:"ocr_text" db:"ocr_text"`
	Emotions      EmotionMap `json:"emotions" db:"-"`
	Status        string     `json:"status_pipeline" db:"status_pipeline"`
	CreatedAt     int64      `json:"created_at" db:"created_at"`
	ProcessedAt   int64      `json:"processed_at" db:"processed_at"`
}

func (n *Note) Scope() Scope {
	return Scope{OrgID: n.OrgID, DoctorUID: n.DoctorUID, PatientID: n.PatientID, SessionID: n.SessionID}
}
