package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/evonota/evonota/internal/model"
	"github.com/evonota/evonota/internal/pkg/dbutil"
	errs "github.com/evonota/evonota/internal/pkg/errors"
)

type sqlConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

type sqlStore struct {
	db     *sqlx.DB
	driver string
}

func init() {
	Register("sql", createSQLStore)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS doctors (
		uid TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		cedula TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		org_id TEXT NOT NULL,
		doctor_uid TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		age INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (org_id, doctor_uid, patient_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		org_id TEXT NOT NULL,
		doctor_uid TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		report_hash TEXT NOT NULL DEFAULT '',
		report_locator TEXT NOT NULL DEFAULT '',
		reported_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (org_id, doctor_uid, patient_id, session_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notes (
		note_id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		doctor_uid TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		type TEXT NOT NULL,
		source TEXT NOT NULL,
		gcs_uri_source TEXT NOT NULL DEFAULT '',
		ocr_text TEXT NOT NULL DEFAULT '',
		emotions TEXT NOT NULL DEFAULT '{}',
		status_pipeline TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		processed_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_session ON notes (org_id, doctor_uid, patient_id, session_id)`,
	`CREATE TABLE IF NOT EXISTS pipeline_audit (
		note_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		doctor_uid TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		note_type TEXT NOT NULL,
		stage TEXT NOT NULL,
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		elapsed_ms BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_created ON pipeline_audit (created_at)`,
}

func createSQLStore(args interface{}) (Store, error) {
	cfg := &sqlConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.Driver != "sqlite" && cfg.Driver != "postgres" {
		return nil, fmt.Errorf("doc_store driver must be sqlite or postgres")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("doc_store dsn is required")
	}
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open doc store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping doc store: %w", err)
	}
	store := &sqlStore{db: db, driver: cfg.Driver}
	if err := store.applyMigrations(); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return store, nil
}

func (s *sqlStore) applyMigrations() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// noteRow flattens the emotion mapping into a JSON column.
type noteRow struct {
	model.Note
	EmotionsJSON string `db:"emotions"`
}

func (s *sqlStore) PutNote(ctx context.Context, note *model.Note) error {
	emotions := note.Emotions
	if emotions == nil {
		emotions = model.EmotionMap{}
	}
	blob, err := json.Marshal(emotions)
	if err != nil {
		return err
	}
	query := `INSERT INTO notes
		(note_id, org_id, doctor_uid, patient_id, session_id, type, source,
		 gcs_uri_source, ocr_text, emotions, status_pipeline, created_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (note_id) DO UPDATE SET
		 gcs_uri_source = excluded.gcs_uri_source,
		 ocr_text = excluded.ocr_text,
		 emotions = excluded.emotions,
		 status_pipeline = excluded.status_pipeline,
		 processed_at = excluded.processed_at`
	args := []interface{}{
		note.NoteID, note.OrgID, note.DoctorUID, note.PatientID, note.SessionID,
		string(note.Type), string(note.Source), note.SourceLocator, note.Text,
		string(blob), note.Status, note.CreatedAt, note.ProcessedAt,
	}
	query, args = dbutil.Finalize(s.driver, query, args)
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *sqlStore) GetNote(ctx context.Context, scope model.Scope, noteID string) (*model.Note, error) {
	where := map[string]interface{}{
		"note_id":    noteID,
		"org_id":     scope.OrgID,
		"doctor_uid": scope.DoctorUID,
		"patient_id": scope.PatientID,
		"session_id": scope.SessionID,
	}
	query, args, err := builder.BuildSelect("notes", where, nil)
	if err != nil {
		return nil, err
	}
	query, args = dbutil.Finalize(s.driver, query, args)
	var row noteRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	note := row.Note
	note.Emotions = model.EmotionMap{}
	if row.EmotionsJSON != "" {
		if err := json.Unmarshal([]byte(row.EmotionsJSON), &note.Emotions); err != nil {
			return nil, fmt.Errorf("decode emotions for note %s: %w", noteID, err)
		}
	}
	return &note, nil
}

func (s *sqlStore) ListSessionNotes(ctx context.Context, scope model.Scope) ([]model.Note, error) {
	where := map[string]interface{}{
		"org_id":     scope.OrgID,
		"doctor_uid": scope.DoctorUID,
		"patient_id": scope.PatientID,
		"session_id": scope.SessionID,
		"_orderby":   "created_at asc",
	}
	query, args, err := builder.BuildSelect("notes", where, nil)
	if err != nil {
		return nil, err
	}
	query, args = dbutil.Finalize(s.driver, query, args)
	var rows []noteRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	notes := make([]model.Note, 0, len(rows))
	for _, row := range rows {
		note := row.Note
		note.Emotions = model.EmotionMap{}
		if row.EmotionsJSON != "" {
			if err := json.Unmarshal([]byte(row.EmotionsJSON), &note.Emotions); err != nil {
				return nil, fmt.Errorf("decode emotions for note %s: %w", note.NoteID, err)
			}
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func (s *sqlStore) CreateDoctor(ctx context.Context, doctor *model.Doctor) error {
	data := map[string]interface{}{
		"uid":           doctor.UID,
		"org_id":        doctor.OrgID,
		"email":         doctor.Email,
		"name":          doctor.Name,
		"cedula":        doctor.Cedula,
		"password_hash": doctor.PasswordHash,
		"created_at":    doctor.CreatedAt,
	}
	query, args, err := builder.BuildInsert("doctors", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(s.driver, query, args)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if dbutil.IsConflict(err) {
			return errs.ErrConflict
		}
		return err
	}
	return nil
}

func (s *sqlStore) GetDoctor(ctx context.Context, orgID, doctorUID string) (*model.Doctor, error) {
	return s.getDoctor(ctx, map[string]interface{}{"org_id": orgID, "uid": doctorUID})
}

func (s *sqlStore) GetDoctorByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	return s.getDoctor(ctx, map[string]interface{}{"email": email})
}

func (s *sqlStore) getDoctor(ctx context.Context, where map[string]interface{}) (*model.Doctor, error) {
	query, args, err := builder.BuildSelect("doctors", where, nil)
	if err != nil {
		return nil, err
	}
	query, args = dbutil.Finalize(s.driver, query, args)
	var doctor model.Doctor
	if err := s.db.GetContext(ctx, &doctor, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &doctor, nil
}

func (s *sqlStore) CreatePatient(ctx context.Context, patient *model.Patient) error {
	data := map[string]interface{}{
		"org_id":     patient.OrgID,
		"doctor_uid": patient.DoctorUID,
		"patient_id": patient.PatientID,
		"full_name":  patient.FullName,
		"age":        patient.Age,
		"created_at": patient.CreatedAt,
	}
	query, args, err := builder.BuildInsert("patients", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(s.driver, query, args)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if dbutil.IsConflict(err) {
			return errs.ErrConflict
		}
		return err
	}
	return nil
}

func (s *sqlStore) GetPatient(ctx context.Context, orgID, doctorUID, patientID string) (*model.Patient, error) {
	where := map[string]interface{}{
		"org_id":     orgID,
		"doctor_uid": doctorUID,
		"patient_id": patientID,
	}
	query, args, err := builder.BuildSelect("patients", where, nil)
	if err != nil {
		return nil, err
	}
	query, args = dbutil.Finalize(s.driver, query, args)
	var patient model.Patient
	if err := s.db.GetContext(ctx, &patient, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &patient, nil
}

func (s *sqlStore) UpdateSessionReport(ctx context.Context, scope model.Scope, report model.SessionReport) error {
	query := `INSERT INTO sessions
		(org_id, doctor_uid, patient_id, session_id, report_hash, report_locator, reported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, doctor_uid, patient_id, session_id) DO UPDATE SET
		 report_hash = excluded.report_hash,
		 report_locator = excluded.report_locator,
		 reported_at = excluded.reported_at`
	args := []interface{}{
		scope.OrgID, scope.DoctorUID, scope.PatientID, scope.SessionID,
		report.ReportHash, report.ReportLocator, report.ReportedAt,
	}
	query, args = dbutil.Finalize(s.driver, query, args)
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *sqlStore) AddAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	data := map[string]interface{}{
		"note_id":    entry.NoteID,
		"org_id":     entry.OrgID,
		"doctor_uid": entry.DoctorUID,
		"patient_id": entry.PatientID,
		"session_id": entry.SessionID,
		"note_type":  string(entry.NoteType),
		"stage":      entry.Stage,
		"outcome":    entry.Outcome,
		"detail":     entry.Detail,
		"elapsed_ms": entry.ElapsedMS,
		"created_at": entry.CreatedAt,
	}
	query, args, err := builder.BuildInsert("pipeline_audit", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(s.driver, query, args)
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *sqlStore) PruneAudit(ctx context.Context, olderThan int64) (int64, error) {
	query := `DELETE FROM pipeline_audit WHERE created_at < ?`
	args := []interface{}{olderThan}
	query, args = dbutil.Finalize(s.driver, query, args)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
