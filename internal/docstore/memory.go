package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/evonota/evonota/internal/model"
	errs "github.com/evonota/evonota/internal/pkg/errors"
)

// memoryStore backs local runs and tests. Same upsert semantics as the
// sql backend, nothing survives a restart.
type memoryStore struct {
	mu       sync.RWMutex
	notes    map[string]model.Note
	doctors  map[string]model.Doctor
	patients map[string]model.Patient
	sessions map[string]model.SessionReport
	audit    []model.AuditEntry
}

func init() {
	Register("memory", func(args interface{}) (Store, error) {
		return NewMemory(), nil
	})
}

func NewMemory() Store {
	return &memoryStore{
		notes:    map[string]model.Note{},
		doctors:  map[string]model.Doctor{},
		patients: map[string]model.Patient{},
		sessions: map[string]model.SessionReport{},
	}
}

func patientKey(orgID, doctorUID, patientID string) string {
	return orgID + "/" + doctorUID + "/" + patientID
}

func sessionKey(s model.Scope) string {
	return s.OrgID + "/" + s.DoctorUID + "/" + s.PatientID + "/" + s.SessionID
}

func (m *memoryStore) PutNote(ctx context.Context, note *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *note
	stored.Emotions = make(model.EmotionMap, len(note.Emotions))
	for name, score := range note.Emotions {
		entities := make([]string, len(score.Entities))
		copy(entities, score.Entities)
		stored.Emotions[name] = model.EmotionScore{Percentage: score.Percentage, Entities: entities}
	}
	m.notes[note.NoteID] = stored
	return nil
}

func (m *memoryStore) GetNote(ctx context.Context, scope model.Scope, noteID string) (*model.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	note, ok := m.notes[noteID]
	if !ok || note.Scope() != scope {
		return nil, errs.ErrNotFound
	}
	out := note
	return &out, nil
}

func (m *memoryStore) ListSessionNotes(ctx context.Context, scope model.Scope) ([]model.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var notes []model.Note
	for _, note := range m.notes {
		if note.Scope() == scope {
			notes = append(notes, note)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].CreatedAt != notes[j].CreatedAt {
			return notes[i].CreatedAt < notes[j].CreatedAt
		}
		return notes[i].NoteID < notes[j].NoteID
	})
	return notes, nil
}

func (m *memoryStore) CreateDoctor(ctx context.Context, doctor *model.Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.doctors {
		if existing.Email == doctor.Email {
			return errs.ErrConflict
		}
	}
	if _, ok := m.doctors[doctor.UID]; ok {
		return errs.ErrConflict
	}
	m.doctors[doctor.UID] = *doctor
	return nil
}

func (m *memoryStore) GetDoctor(ctx context.Context, orgID, doctorUID string) (*model.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doctor, ok := m.doctors[doctorUID]
	if !ok || doctor.OrgID != orgID {
		return nil, errs.ErrNotFound
	}
	out := doctor
	return &out, nil
}

func (m *memoryStore) GetDoctorByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, doctor := range m.doctors {
		if doctor.Email == email {
			out := doctor
			return &out, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *memoryStore) CreatePatient(ctx context.Context, patient *model.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := patientKey(patient.OrgID, patient.DoctorUID, patient.PatientID)
	if _, ok := m.patients[key]; ok {
		return errs.ErrConflict
	}
	m.patients[key] = *patient
	return nil
}

func (m *memoryStore) GetPatient(ctx context.Context, orgID, doctorUID, patientID string) (*model.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	patient, ok := m.patients[patientKey(orgID, doctorUID, patientID)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := patient
	return &out, nil
}

func (m *memoryStore) UpdateSessionReport(ctx context.Context, scope model.Scope, report model.SessionReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey(scope)] = report
	return nil
}

func (m *memoryStore) AddAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *entry)
	return nil
}

func (m *memoryStore) PruneAudit(ctx context.Context, olderThan int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.audit[:0]
	var pruned int64
	for _, entry := range m.audit {
		if entry.CreatedAt < olderThan {
			pruned++
			continue
		}
		kept = append(kept, entry)
	}
	m.audit = kept
	return pruned, nil
}
