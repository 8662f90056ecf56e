package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/evonota/evonota/internal/model"
)

// Store is the document-store adapter. Note records are upsert-only per
// note_id; the orchestrator performs at most one PutNote per pipeline
// invocation and never rewrites a persisted emotion mapping.
type Store interface {
	PutNote(ctx context.Context, note *model.Note) error
	GetNote(ctx context.Context, scope model.Scope, noteID string) (*model.Note, error)
	ListSessionNotes(ctx context.Context, scope model.Scope) ([]model.Note, error)

	CreateDoctor(ctx context.Context, doctor *model.Doctor) error
	GetDoctor(ctx context.Context, orgID, doctorUID string) (*model.Doctor, error)
	GetDoctorByEmail(ctx context.Context, email string) (*model.Doctor, error)

	CreatePatient(ctx context.Context, patient *model.Patient) error
	GetPatient(ctx context.Context, orgID, doctorUID, patientID string) (*model.Patient, error)

	UpdateSessionReport(ctx context.Context, scope model.Scope, report model.SessionReport) error

	AddAuditEntry(ctx context.Context, entry *model.AuditEntry) error
	PruneAudit(ctx context.Context, olderThan int64) (int64, error)
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, args interface{}) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("doc_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported doc store type: %s", typ)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("doc store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode doc store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode doc store config: %w", err)
	}
	return nil
}
