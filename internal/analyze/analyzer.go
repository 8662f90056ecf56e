package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/evonota/evonota/internal/model"
)

// Analyzer wraps the remote emotion-extraction service. Analyze is
// idempotent and side-effect-free with respect to storage; an empty
// mapping is a valid outcome, not an error.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (model.EmotionMap, error)
}

type Deps struct {
	Client *http.Client
}

type Factory func(args interface{}, deps Deps) (Analyzer, error)

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

func New(typ string, args interface{}, deps Deps) (Analyzer, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("analysis.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported analysis backend: %s", typ)
	}
	return factory(args, deps)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("analyzer config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode analyzer config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode analyzer config: %w", err)
	}
	return nil
}
