package extract

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evonota/evonota/internal/filestore"
	"github.com/evonota/evonota/internal/model"
)

// Kinds of extraction this system performs. The kind selects prompts,
// accepted input classes and the derived-artifact path segment.
const (
	KindOCR           = "ocr"
	KindTranscription = "transcription"
)

// Input carries exactly one required source: raw Content bytes or a
// pre-existing object Locator. When both are present the bytes are
// authoritative for extraction and the locator is reused for bookkeeping.
type Input struct {
	Content  []byte
	Locator  string
	Filename string
	MIMEHint string
	Scope    model.Scope
	NoteID   string
}

// Result is the extracted text plus the locator of the persisted raw
// input. RawLocator is empty for disabled object storage.
type Result struct {
	Text       string
	RawLocator string
}

// Extractor wraps one remote text-extraction service. Implementations
// persist uploaded bytes to the object store before extraction and never
// roll the raw object back on extraction failure.
type Extractor interface {
	Kind() string
	Extract(ctx context.Context, in Input) (*Result, error)
}

// Deps are the collaborators a backend may need; factories take what
// they use and ignore the rest.
type Deps struct {
	Objects filestore.Store
	Client  *http.Client
}

type Factory func(kind string, args interface{}, deps Deps) (Extractor, error)

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

func New(kind, typ string, args interface{}, deps Deps) (Extractor, error) {
	if kind != KindOCR && kind != KindTranscription {
		return nil, fmt.Errorf("unknown extraction kind: %s", kind)
	}
	key := strings.ToLower(strings.TrimSpace(typ))
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported %s backend: %s", kind, typ)
	}
	return factory(kind, args, deps)
}

var imageMIME = map[string]string{
	".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png",
	".webp": "image/webp", ".tif": "image/tiff", ".tiff": "image/tiff",
	".heic": "image/heic",
}

var audioMIME = map[string]string{
	".m4a": "audio/mp4", ".mp3": "audio/mpeg", ".wav": "audio/wav",
	".ogg": "audio/ogg", ".webm": "audio/webm", ".flac": "audio/flac",
}

// guessMIME resolves the content type from the filename extension, then
// the caller hint. Empty means the format is not recognized.
func guessMIME(kind, filename, hint string) string {
	table := imageMIME
	class := "image/"
	if kind == KindTranscription {
		table = audioMIME
		class = "audio/"
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if mime, ok := table[ext]; ok {
		return mime
	}
	if strings.HasPrefix(hint, class) {
		return hint
	}
	return ""
}
