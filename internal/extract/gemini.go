package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/evonota/evonota/internal/filestore"
	errs "github.com/evonota/evonota/internal/pkg/errors"
)

type geminiConfig struct {
	APIKey   string `json:"api_key"`
	Project  string `json:"project"`
	Location string `json:"location"`
	Model    string `json:"model"`
}

// geminiExtractor runs OCR or transcription directly against a Gemini
// model with inline media input.
type geminiExtractor struct {
	kind    string
	client  *genai.Client
	model   string
	objects filestore.Store
	now     func() time.Time
}

func init() {
	Register("gemini", createGeminiExtractor)
}

func newGeminiClient(cfg *geminiConfig) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{}
	switch {
	case cfg.Project != "":
		clientCfg.Project = cfg.Project
		clientCfg.Location = cfg.Location
		clientCfg.Backend = genai.BackendVertexAI
	case cfg.APIKey != "":
		clientCfg.APIKey = strings.TrimSpace(cfg.APIKey)
		clientCfg.Backend = genai.BackendGeminiAPI
	default:
		return nil, fmt.Errorf("gemini backend needs api_key or project")
	}
	return genai.NewClient(context.Background(), clientCfg)
}

func createGeminiExtractor(kind string, args interface{}, deps Deps) (Extractor, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	client, err := newGeminiClient(cfg)
	if err != nil {
		return nil, err
	}
	return &geminiExtractor{
		kind:    kind,
		client:  client,
		model:   cfg.Model,
		objects: deps.Objects,
		now:     time.Now,
	}, nil
}

func (e *geminiExtractor) Kind() string {
	return e.kind
}

func (e *geminiExtractor) prompt() string {
	if e.kind == KindTranscription {
		return "Transcribe el audio a texto en español. Devuelve SOLO la transcripción."
	}
	return "Extrae todo el texto visible en la imagen, en el orden de lectura. Devuelve SOLO el texto."
}

func (e *geminiExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	data, rawLocator, mime, err := e.loadInput(ctx, in)
	if err != nil {
		return nil, err
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mime, Data: data}},
		{Text: e.prompt()},
	}
	resp, err := e.client.Models.GenerateContent(ctx, e.model, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	}
	return &Result{
		Text:       strings.TrimSpace(resp.Text()),
		RawLocator: rawLocator,
	}, nil
}

// loadInput resolves the source bytes and persists uploads. The raw
// object write happens before the model call so the locator a note
// record will reference is always resolvable first.
func (e *geminiExtractor) loadInput(ctx context.Context, in Input) ([]byte, string, string, error) {
	if len(in.Content) == 0 && in.Locator == "" {
		return nil, "", "", errs.ErrMissingInput
	}
	mime := guessMIME(e.kind, in.Filename, in.MIMEHint)
	if len(in.Content) > 0 {
		if mime == "" {
			mime = guessMIME(e.kind, in.Locator, "")
		}
		if mime == "" {
			return nil, "", "", errs.ErrUnsupportedFormat
		}
		if in.Locator != "" {
			// Bytes are authoritative; the supplied locator is reused
			// for bookkeeping and nothing new is uploaded.
			return in.Content, in.Locator, mime, nil
		}
		key := filestore.RawKey(in.Scope, in.NoteID, extOf(in.Filename), e.now())
		locator, err := e.objects.Save(ctx, key, in.Content, mime)
		if err != nil {
			return nil, "", "", errs.AtStage("filestore", fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err))
		}
		return in.Content, locator, mime, nil
	}
	if mime == "" {
		mime = guessMIME(e.kind, in.Locator, "")
	}
	if mime == "" {
		return nil, "", "", errs.ErrUnsupportedFormat
	}
	rc, err := e.objects.Open(ctx, in.Locator)
	if err != nil {
		return nil, "", "", errs.AtStage("filestore", fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err))
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", "", errs.AtStage("filestore", fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err))
	}
	if len(data) == 0 {
		return nil, "", "", errs.ErrEmptyInput
	}
	return data, in.Locator, mime, nil
}

func extOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return filename[idx:]
}
