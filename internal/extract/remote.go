package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	errs "github.com/evonota/evonota/internal/pkg/errors"
)

type remoteConfig struct {
	BaseURL string `json:"base_url"`
}

// remoteExtractor forwards the input to a standalone extraction service
// over HTTP. The remote side owns the raw-object upload and reports the
// resulting locator.
type remoteExtractor struct {
	kind    string
	baseURL string
	client  *http.Client
}

type remoteEnvelope struct {
	Resultado struct {
		Texto string `json:"texto"`
	} `json:"resultado"`
	ImagenGCS string `json:"imagen_gcs"`
	AudioGCS  string `json:"audio_gcs"`
}

func init() {
	Register("remote", createRemoteExtractor)
}

func createRemoteExtractor(kind string, args interface{}, deps Deps) (Extractor, error) {
	cfg := &remoteConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote %s backend needs base_url", kind)
	}
	if deps.Client == nil {
		return nil, fmt.Errorf("remote %s backend needs an http client", kind)
	}
	return &remoteExtractor{kind: kind, baseURL: cfg.BaseURL, client: deps.Client}, nil
}

func (e *remoteExtractor) Kind() string {
	return e.kind
}

func (e *remoteExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	if len(in.Content) == 0 && in.Locator == "" {
		return nil, errs.ErrMissingInput
	}
	var req *http.Request
	var err error
	if len(in.Content) > 0 {
		req, err = e.multipartRequest(ctx, in)
	} else {
		req, err = e.formRequest(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %s status %d", errs.ErrUpstreamUnavailable, e.kind, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		switch resp.StatusCode {
		case http.StatusUnsupportedMediaType:
			return nil, errs.ErrUnsupportedFormat
		default:
			return nil, fmt.Errorf("%w: %s rejected the input", errs.ErrInvalid, e.kind)
		}
	}
	var envelope remoteEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnparsableResponse, err)
	}
	rawLocator := envelope.ImagenGCS
	if rawLocator == "" {
		rawLocator = envelope.AudioGCS
	}
	if rawLocator == "" {
		rawLocator = in.Locator
	}
	return &Result{
		Text:       strings.TrimSpace(envelope.Resultado.Texto),
		RawLocator: rawLocator,
	}, nil
}

func (e *remoteExtractor) multipartRequest(ctx context.Context, in Input) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	filename := in.Filename
	if filename == "" {
		filename = "upload.bin"
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(in.Content); err != nil {
		return nil, err
	}
	for key, value := range e.scopeFields(in) {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if in.Locator != "" {
		if err := writer.WriteField("gcs_uri", in.Locator); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-Id", in.Scope.DoctorUID)
	return req, nil
}

func (e *remoteExtractor) formRequest(ctx context.Context, in Input) (*http.Request, error) {
	form := url.Values{}
	for key, value := range e.scopeFields(in) {
		form.Set(key, value)
	}
	form.Set("gcs_uri", in.Locator)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-User-Id", in.Scope.DoctorUID)
	return req, nil
}

func (e *remoteExtractor) scopeFields(in Input) map[string]string {
	return map[string]string{
		"org_id":     in.Scope.OrgID,
		"patient_id": in.Scope.PatientID,
		"session_id": in.Scope.SessionID,
		"note_id":    in.NoteID,
	}
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("extractor config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode extractor config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode extractor config: %w", err)
	}
	return nil
}
