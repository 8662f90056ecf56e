package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evonota/evonota/internal/model"
	errs "github.com/evonota/evonota/internal/pkg/errors"
)

type remoteConfig struct {
	BaseURL string `json:"base_url"`
}

// remoteAnalyzer posts the text to a standalone analysis service. The
// remote result is re-normalized; the adapter never trusts its shape.
type remoteAnalyzer struct {
	baseURL string
	client  *http.Client
}

func init() {
	Register("remote", createRemoteAnalyzer)
}

func createRemoteAnalyzer(args interface{}, deps Deps) (Analyzer, error) {
	cfg := &remoteConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote analyzer needs base_url")
	}
	if deps.Client == nil {
		return nil, fmt.Errorf("remote analyzer needs an http client")
	}
	return &remoteAnalyzer{baseURL: cfg.BaseURL, client: deps.Client}, nil
}

func (a *remoteAnalyzer) Analyze(ctx context.Context, text string) (model.EmotionMap, error) {
	if strings.TrimSpace(text) == "" {
		return model.EmotionMap{}, nil
	}
	payload, err := json.Marshal(map[string]string{"texto": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: analysis status %d", errs.ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: analysis rejected the input", errs.ErrInvalid)
	}
	var envelope struct {
		Resultado map[string]interface{} `json:"resultado"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnparsableResponse, err)
	}
	if envelope.Resultado == nil {
		// Some deployments return the mapping at the top level.
		return DecodePayload(string(body))
	}
	return Normalize(envelope.Resultado), nil
}
