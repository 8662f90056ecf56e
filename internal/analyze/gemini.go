package analyze

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/evonota/evonota/internal/model"
	errs "github.com/evonota/evonota/internal/pkg/errors"
)

type geminiConfig struct {
	APIKey   string `json:"api_key"`
	Project  string `json:"project"`
	Location string `json:"location"`
	Model    string `json:"model"`
}

type geminiAnalyzer struct {
	client *genai.Client
	model  string
}

func init() {
	Register("gemini", createGeminiAnalyzer)
}

func createGeminiAnalyzer(args interface{}, deps Deps) (Analyzer, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-lite"
	}
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
		return nil, fmt.Errorf("gemini analyzer needs api_key or project")
	}
	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, err
	}
	return &geminiAnalyzer{client: client, model: cfg.Model}, nil
}

func buildPrompt(text string) string {
	return fmt.Sprintf(`Analiza el siguiente texto y extrae estas emociones: %s.
Para cada emoción encontrada, asigna un porcentaje (0-100) e identifica entidades relacionadas.

Texto: %s

Devuelve SOLO un JSON con el formato:
{
  "emocion": {
    "porcentaje": 85.5,
    "entidades": ["entidad1","entidad2"]
  }
}`, strings.Join(TargetEmotions, ", "), text)
}

func (a *geminiAnalyzer) Analyze(ctx context.Context, text string) (model.EmotionMap, error) {
	if strings.TrimSpace(text) == "" {
		return model.EmotionMap{}, nil
	}
	resp, err := a.client.Models.GenerateContent(
		ctx,
		a.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: buildPrompt(text)}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	}
	return DecodePayload(strings.TrimSpace(resp.Text()))
}
