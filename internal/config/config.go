package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logger"
)

// BackendConfig selects one implementation of a capability (doc store,
// file store, extraction, analysis) and carries its free-form options.
type BackendConfig struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

type PipelineConfig struct {
	ConnectTimeoutSec int  `json:"connect_timeout_sec"`
	ReadTimeoutSec    int  `json:"read_timeout_sec"`
	BreakerEnabled    bool `json:"breaker_enabled"`
	AnalysisCacheSize int  `json:"analysis_cache_size"`
	AnalysisCacheTTLM int  `json:"analysis_cache_ttl_minutes"`
}

type AuditConfig struct {
	CronSpec      string `json:"cron_spec"`
	RetentionDays int    `json:"retention_days"`
}

type Config struct {
	Port           int              `json:"port"`
	JWTSecret      string           `json:"jwt_secret"`
	JWTTTLHours    int              `json:"jwt_ttl_hours"`
	EnableRegister bool             `json:"enable_register"`
	CORSOrigins    []string         `json:"cors_origins"`
	LogConfig      logger.LogConfig `json:"log_config"`

	DocStore      BackendConfig `json:"doc_store"`
	FileStore     BackendConfig `json:"file_store"`
	OCR           BackendConfig `json:"ocr"`
	Transcription BackendConfig `json:"transcription"`
	Analysis      BackendConfig `json:"analysis"`

	Pipeline PipelineConfig `json:"pipeline"`
	Audit    AuditConfig    `json:"audit"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.DocStore.Type == "" {
		cfg.DocStore.Type = "sql"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.OCR.Type == "" {
		cfg.OCR.Type = "gemini"
	}
	if cfg.Transcription.Type == "" {
		cfg.Transcription.Type = "gemini"
	}
	if cfg.Analysis.Type == "" {
		cfg.Analysis.Type = "gemini"
	}
	if cfg.Pipeline.ConnectTimeoutSec == 0 {
		cfg.Pipeline.ConnectTimeoutSec = 10
	}
	if cfg.Pipeline.ReadTimeoutSec == 0 {
		cfg.Pipeline.ReadTimeoutSec = 120
	}
	if cfg.Pipeline.AnalysisCacheSize == 0 {
		cfg.Pipeline.AnalysisCacheSize = 4096
	}
	if cfg.Pipeline.AnalysisCacheTTLM == 0 {
		cfg.Pipeline.AnalysisCacheTTLM = 120
	}
	if cfg.Audit.CronSpec == "" {
		cfg.Audit.CronSpec = "30 3 * * *"
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 90
	}
	return &cfg, nil
}

// Environment overrides for deployment-time knobs. File config is the
// source of truth; env wins when set.
func applyEnvOverrides(cfg *Config) {
	setData := func(bc *BackendConfig, key, value string) {
		if bc.Data == nil {
			bc.Data = map[string]interface{}{}
		}
		bc.Data[key] = value
	}
	if v := os.Getenv("EVONOTA_OCR_URL"); v != "" {
		setData(&cfg.OCR, "base_url", v)
	}
	if v := os.Getenv("EVONOTA_AUDIO_URL"); v != "" {
		setData(&cfg.Transcription, "base_url", v)
	}
	if v := os.Getenv("EVONOTA_ANALYSIS_URL"); v != "" {
		setData(&cfg.Analysis, "base_url", v)
	}
	if v := os.Getenv("EVONOTA_GEMINI_API_KEY"); v != "" {
		setData(&cfg.OCR, "api_key", v)
		setData(&cfg.Transcription, "api_key", v)
		setData(&cfg.Analysis, "api_key", v)
	}
	if v := os.Getenv("EVONOTA_PROJECT"); v != "" {
		setData(&cfg.OCR, "project", v)
		setData(&cfg.Transcription, "project", v)
		setData(&cfg.Analysis, "project", v)
	}
	if v := os.Getenv("EVONOTA_LOCATION"); v != "" {
		setData(&cfg.OCR, "location", v)
		setData(&cfg.Transcription, "location", v)
		setData(&cfg.Analysis, "location", v)
	}
	if v := os.Getenv("EVONOTA_BUCKET"); v != "" {
		setData(&cfg.FileStore, "bucket", v)
	}
	if v := os.Getenv("EVONOTA_STORAGE_PREFIX"); v != "" {
		setData(&cfg.FileStore, "prefix", v)
	}
	if v := os.Getenv("EVONOTA_DISABLE_STORAGE"); isTruthy(v) {
		cfg.FileStore.Type = "disabled"
	}
	if v := os.Getenv("EVONOTA_CONNECT_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Pipeline.ConnectTimeoutSec = sec
		}
	}
	if v := os.Getenv("EVONOTA_READ_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Pipeline.ReadTimeoutSec = sec
		}
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
