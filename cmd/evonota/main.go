package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/evonota/evonota/internal/analyze"
	"github.com/evonota/evonota/internal/config"
	"github.com/evonota/evonota/internal/docstore"
	"github.com/evonota/evonota/internal/extract"
	"github.com/evonota/evonota/internal/filestore"
	"github.com/evonota/evonota/internal/handler"
	"github.com/evonota/evonota/internal/job"
	"github.com/evonota/evonota/internal/metrics"
	"github.com/evonota/evonota/internal/middleware"
	"github.com/evonota/evonota/internal/resilience"
	"github.com/evonota/evonota/internal/schedule"
	"github.com/evonota/evonota/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "evonota",
		Short: "clinical note pipeline server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the pipeline server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("doc_store", cfg.DocStore.Type),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ocr", cfg.OCR.Type),
		zap.String("transcription", cfg.Transcription.Type),
		zap.String("analysis", cfg.Analysis.Type),
	)

	docs, err := docstore.New(cfg.DocStore.Type, cfg.DocStore.Data)
	if err != nil {
		return fmt.Errorf("init doc store: %w", err)
	}
	objects, err := filestore.New(cfg.FileStore.Type, cfg.FileStore.Data)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	client := upstreamClient(cfg.Pipeline)
	ocr, err := extract.New(extract.KindOCR, cfg.OCR.Type, cfg.OCR.Data, extract.Deps{Objects: objects, Client: client})
	if err != nil {
		return fmt.Errorf("init ocr backend: %w", err)
	}
	transcribe, err := extract.New(extract.KindTranscription, cfg.Transcription.Type, cfg.Transcription.Data, extract.Deps{Objects: objects, Client: client})
	if err != nil {
		return fmt.Errorf("init transcription backend: %w", err)
	}
	analyzer, err := analyze.New(cfg.Analysis.Type, cfg.Analysis.Data, analyze.Deps{Client: client})
	if err != nil {
		return fmt.Errorf("init analysis backend: %w", err)
	}

	if cfg.Pipeline.BreakerEnabled {
		ocr = extract.WithBreaker(ocr, resilience.NewBreaker("ocr", resilience.Config{}))
		transcribe = extract.WithBreaker(transcribe, resilience.NewBreaker("transcription", resilience.Config{}))
		analyzer = analyze.WithBreaker(analyzer, resilience.NewBreaker("analysis", resilience.Config{}))
	}
	if cfg.Pipeline.AnalysisCacheSize > 0 {
		analyzer = analyze.WithCache(analyzer, cfg.Pipeline.AnalysisCacheSize, time.Duration(cfg.Pipeline.AnalysisCacheTTLM)*time.Minute)
	}

	pipelineMetrics := metrics.NewPipeline()
	orchestrator := service.NewOrchestrator(docs, objects, ocr, transcribe, analyzer, pipelineMetrics)
	authService := service.NewAuthService(docs, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	reportService := service.NewReportService(docs, objects)
	patientService := service.NewPatientService(docs)

	deps := handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authService, cfg.EnableRegister),
		Orchestrate: handler.NewOrchestrateHandler(orchestrator),
		Reports:     handler.NewReportHandler(reportService),
		Patients:    handler.NewPatientHandler(patientService),
		Metrics:     pipelineMetrics,
		JWTSecret:   []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
			pipelineMetrics.Middleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewAuditPruneJob(docs, cfg.Audit.RetentionDays), cfg.Audit.CronSpec); err != nil {
		return fmt.Errorf("schedule audit prune: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

// upstreamClient separates dialing from end-to-end time so a slow model
// call is not mistaken for an unreachable host.
func upstreamClient(cfg config.PipelineConfig) *http.Client {
	dialer := &net.Dialer{Timeout: time.Duration(cfg.ConnectTimeoutSec) * time.Second}
	return &http.Client{
		Timeout: time.Duration(cfg.ReadTimeoutSec) * time.Second,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: time.Duration(cfg.ConnectTimeoutSec) * time.Second,
			MaxIdleConnsPerHost: 8,
		},
	}
}
