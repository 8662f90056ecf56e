package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evonota/evonota/internal/metrics"
	"github.com/evonota/evonota/internal/middleware"
)

type RouterDeps struct {
	Auth        *AuthHandler
	Orchestrate *OrchestrateHandler
	Reports     *ReportHandler
	Patients    *PatientHandler
	Metrics     *metrics.Pipeline
	JWTSecret   []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", Health)
	api.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api.POST("/auth/register", middleware.RateLimit(time.Second), deps.Auth.Register)
	api.POST("/auth/login", middleware.RateLimit(time.Second), deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/orquestar_foto", deps.Orchestrate.Photo)
	authGroup.POST("/orquestar_audio", deps.Orchestrate.Audio)
	authGroup.POST("/guardar_nota", deps.Orchestrate.SaveNote)
	authGroup.POST("/generar_reporte_pdf", deps.Reports.Generate)

	authGroup.POST("/patients", deps.Patients.Create)
	authGroup.GET("/patients/:id", deps.Patients.Get)
}
