package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/ucd-roster-api/internal/handler"
	"github.com/noah-isme/ucd-roster-api/internal/middleware"
	"github.com/noah-isme/ucd-roster-api/internal/repository"
	"github.com/noah-isme/ucd-roster-api/internal/service"
	"github.com/noah-isme/ucd-roster-api/pkg/archive"
	"github.com/noah-isme/ucd-roster-api/pkg/cache"
	"github.com/noah-isme/ucd-roster-api/pkg/config"
	"github.com/noah-isme/ucd-roster-api/pkg/database"
	"github.com/noah-isme/ucd-roster-api/pkg/export"
	"github.com/noah-isme/ucd-roster-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ucd-roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ucd-roster-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	programRepo := repository.NewProgramRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Roster.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT)

	var rosterCache service.RosterCache
	if cacheRepo != nil {
		rosterCache = cacheRepo
	}
	rosterSvc := service.NewRosterService(programRepo, courseRepo, studentRepo, rosterCache, cfg.Roster.CacheTTL, logr)
	programSvc := service.NewProgramService(programRepo, rosterSvc, validate, logr)
	importSvc := service.NewImportService(db, programRepo, courseRepo, studentRepo, cfg.Import, rosterSvc, logr, nil)

	builders := map[string]export.FileBuilder{
		"xlsx": export.NewXLSXBuilder(),
		"pdf":  export.NewPDFBuilder(cfg.Files.InstitutionLines),
	}
	exportSvc := service.NewExportService(rosterSvc, builders, archive.Dir, cfg.Files, validate, logr)

	programHandler := handler.NewProgramHandler(programSvc)
	importHandler := handler.NewImportHandler(importSvc, metricsSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc, exportSvc, metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.GET("/programs", programHandler.List)
		api.POST("/programs", programHandler.Create)
		api.GET("/programs/:code", programHandler.Get)
		api.PUT("/programs/:code", programHandler.Update)
		api.DELETE("/programs/:code", programHandler.Delete)

		api.GET("/programs/:code/roster", rosterHandler.Get)
		api.GET("/programs/:code/roster/files", rosterHandler.Files)

		api.POST("/imports", importHandler.Upload)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
