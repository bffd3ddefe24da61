package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/pressplaylabs/launchcheck/internal/cache"
	"github.com/pressplaylabs/launchcheck/internal/config"
	"github.com/pressplaylabs/launchcheck/internal/database"
	apperrors "github.com/pressplaylabs/launchcheck/internal/errors"
	"github.com/pressplaylabs/launchcheck/internal/fixpack"
	"github.com/pressplaylabs/launchcheck/internal/middleware"
	"github.com/pressplaylabs/launchcheck/internal/monitoring"
	"github.com/pressplaylabs/launchcheck/internal/ratelimit"
	"github.com/pressplaylabs/launchcheck/internal/scan"
	"github.com/pressplaylabs/launchcheck/internal/security"
	"github.com/pressplaylabs/launchcheck/internal/types"
)

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("LAUNCHCHECK_CONFIG"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database, repository, and the scan/scoring service
	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	r, cleanup := buildRouter(cfg, db)
	defer cleanup()

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// buildRouter wires middleware and routes over an open database. The returned
// cleanup closes the Redis connection.
func buildRouter(cfg *config.Config, db *database.DB) (*gin.Engine, func()) {
	repo := database.NewRepository(db)
	svc := database.NewService(repo, cfg.FreeFixPackLimit)

	// Monitoring
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	memoryMonitor := monitoring.NewMemoryMonitor(15*time.Second, 512*1024*1024, appLogger)
	memoryMonitor.Start()

	// Redis-backed rate limiting with in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("Redis connection failed, continuing with fallback limiter", "error", err)
	}

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		IPLimitPerMin:   cfg.RateLimitPerMinute,
		BurstMultiplier: 2,
	}, appMetrics)

	// Response compression
	compressionMiddleware := middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())

	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	securityConfig := security.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = cfg.AllowedOrigins
	securityConfig.RequestTimeout = cfg.RequestTimeout
	securityConfig.UploadMaxBytes = cfg.UploadMaxBytes
	securityMiddleware := security.NewSecurityMiddleware(securityConfig)

	r.Use(security.SecurityHeadersMiddleware())
	r.Use(securityMiddleware.RequestTimeout)
	r.Use(securityMiddleware.ValidateContentType)
	r.Use(limiter.IPRateLimitMiddleware())
	r.Use(compressionMiddleware.Handler())

	// Comparison responses are pure functions of their payload, cache them.
	appCache := cache.NewCache(cfg.CacheTTL)
	r.Use(appCache.Middleware(appMetrics, "/launch/compare"))

	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if err := db.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"metrics":   appMetrics.GetStats(),
		})
	})

	// Upload a build archive and scan it
	r.POST("/scan",
		limiter.EndpointRateLimitMiddleware("scan", 10),
		securityMiddleware.UploadSizeLimit,
		func(c *gin.Context) {
			projectName := securityMiddleware.SanitizeProjectName(c.PostForm("project"))
			if err := securityMiddleware.ValidateProjectName(projectName); err != nil {
				abortWithError(c, apperrors.NewValidationError(err.Error()))
				return
			}

			fileHeader, err := c.FormFile("zip")
			if err != nil {
				abortWithError(c, apperrors.NewValidationError("zip file is required", err.Error()))
				return
			}
			if err := securityMiddleware.ValidateUploadName(fileHeader.Filename); err != nil {
				abortWithError(c, apperrors.NewValidationError(err.Error()))
				return
			}

			f, err := fileHeader.Open()
			if err != nil {
				abortWithError(c, err)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				abortWithError(c, err)
				return
			}

			start := time.Now()
			build, result, err := svc.SaveScan(c.ClientIP(), c.GetHeader("User-Agent"), projectName, fileHeader.Filename, data)
			if err != nil {
				if errors.Is(err, scan.ErrInvalidArchive) {
					appMetrics.IncrementScanRejected()
					abortWithError(c, apperrors.NewInvalidArchiveError("uploaded file is not a readable zip archive", err))
					return
				}
				abortWithError(c, err)
				return
			}

			appMetrics.IncrementScan()
			appLogger.ScanLogger(fileHeader.Filename, int64(len(data)), result.QuickScore, len(result.Files), time.Since(start))

			c.JSON(http.StatusCreated, gin.H{
				"build": build,
				"scan":  result,
			})
		})

	// Import a scan produced elsewhere (CI, CLI scanner)
	r.POST("/scan/import", func(c *gin.Context) {
		var req types.ScanImportRequest
		if err := c.BindJSON(&req); err != nil {
			abortWithError(c, apperrors.NewValidationError("invalid request body", err.Error()))
			return
		}

		projectName := securityMiddleware.SanitizeProjectName(req.ProjectName)
		if err := securityMiddleware.ValidateProjectName(projectName); err != nil {
			abortWithError(c, apperrors.NewValidationError(err.Error()))
			return
		}

		build, err := svc.ImportScan(c.ClientIP(), c.GetHeader("User-Agent"), projectName, req.FileName, req.Scan)
		if err != nil {
			abortWithError(c, err)
			return
		}

		appMetrics.IncrementScan()
		c.JSON(http.StatusCreated, gin.H{"build": build})
	})

	r.GET("/builds/:id", func(c *gin.Context) {
		detail, err := svc.GetBuildDetail(c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	})

	r.GET("/history", func(c *gin.Context) {
		history, err := svc.GetHistory(c.ClientIP(), c.GetHeader("User-Agent"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"projects": history})
	})

	r.GET("/platforms", func(c *gin.Context) {
		platforms, err := repo.ListPlatforms()
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"platforms": platforms})
	})

	r.GET("/hosts", func(c *gin.Context) {
		hosts, err := repo.ListHosts()
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"hosts": hosts})
	})

	// Score a build against one platform and host pairing
	r.POST("/launch/score", func(c *gin.Context) {
		var req types.LaunchScoreRequest
		if err := c.BindJSON(&req); err != nil {
			abortWithError(c, apperrors.NewValidationError("invalid request body", err.Error()))
			return
		}

		score, profile, err := svc.ScoreLaunch(req.BuildID, req.PlatformID, req.HostID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		appMetrics.IncrementLaunchScore()
		appLogger.ScoreLogger(req.BuildID, req.PlatformID, req.HostID, score.ReadinessScore)

		c.JSON(http.StatusOK, gin.H{
			"score":   score,
			"profile": profile,
		})
	})

	// Rank a build across every seeded platform for one host
	r.POST("/launch/compare", func(c *gin.Context) {
		var req types.LaunchCompareRequest
		if err := c.BindJSON(&req); err != nil {
			abortWithError(c, apperrors.NewValidationError("invalid request body", err.Error()))
			return
		}

		entries, err := svc.CompareLaunch(req.BuildID, req.HostID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"comparisons": entries})
	})

	// Generate hosting config files for a build, gated by the free quota
	r.POST("/fixpacks",
		limiter.EndpointRateLimitMiddleware("fixpacks", 10),
		func(c *gin.Context) {
			var req types.FixPackRequest
			if err := c.BindJSON(&req); err != nil {
				abortWithError(c, apperrors.NewValidationError("invalid request body", err.Error()))
				return
			}

			host, ok := fixpack.ParseHostTarget(req.Host)
			if req.Host != "" && !ok {
				abortWithError(c, apperrors.NewValidationError("unknown host target", req.Host))
				return
			}
			if req.Host == "" {
				// No explicit target, follow the recommendation
				detail, err := svc.GetBuildDetail(req.BuildID)
				if err != nil {
					abortWithError(c, err)
					return
				}
				host = detail.Recommendation.Host
			}

			result, err := svc.UseFixPack(c.ClientIP(), c.GetHeader("User-Agent"), req.BuildID, host)
			if err != nil {
				abortWithError(c, err)
				return
			}

			appMetrics.IncrementFixPack()
			c.JSON(http.StatusOK, result)
		})

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Operational endpoints
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, appCache.Stats())
	})

	r.GET("/pools/database", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "database",
			"stats": db.GetPoolStats(),
		})
	})

	r.GET("/pools/redis", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "redis",
			"stats": redisClient.GetPoolStats(),
		})
	})

	r.GET("/pools/compression", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "compression",
			"stats": compressionMiddleware.GetStats(),
		})
	})

	r.GET("/pools/memory", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "memory",
			"stats": memoryMonitor.GetStats(),
		})
	})

	r.GET("/ratelimit/status", limiter.HandleRateLimitStatus())
	r.GET("/admin/ratelimits", limiter.HandleAdminRateLimits())
	r.DELETE("/admin/ratelimits/:ip", limiter.HandleAdminInvalidateIP())

	cleanup := func() {
		memoryMonitor.Stop()
		if err := redisClient.Close(); err != nil {
			slog.Warn("Failed to close Redis client", "error", err)
		}
	}

	return r, cleanup
}

// abortWithError converts, logs, and writes a structured error response
func abortWithError(c *gin.Context, err error) {
	appErr := apperrors.ToAppError(err)
	apperrors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr)
	c.Abort()
}
