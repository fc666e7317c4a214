package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slymn80/timetables/internal/adapter/postgres"
	"github.com/slymn80/timetables/internal/config"
	"github.com/slymn80/timetables/internal/database"
	"github.com/slymn80/timetables/internal/engine"
	"github.com/slymn80/timetables/internal/handlers"
	"github.com/slymn80/timetables/internal/middleware"
	"github.com/slymn80/timetables/internal/sse"
	"github.com/slymn80/timetables/pkg/logger"
	"github.com/slymn80/timetables/pkg/metrics"
)

// loadEnvFile загружает переменные окружения из .env файла
func loadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		// Если файл не существует, это не критическая ошибка - используем переменные окружения системы
		if os.IsNotExist(err) {
			log.Warn().Str("file", filename).Msg(".env file not found, using system environment variables")
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		line = strings.TrimSpace(line)

		// Пропускаем пустые строки и комментарии
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		// Разбираем строку вида KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Не перезаписываем переменные окружения, которые уже установлены
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return nil
}

func main() {
	// Load environment variables from .env file
	if err := loadEnvFile(".env"); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup structured logging based on environment
	logger.Setup(cfg.Server.Env)

	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Str("config", cfg.String()).Msg("Starting timetable generation server")

	// Connect to database
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	// NOTE: Do NOT defer db.Close() here - database must be closed AFTER all goroutines stop
	// See graceful shutdown sequence at end of main() (Phase 3)

	// initializeApp handles all remaining initialization with proper error collection and cleanup
	// On error, it will clean up resources before returning
	if err := initializeApp(cfg, db); err != nil {
		// Log the initialization error with context
		log.Error().Err(err).Msg("Application initialization failed, cleaning up resources")
		// Close database before exiting to prevent resource leaks
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Error closing database during error cleanup")
		}
		log.Fatal().Err(err).Msg("Fatal initialization error")
	}
}

// initializeApp handles all application initialization after database connection.
// It collects all errors and ensures proper cleanup on failure.
// Returns error if any critical initialization step fails.
func initializeApp(cfg *config.Config, db *database.DB) error {
	log.Info().Msg("Database connected successfully")

	// Create context for graceful shutdown of health check goroutine
	healthCheckCtx, cancelHealthCheck := context.WithCancel(context.Background())
	// NOTE: Do NOT defer cancelHealthCheck() - it will be called explicitly in shutdown sequence

	// Start periodic database health check and metrics collection
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		failureCount := 0
		const (
			healthCheckTimeout = 5 * time.Second
			slowHealthCheckMs  = 1000 // Log if health check takes longer than 1 second
		)

		for {
			select {
			case <-healthCheckCtx.Done():
				log.Debug().Msg("Health check goroutine shutting down")
				return
			case <-ticker.C:
				// Create context with timeout, derived from healthCheckCtx for proper cancellation propagation
				ctx, cancel := context.WithTimeout(healthCheckCtx, healthCheckTimeout)

				// Measure health check duration
				startTime := time.Now()
				err := db.Pool.Ping(ctx)
				duration := time.Since(startTime)
				cancel()

				// Check if context was cancelled (shutdown signal)
				if healthCheckCtx.Err() != nil {
					log.Debug().Msg("Health check interrupted by shutdown signal")
					return
				}

				// Log slow health checks for monitoring
				if duration.Milliseconds() > int64(slowHealthCheckMs) {
					log.Warn().Int64("duration_ms", duration.Milliseconds()).Msg("Slow database health check")
				}

				if err != nil {
					failureCount++
					log.Warn().Err(err).Int("failure_count", failureCount).Int("max_failures", 3).Msg("Database health check failed")
					metrics.DBErrorsTotal.Inc()

					if failureCount >= 3 {
						log.Fatal().Msg("Database connection lost after 3 consecutive failures, shutting down")
					}
				} else {
					if failureCount > 0 {
						log.Info().Int("previous_failures", failureCount).Msg("Database health check recovered")
					}
					failureCount = 0
				}

				// Обновляем метрики подключений к БД
				stats := db.Pool.Stat()
				metrics.DBConnectionsActive.Set(float64(stats.AcquiredConns()))
				metrics.DBConnectionsIdle.Set(float64(stats.IdleConns()))
			}
		}
	}()

	// Initialize the scheduler adapters and the generation driver
	snapshotSource := postgres.NewSnapshotSource(db.Sqlx)
	priorEntries := postgres.NewPriorEntriesSource(db.Sqlx)
	entrySink := postgres.NewEntrySink(db.Sqlx)
	timetableStore := postgres.NewTimetableStore(db.Sqlx)

	driver := engine.NewDriver(snapshotSource, priorEntries, entrySink, timetableStore)
	driver.HeuristicParams.MaxConsecutiveSameSubject = cfg.Scheduler.MaxConsecutiveSameSubject
	driver.HeuristicParams.RoomPolicy = cfg.Scheduler.RoomPolicy
	driver.CPSATParams.TimeBudgetSeconds = cfg.Scheduler.CPSATTimeBudgetSeconds
	driver.CPSATParams.Workers = cfg.Scheduler.CPSATWorkers

	connManager := sse.NewConnectionManager()

	// Initialize middleware
	corsConfig := middleware.DefaultCORSConfig()

	// Add production domain to CORS if configured
	if cfg.Server.ProductionDomain != "" {
		corsConfig.AllowedOrigins = append(
			corsConfig.AllowedOrigins,
			"https://"+cfg.Server.ProductionDomain,
		)
		log.Info().Str("domain", cfg.Server.ProductionDomain).Msg("Added production domain to CORS allowed origins")
	}

	// Rate limiter для защиты от перегрузки триггером генерации
	generationRateLimiter := middleware.GenerationRateLimiterWithProxies(cfg.Server.TrustedProxies)

	// Initialize body limit config для защиты от DoS атак через большие payload'ы
	bodyLimitConfig := middleware.DefaultBodyLimitConfig()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db.Pool)
	generateHandler := handlers.NewGenerateHandler(driver, connManager)
	sseHandler := handlers.NewSSEHandler(connManager)

	// Setup router
	r := chi.NewRouter()

	// Global middleware (порядок важен!)
	r.Use(chiMiddleware.RequestID)                         // 1. Генерируем Request ID для трекинга
	r.Use(chiMiddleware.RealIP)                            // 2. Определяем реальный IP клиента
	r.Use(middleware.LoggingMiddleware)                    // 3. Логируем все запросы с метриками
	r.Use(middleware.MetricsMiddleware)                    // 4. Собираем Prometheus метрики
	r.Use(middleware.BodyLimitMiddleware(bodyLimitConfig)) // 5. Ограничиваем размер тела запроса (защита от DoS)
	r.Use(chiMiddleware.Recoverer)                         // 6. Обработка паник
	r.Use(middleware.CORSMiddleware(corsConfig))           // 7. CORS headers

	// Health check endpoint with database connectivity verification
	r.Get("/health", healthHandler.HealthCheck)

	// Prometheus metrics endpoint (без auth для Prometheus scraper)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/schools/{schoolId}/timetables/{timetableId}", func(r chi.Router) {
			// Triggers a generation run с rate limiting - операция тяжёлая
			r.With(middleware.RateLimitMiddleware(generationRateLimiter)).Post("/generate", generateHandler.TriggerGenerate)
			// Streams the in-flight run's log lines and final status
			r.Get("/events", sseHandler.WatchGeneration)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	// Use a channel to capture server startup errors
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	// Give server a brief moment to start, checking for immediate errors
	select {
	case err := <-serverErrChan:
		// Server failed to start - return error for cleanup
		cancelHealthCheck() // Cancel health check before returning
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully, continue
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server is shutting down")

	// GRACEFUL SHUTDOWN SEQUENCE (CRITICAL - ORDER MATTERS)
	// Purpose: Prevent panics from goroutines accessing database after Close()
	//         Ensure all dependencies are cleaned before DB connection closes
	//
	// Order of operations:
	// Phase 1: Shutdown HTTP server (stops accepting new requests)
	// Phase 2: Stop all background goroutines in reverse order of creation
	//          - Health check goroutine (primary consumer of DB)
	//          - Rate limiter cleanup goroutine
	// Phase 3: Wait brief grace period for goroutines to exit gracefully
	// Phase 4: Close database connection (after all goroutines have stopped)
	//
	// This ensures no goroutine tries to use DB after it's closed

	// PHASE 1: Shutdown HTTP server (stops accepting new requests)
	log.Debug().Msg("Phase 1: Shutting down HTTP server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Debug().Msg("Phase 1: HTTP server shutdown complete")

	// PHASE 2: Stop all background goroutines that use database
	// These must complete before database is closed
	log.Debug().Msg("Phase 2: Stopping background goroutines")

	// 2a. Stop health check goroutine
	cancelHealthCheck()
	log.Debug().Msg("  - Health check goroutine cancelled")

	// 2b. Stop rate limiter cleanup goroutine
	generationRateLimiter.Stop()
	log.Debug().Msg("  - Rate limiter cleanup stopped")

	// PHASE 3: Wait for background goroutines to exit
	// This gives background tasks time to notice context cancellation and cleanup
	// Goroutines must exit before database is closed to prevent:
	// - Panic from accessing closed connections
	// - Race conditions in cleanup code
	// - Orphaned database handles
	shutdownGracePeriod := time.Duration(200) * time.Millisecond
	log.Debug().Dur("grace_period", shutdownGracePeriod).Msg("Waiting for background goroutines to exit")
	time.Sleep(shutdownGracePeriod)

	// PHASE 4: Close database connection
	// At this point, all goroutines that use the database should have stopped:
	// - Health check goroutine (cancelled via healthCheckCtx)
	// - Rate limiter cleanup (stopped via Stop() call)
	// - Any in-flight HTTP requests (HTTP server already shutdown in Phase 1)
	log.Debug().Msg("Phase 4: Closing database connection")
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}
	log.Debug().Msg("Phase 4: Database connection closed")

	log.Info().Msg("Server shutdown complete")
	return nil
}
