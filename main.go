package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/customsdash/backend/src/config"
	"github.com/username/customsdash/backend/src/database"
	"github.com/username/customsdash/backend/src/handlers"
	"github.com/username/customsdash/backend/src/logger"
	"github.com/username/customsdash/backend/src/parsers"
	"github.com/username/customsdash/backend/src/processors"
	"github.com/username/customsdash/backend/src/services"
	"github.com/username/customsdash/backend/src/utils"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(allowed []string) func(http.Handler) http.Handler {
	allowedOrigins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allowedOrigins[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Requested-With, If-None-Match")
				w.Header().Set("Access-Control-Expose-Headers", "ETag, Content-Disposition")
			} else if origin == "" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == "OPTIONS" {
				logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Customs dashboard backend starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	normalizer := processors.NewSchemaNormalizer(
		config.Cfg.Aliases,
		config.Cfg.HSColumnNames,
		utils.NewNumberCoercer(config.Cfg.CurrencyTokens),
		utils.NewMonthLocalizer(config.Cfg.MonthLocale),
	)
	chartProcessor := processors.NewChartProcessor(config.Cfg.OtherLabel, config.Cfg.TopKCategories)

	datasetService := services.NewDatasetService(
		normalizer,
		chartProcessor,
		database.NewSourceRepository(database.DB),
		reportCache,
		services.DatasetServiceOptions{
			ParseOptions: parsers.Options{
				Encodings: config.Cfg.Encodings,
				Delimiter: config.Cfg.Delimiter,
			},
			DefaultSourcePath: config.Cfg.DefaultSourcePath,
			DashboardTTL:      config.Cfg.DashboardCacheTTL,
			ClampTopN:         config.Cfg.ClampTopN,
		},
	)

	uploadHandler := handlers.NewUploadHandler(datasetService, config.Cfg.MaxUploadSizeBytes)
	datasetHandler := handlers.NewDatasetHandler(datasetService, config.Cfg.LimitTopKCategories)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/datasets", uploadHandler.HandleUpload)
	apiRouter.HandleFunc("GET /api/datasets/{id}", datasetHandler.HandleGetSummary)
	apiRouter.HandleFunc("GET /api/datasets/{id}/records", datasetHandler.HandleGetRecords)
	apiRouter.HandleFunc("GET /api/datasets/{id}/dashboard", datasetHandler.HandleGetDashboard)
	apiRouter.HandleFunc("GET /api/datasets/{id}/export.csv", datasetHandler.HandleExportCSV)
	apiRouter.HandleFunc("GET /api/datasets/{id}/export.xlsx", datasetHandler.HandleExportXLSX)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Customs dashboard backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(config.Cfg.AllowedOrigins)(rateLimitMiddleware(handlers.RequestLogger(rootMux)))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
