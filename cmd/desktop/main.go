// InfoVault desktop server. Serves the catalog REST API and WebSocket
// change feed on localhost for the desktop client.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kimhsiao/infovault/backend/cmd/desktop/handlers"
	"github.com/kimhsiao/infovault/backend/internal/db"
	"github.com/kimhsiao/infovault/backend/internal/export"
	"github.com/kimhsiao/infovault/backend/internal/logging"
	"github.com/kimhsiao/infovault/backend/internal/media"
)

const (
	defaultPort       = "8090"
	thumbnailWorkers  = 2
	thumbnailQueueLen = 64
)

func main() {
	dataDir := flag.String("data-dir", envOr("INFOVAULT_DATA_DIR", defaultDataDir()), "directory for the database and thumbnails")
	port := flag.String("port", envOr("INFOVAULT_PORT", defaultPort), "port to listen on")
	logLevel := flag.String("log-level", envOr("INFOVAULT_LOG_LEVEL", "info"), "minimum log level (debug, info, warn, error)")
	flag.Parse()

	logging.Init(os.Stderr, logging.ParseLevel(*logLevel))

	database, err := db.Open(*dataDir)
	if err != nil {
		logging.Error("failed to open database", err, nil)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Bootstrap(database.DB); err != nil {
		logging.Error("failed to bootstrap schema", err, nil)
		os.Exit(1)
	}

	repo := db.NewRepository(database.DB)
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	thumbs := media.NewQueue(thumbnailQueueLen, thumbnailWorkers)
	thumbs.Start(ctx)
	defer thumbs.Stop()

	hub := NewWSHub()
	exportSvc := export.NewService(repo)

	mux := newRouter(repo, exportSvc, hub, thumbs, filepath.Join(*dataDir, "thumbnails"))

	server := &http.Server{
		Addr:         "localhost:" + *port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logging.Info("server listening", logging.Fields{
			"addr":     server.Addr,
			"data_dir": *dataDir,
			"database": database.Path(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("server failed", err, nil)
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("shutdown failed", err, nil)
	}
}

// newRouter builds the route table.
func newRouter(repo *db.Repository, exportSvc *export.Service, hub *WSHub, thumbs *media.Queue, thumbDir string) *http.ServeMux {
	projects := handlers.NewProjectHandler(repo, hub)
	items := handlers.NewItemHandler(repo, hub, thumbs, thumbDir)
	search := handlers.NewSearchHandler(repo)
	exports := handlers.NewExportHandler(exportSvc, hub)
	metadata := handlers.NewMetadataHandler(repo)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/projects", projects.List)
	mux.HandleFunc("POST /api/projects", projects.Create)
	mux.HandleFunc("GET /api/projects/{id}", projects.Get)
	mux.HandleFunc("PUT /api/projects/{id}", projects.Update)
	mux.HandleFunc("DELETE /api/projects/{id}", projects.Delete)

	mux.HandleFunc("GET /api/items", items.List)
	mux.HandleFunc("POST /api/items", items.Create)
	mux.HandleFunc("GET /api/items/{id}", items.Get)
	mux.HandleFunc("PUT /api/items/{id}", items.Update)
	mux.HandleFunc("DELETE /api/items/{id}", items.Delete)

	mux.HandleFunc("GET /api/search", search.Search)
	mux.HandleFunc("GET /api/items/type/{type}", search.ByType)
	mux.HandleFunc("GET /api/items/tags/{tags}", search.ByTags)

	mux.HandleFunc("GET /api/export", exports.Export)
	mux.HandleFunc("POST /api/import", exports.Import)

	mux.HandleFunc("POST /api/metadata", metadata.Extract)
	// Not nested under /api/items/{id}: a third pattern there would
	// conflict with the type/ and tags/ routes in ServeMux matching.
	mux.HandleFunc("GET /api/preview/{id}", metadata.Preview)

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /ws", HandleWebSocket(hub))

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"infovault-desktop"}`))
}

// defaultDataDir is ~/.infovault, falling back to the working
// directory when the home directory cannot be resolved.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".infovault"
	}
	return filepath.Join(home, ".infovault")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
