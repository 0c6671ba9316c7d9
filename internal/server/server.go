package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/api/v1"
	"github.com/techmengg/wnreader/internal/config"
	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/storage"
	"github.com/techmengg/wnreader/internal/store"
	"github.com/techmengg/wnreader/internal/version"
	"github.com/techmengg/wnreader/internal/worker"
)

// StartServer starts the HTTP server. The caller owns shutdown, via
// http.Server.Shutdown on the returned server.
func StartServer(store *store.Store, storage storage.Storage, pool worker.WorkPool) *http.Server {
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Opts.Host, config.Opts.Port),
		Handler: setupHandler(store, storage, pool),
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	return server
}

func setupHandler(store *store.Store, storage storage.Storage, pool worker.WorkPool) http.Handler {
	router := mux.NewRouter()

	apiHandler := v1.NewHandler(store, storage, pool)
	v1.Server(router, apiHandler)

	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(); err != nil {
			log.Error("Healthcheck failed", zap.Error(err))
			http.Error(w, "Database Connection Error", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}).Name("healthcheck")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(version.GetCurrentVersion()))
	}).Name("version")

	return router
}
