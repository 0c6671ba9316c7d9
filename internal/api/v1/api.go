package v1

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/techmengg/wnreader/internal/middleware"
	"github.com/techmengg/wnreader/internal/storage"
	"github.com/techmengg/wnreader/internal/store"
	"github.com/techmengg/wnreader/internal/worker"
)

type Handler struct {
	store      *store.Store
	storage    storage.Storage
	uploadPool worker.WorkPool
}

// NewHandler is a constructor for the v1.Handler
func NewHandler(store *store.Store, storage storage.Storage, uploadPool worker.WorkPool) *Handler {
	return &Handler{
		store:      store,
		storage:    storage,
		uploadPool: uploadPool,
	}
}

func Server(router *mux.Router, handler *Handler) {
	sr := router.PathPrefix("/api/v1").Subrouter()
	sr.Use(middleware.HandleCORS)
	sr.Use(middleware.LoggingRequest)
	sr.Methods(http.MethodOptions)

	sr.HandleFunc("/books", handler.listBooks).Methods(http.MethodGet)
	sr.HandleFunc("/books", handler.addBookSingle).Methods(http.MethodPost)
	sr.HandleFunc("/books/batch", handler.addBookBatch).Methods(http.MethodPost)
	sr.HandleFunc("/books/{id:[0-9]+}", handler.getBook).Methods(http.MethodGet)
	sr.HandleFunc("/books/{id:[0-9]+}", handler.deleteBook).Methods(http.MethodDelete)
	sr.HandleFunc("/books/{id:[0-9]+}/chapters", handler.listChapters).Methods(http.MethodGet)
	sr.HandleFunc("/books/{id:[0-9]+}/chapters/{position:[0-9]+}", handler.getChapter).Methods(http.MethodGet)
	sr.HandleFunc("/jobs", handler.listJobs).Methods(http.MethodGet)
}
