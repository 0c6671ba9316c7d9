package v1

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/config"
	"github.com/techmengg/wnreader/internal/epub"
	"github.com/techmengg/wnreader/internal/http/request"
	"github.com/techmengg/wnreader/internal/http/response"
	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/model"
	"github.com/techmengg/wnreader/internal/util"
	"github.com/techmengg/wnreader/internal/worker"
)

var errUnsupportedType = errors.New("unsupported file type")

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	find := &model.FindBook{}
	if limit := request.QueryIntParam(r, "limit", 0); limit > 0 {
		find.Limit = &limit
		if offset := request.QueryIntParam(r, "offset", 0); offset > 0 {
			find.Offset = &offset
		}
	}

	books, err := h.store.ListBooks(find)
	if err != nil {
		log.Error("Error listing books", zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, books)
}

// addBookSingle stores the upload, imports it in the request, and
// returns the parsed book. The client learns about a bad archive
// immediately instead of having to poll the job.
func (h *Handler) addBookSingle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.Opts.MaxUploadSize<<20)
	if err := r.ParseMultipartForm(config.Opts.MaxUploadSize << 20); err != nil {
		log.Error("Max upload size exceeded",
			zap.Int64("max_upload_size_mib", config.Opts.MaxUploadSize),
			zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		response.BadRequest(w, r, errors.New("exactly one file is required"))
		return
	}

	job, err := h.saveUpload(files[0])
	if err != nil {
		if errors.Is(err, errUnsupportedType) {
			response.BadRequest(w, r, err)
			return
		}
		response.ServerError(w, r, err)
		return
	}

	book, err := worker.ImportSingle(r.Context(), h.store, h.storage, job)
	if err != nil {
		if epub.IsParseError(err) || errors.Is(err, worker.ErrDuplicateBook) {
			response.BadRequest(w, r, err)
			return
		}
		log.Error("Failed to import book", zap.Int("job_id", job.ID), zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	response.Created(w, r, book)
}

// addBookBatch queues every upload on the worker pool and returns the
// pending jobs. Results land in the store, GET /jobs reports progress.
func (h *Handler) addBookBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.Opts.MaxUploadSize<<20)
	if err := r.ParseMultipartForm(config.Opts.MaxUploadSize << 20); err != nil {
		log.Error("Max upload size exceeded",
			zap.Int64("max_upload_size_mib", config.Opts.MaxUploadSize),
			zap.Error(err))
		response.BadRequest(w, r, err)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		response.BadRequest(w, r, errors.New("at least one file is required"))
		return
	}

	jobs := make([]*model.ImportJob, 0, len(files))
	for _, file := range files {
		job, err := h.saveUpload(file)
		if err != nil {
			if errors.Is(err, errUnsupportedType) {
				response.BadRequest(w, r, err)
				return
			}
			response.ServerError(w, r, err)
			return
		}
		go h.uploadPool.Push(*job)
		jobs = append(jobs, job)
	}

	response.Accepted(w, r, jobs)
}

// saveUpload writes the file to storage and records a pending job for
// it. The stored key, not the client's filename, identifies the upload
// from here on.
func (h *Handler) saveUpload(file *multipart.FileHeader) (*model.ImportJob, error) {
	src, err := file.Open()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open upload")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read upload")
	}

	contentType := mimetype.Detect(data).String()
	if !config.CheckSupportedTypes(contentType) {
		log.Warn("Unsupported file type",
			zap.String("file_name", file.Filename),
			zap.String("content_type", contentType))
		return nil, errors.Wrapf(errUnsupportedType, "%s", contentType)
	}

	fileName := filepath.Base(file.Filename)
	if fileName == "." || fileName == "/" {
		fileName = "book.epub"
	}

	key, err := h.storage.Save(path.Join("books", util.GenUUID(), fileName), bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to store upload")
	}

	job, err := h.store.AddJob(&model.ImportJob{
		Path:     key,
		FileName: fileName,
		Status:   model.JobStatusPending,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to add job")
	}
	return job, nil
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	bookID := request.RouteIntParam(r, "id")
	if bookID == 0 {
		response.BadRequest(w, r, errors.New("invalid book ID"))
		return
	}

	book, err := h.store.GetBook(&model.FindBook{ID: &bookID})
	if err != nil {
		log.Error("Failed to get book", zap.Int("book_id", bookID), zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	if book == nil {
		response.NotFound(w, r)
		return
	}
	response.OK(w, r, book)
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := request.RouteIntParam(r, "id")
	if bookID == 0 {
		response.BadRequest(w, r, errors.New("invalid book ID"))
		return
	}

	book, err := h.store.GetBook(&model.FindBook{ID: &bookID})
	if err != nil {
		log.Error("Failed to get book", zap.Int("book_id", bookID), zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	if book == nil {
		response.NotFound(w, r)
		return
	}

	if err := h.store.RemoveBook(&model.FindBook{ID: &bookID}); err != nil {
		log.Error("Failed to delete book", zap.Int("book_id", bookID), zap.Error(err))
		response.ServerError(w, r, err)
		return
	}

	// The book row is gone either way, a stale archive only wastes disk.
	if err := h.storage.Remove(book.Path); err != nil {
		log.Warn("Failed to remove stored archive",
			zap.String("path", book.Path),
			zap.Error(err))
	}

	response.NoContent(w, r)
}
