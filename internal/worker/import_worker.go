package worker

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/config"
	"github.com/techmengg/wnreader/internal/epub"
	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/model"
	"github.com/techmengg/wnreader/internal/storage"
	"github.com/techmengg/wnreader/internal/store"
	"github.com/techmengg/wnreader/internal/util"
)

// ErrDuplicateBook marks an upload whose content already exists.
var ErrDuplicateBook = errors.New("book already exists")

type ImportPool struct {
	queue chan model.ImportJob
	wg    sync.WaitGroup
}

func NewImportPool(store *store.Store, storage storage.Storage, size int) *ImportPool {
	pool := &ImportPool{
		queue: make(chan model.ImportJob),
	}

	pool.wg.Add(size)
	for i := 0; i < size; i++ {
		worker := &ImportWorker{id: i, store: store, storage: storage}
		go func() {
			defer pool.wg.Done()
			worker.Run(pool.queue)
		}()
	}

	return pool
}

func (p *ImportPool) GetQueue() chan model.ImportJob {
	return p.queue
}

// Implement WorkPool interface
func (p *ImportPool) Push(job model.ImportJob) {
	p.queue <- job
}

// Shutdown stops accepting jobs and waits for in-flight imports.
func (p *ImportPool) Shutdown() {
	close(p.queue)
	p.wg.Wait()
}

type ImportWorker struct {
	id      int
	store   *store.Store
	storage storage.Storage
}

// Run drains the queue. A failed import marks its job failed and the
// worker moves on, one bad upload never stalls the pool.
func (w *ImportWorker) Run(c <-chan model.ImportJob) {
	log.Debug("ImportWorker is running", zap.Int("worker_id", w.id))

	for job := range c {
		log.Debug("Job received by worker",
			zap.Int("worker_id", w.id),
			zap.Int("job_id", job.ID),
			zap.String("file_name", job.FileName))

		if _, err := ImportSingle(context.Background(), w.store, w.storage, &job); err != nil {
			log.Error("Import failed",
				zap.Int("job_id", job.ID),
				zap.String("file_name", job.FileName),
				zap.Error(err))
		}
	}
}

// ImportSingle runs one import job to completion: load the stored
// archive, reject duplicates by content hash, parse, persist. The job
// status tracks every outcome. Blocking, also called directly by the
// synchronous upload API.
func ImportSingle(ctx context.Context, s *store.Store, st storage.Storage, job *model.ImportJob) (*model.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(config.Opts.ImportTimeout)*time.Minute)
	defer cancel()

	if _, err := s.UpdateJobStatus(job.ID, model.JobStatusRunning, ""); err != nil {
		log.Error("Failed to mark job running", zap.Int("job_id", job.ID), zap.Error(err))
	}

	data, err := st.Load(job.Path)
	if err != nil {
		return nil, failJob(s, job, errors.Wrap(err, "failed to load upload"))
	}

	hash, err := bookHash(data)
	if err != nil {
		st.Remove(job.Path)
		// Unreadable zip bytes are the same client fault the parser
		// reports, keep the taxonomy consistent for the API layer.
		return nil, failJob(s, job, errors.Wrapf(epub.ErrInvalidArchive, "failed to hash upload: %v", err))
	}
	if bookID, exists := s.CheckBookHash(hash); exists {
		log.Warn("Duplicate book detected, aborting import",
			zap.String("hash", hash),
			zap.Int("existing_book_id", bookID),
			zap.String("path", job.Path))
		st.Remove(job.Path)
		return nil, failJob(s, job, ErrDuplicateBook)
	}

	if err := ctx.Err(); err != nil {
		return nil, failJob(s, job, err)
	}

	parser := epub.NewParser()
	parser.CoverMaxWidth = config.Opts.CoverMaxWidth
	book, diags, err := parser.Parse(data, job.FileName)
	if err != nil {
		st.Remove(job.Path)
		return nil, failJob(s, job, err)
	}

	bookUUID := util.GenUUID()
	for _, diag := range diags {
		log.Info("Import diagnostic",
			zap.String("uuid", bookUUID),
			zap.String("file_name", job.FileName),
			zap.Int("chapter_index", diag.ChapterIndex),
			zap.String("kind", diag.Kind),
			zap.String("detail", diag.Detail))
	}

	if err := ctx.Err(); err != nil {
		st.Remove(job.Path)
		return nil, failJob(s, job, err)
	}

	newBook := &model.Book{
		UUID:        bookUUID,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		Cover:       book.CoverImage,
		Hash:        hash,
		Path:        job.Path,
	}
	chapters := make([]*model.Chapter, 0, len(book.Chapters))
	for _, chapter := range book.Chapters {
		chapters = append(chapters, &model.Chapter{
			Position: chapter.Position,
			Title:    chapter.Title,
			Content:  chapter.Content,
		})
	}

	returnBook, err := s.CreateBook(newBook, chapters)
	if err != nil {
		st.Remove(job.Path)
		return nil, failJob(s, job, errors.Wrap(err, "failed to persist book"))
	}

	if _, err := s.UpdateJobStatus(job.ID, model.JobStatusDone, ""); err != nil {
		log.Error("Failed to mark job done", zap.Int("job_id", job.ID), zap.Error(err))
	}

	log.Info("Book imported",
		zap.String("uuid", returnBook.UUID),
		zap.String("title", returnBook.Title),
		zap.Int("chapters", returnBook.ChapterCount),
		zap.Int("job_id", job.ID))
	return returnBook, nil
}

func failJob(s *store.Store, job *model.ImportJob, cause error) error {
	if _, err := s.UpdateJobStatus(job.ID, model.JobStatusFailed, cause.Error()); err != nil {
		log.Error("Failed to mark job failed", zap.Int("job_id", job.ID), zap.Error(err))
	}
	return cause
}

// bookHash fingerprints the archive content: entry bytes hashed in
// alphabetical entry order, so a repacked archive with identical content
// maps to the same book.
func bookHash(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return "", err
	}

	files := make([]*zip.File, len(r.File))
	copy(files, r.File)
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	hash := sha256.New()
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.Wrapf(err, "failed to open %s for hashing", f.Name)
		}
		if _, err := io.Copy(hash, rc); err != nil {
			rc.Close()
			return "", errors.Wrapf(err, "failed to hash %s", f.Name)
		}
		rc.Close()
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
