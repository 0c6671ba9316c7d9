package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/techmengg/wnreader/internal/config"
	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/model"
	"github.com/techmengg/wnreader/internal/store/db"
)

// Initialize the logger and config
func init() {
	config.Opts = config.GetDefaultOptions()
	config.Opts.LogFile = filepath.Join(os.TempDir(), "wnreader-store-test.log")
	log.Logger = log.NewLogger()
}

func newTestStore(t *testing.T) *Store {
	dir := t.TempDir()
	config.Opts.Data = dir
	config.Opts.DSN = filepath.Join(dir, "wnreader.db")

	d, err := db.NewDB()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return NewStore(d)
}

func testBook(hash string) *model.Book {
	return &model.Book{
		UUID:        "11111111-2222-3333-4444-555555555555",
		Title:       "The Test Book",
		Author:      "A. Writer",
		Description: "About testing.",
		Cover:       "data:image/png;base64,aGk=",
		Hash:        hash,
		Path:        "/books/uuid/test.epub",
	}
}

func testChapters() []*model.Chapter {
	return []*model.Chapter{
		{Position: 0, Title: "One", Content: "<h1>One</h1><p>First chapter.</p>"},
		{Position: 1, Title: "Two", Content: "<h1>Two</h1><p>Second chapter.</p>"},
	}
}

func TestCreateAndGetBook(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateBook(testBook("hash-1"), testChapters())
	if err != nil {
		t.Fatalf("Failed to create book: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("Expected a book ID to be assigned")
	}
	if created.ChapterCount != 2 {
		t.Fatalf("Expected chapter count 2, got %d", created.ChapterCount)
	}
	if created.CreatedTs == 0 {
		t.Fatalf("Expected created_ts to be set")
	}

	got, err := s.GetBook(&model.FindBook{ID: &created.ID})
	if err != nil {
		t.Fatalf("Failed to get book: %v", err)
	}
	if got == nil || got.Title != "The Test Book" {
		t.Fatalf("Unexpected book: %+v", got)
	}

	byUUID, err := s.GetBook(&model.FindBook{UUID: &created.UUID})
	if err != nil {
		t.Fatalf("Failed to get book by uuid: %v", err)
	}
	if byUUID == nil || byUUID.ID != created.ID {
		t.Fatalf("Unexpected book by uuid: %+v", byUUID)
	}
}

func TestListBooksPagination(t *testing.T) {
	s := newTestStore(t)

	for i, title := range []string{"First", "Second", "Third"} {
		book := testBook("")
		book.UUID = book.UUID[:35] + string(rune('a'+i))
		book.Title = title
		if _, err := s.CreateBook(book, testChapters()); err != nil {
			t.Fatalf("Failed to create book %q: %v", title, err)
		}
	}

	all, err := s.ListBooks(&model.FindBook{})
	if err != nil {
		t.Fatalf("Failed to list books: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 books, got %d", len(all))
	}

	limit, offset := 2, 1
	page, err := s.ListBooks(&model.FindBook{Limit: &limit, Offset: &offset})
	if err != nil {
		t.Fatalf("Failed to list books with pagination: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 books in page, got %d", len(page))
	}
}

func TestListChapters(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateBook(testBook("hash-2"), testChapters())
	if err != nil {
		t.Fatalf("Failed to create book: %v", err)
	}

	full, err := s.ListChapters(&model.FindChapter{BookID: &created.ID})
	if err != nil {
		t.Fatalf("Failed to list chapters: %v", err)
	}
	if len(full) != 2 {
		t.Fatalf("Expected 2 chapters, got %d", len(full))
	}
	if full[0].Position != 0 || full[1].Position != 1 {
		t.Fatalf("Chapters out of order: %d, %d", full[0].Position, full[1].Position)
	}
	if full[0].Content == "" {
		t.Fatalf("Expected chapter content to be present")
	}

	light, err := s.ListChapters(&model.FindChapter{BookID: &created.ID, ContentLess: true})
	if err != nil {
		t.Fatalf("Failed to list chapters without content: %v", err)
	}
	if light[0].Content != "" {
		t.Fatalf("Expected chapter content to be dropped")
	}
	if light[0].Title != "One" {
		t.Fatalf("Expected chapter title to survive, got %q", light[0].Title)
	}

	position := 1
	chapter, err := s.GetChapter(&model.FindChapter{BookID: &created.ID, Position: &position})
	if err != nil {
		t.Fatalf("Failed to get chapter: %v", err)
	}
	if chapter == nil || chapter.Title != "Two" {
		t.Fatalf("Unexpected chapter: %+v", chapter)
	}
}

func TestRemoveBook(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateBook(testBook("hash-3"), testChapters())
	if err != nil {
		t.Fatalf("Failed to create book: %v", err)
	}

	if err := s.RemoveBook(&model.FindBook{ID: &created.ID}); err != nil {
		t.Fatalf("Failed to remove book: %v", err)
	}

	got, err := s.GetBook(&model.FindBook{ID: &created.ID})
	if err != nil {
		t.Fatalf("Failed to get book after removal: %v", err)
	}
	if got != nil {
		t.Fatalf("Expected book to be gone, got %+v", got)
	}

	chapters, err := s.ListChapters(&model.FindChapter{BookID: &created.ID})
	if err != nil {
		t.Fatalf("Failed to list chapters after removal: %v", err)
	}
	if len(chapters) != 0 {
		t.Fatalf("Expected chapters to be gone, got %d", len(chapters))
	}

	// Removing a missing book is not an error.
	missing := 9999
	if err := s.RemoveBook(&model.FindBook{ID: &missing}); err != nil {
		t.Fatalf("Expected removing a missing book to be a no-op: %v", err)
	}
}

func TestCheckBookHash(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateBook(testBook("hash-4"), testChapters())
	if err != nil {
		t.Fatalf("Failed to create book: %v", err)
	}

	id, ok := s.CheckBookHash("hash-4")
	if !ok {
		t.Fatalf("Expected hash to be found")
	}
	if id != created.ID {
		t.Fatalf("Expected book ID %d, got %d", created.ID, id)
	}

	if _, ok := s.CheckBookHash("no-such-hash"); ok {
		t.Fatalf("Expected unknown hash to be missing")
	}
}

func TestJobLifecycle(t *testing.T) {
	s := newTestStore(t)

	job, err := s.AddJob(&model.ImportJob{
		Path:     "/books/tmp/upload.epub",
		FileName: "upload.epub",
		Status:   model.JobStatusPending,
	})
	if err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}
	if job.ID == 0 || job.Status != model.JobStatusPending {
		t.Fatalf("Unexpected job: %+v", job)
	}

	if _, err := s.UpdateJobStatus(job.ID, model.JobStatusRunning, ""); err != nil {
		t.Fatalf("Failed to update job status: %v", err)
	}
	updated, err := s.UpdateJobStatus(job.ID, model.JobStatusFailed, "book already exists")
	if err != nil {
		t.Fatalf("Failed to update job status: %v", err)
	}
	if updated.Status != model.JobStatusFailed || updated.Detail != "book already exists" {
		t.Fatalf("Unexpected job after update: %+v", updated)
	}

	got, err := s.GetJob(&model.FindImportJob{ID: &job.ID})
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if got.Status != model.JobStatusFailed {
		t.Fatalf("Expected failed status, got %q", got.Status)
	}

	status := model.JobStatusFailed
	list, err := s.ListJobs(&model.FindImportJob{Status: &status})
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 failed job, got %d", len(list))
	}
}
