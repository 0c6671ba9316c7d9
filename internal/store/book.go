package store

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/model"
)

// CreateBook inserts the book and all its chapters in one transaction.
// ChapterCount is derived from the chapter slice, not taken from the book.
func (s *Store) CreateBook(book *model.Book, chapters []*model.Chapter) (*model.Book, error) {
	stmt := `
        INSERT INTO book (
            uuid,
            title,
            author,
            description,
            cover,
            hash,
            path,
            chapter_count
        ) VALUES (?,?,?,?,?,?,?,?)
        RETURNING id, uuid, title, author, description, cover, hash, path, chapter_count, created_ts, updated_ts`
	args := []any{
		book.UUID,
		book.Title,
		book.Author,
		book.Description,
		book.Cover,
		book.Hash,
		book.Path,
		len(chapters),
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %v\n", stmt, args))

	var newBook model.Book
	if err := tx.QueryRow(stmt, args...).Scan(
		&newBook.ID,
		&newBook.UUID,
		&newBook.Title,
		&newBook.Author,
		&newBook.Description,
		&newBook.Cover,
		&newBook.Hash,
		&newBook.Path,
		&newBook.ChapterCount,
		&newBook.CreatedTs,
		&newBook.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert book record")
	}

	chapterStmt := `
        INSERT INTO chapter (
            book_id,
            position,
            title,
            content
        ) VALUES (?,?,?,?)`
	for _, chapter := range chapters {
		if _, err := tx.Exec(chapterStmt, newBook.ID, chapter.Position, chapter.Title, chapter.Content); err != nil {
			return nil, errors.Wrapf(err, "failed to insert chapter %d", chapter.Position)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.BookCache.Store(newBook.ID, &newBook)
	return &newBook, nil
}

func (s *Store) GetBook(find *model.FindBook) (*model.Book, error) {
	if find.ID != nil {
		if cache, ok := s.BookCache.Load(*find.ID); ok {
			return cache.(*model.Book), nil
		}
	}

	list, err := s.ListBooks(find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	book := list[0]
	s.BookCache.Store(book.ID, book)
	return book, nil
}

func (s *Store) ListBooks(find *model.FindBook) ([]*model.Book, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.UUID; v != nil {
		where, args = append(where, "uuid = ?"), append(args, *v)
	}
	if v := find.Title; v != nil {
		where, args = append(where, "title = ?"), append(args, *v)
	}
	if v := find.Author; v != nil {
		where, args = append(where, "author = ?"), append(args, *v)
	}

	query := `
	    SELECT
	        id,
	        uuid,
	        title,
	        author,
	        description,
	        cover,
	        hash,
	        path,
	        chapter_count,
	        created_ts,
	        updated_ts
	    FROM book
	    WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if v := find.Limit; v != nil {
		query += fmt.Sprintf(" LIMIT %d", *v)
		if v := find.Offset; v != nil {
			query += fmt.Sprintf(" OFFSET %d", *v)
		}
	}

	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %v\n", query, args))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Error("Failed to query books", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.Book, 0)
	for rows.Next() {
		var book model.Book
		if err := rows.Scan(
			&book.ID,
			&book.UUID,
			&book.Title,
			&book.Author,
			&book.Description,
			&book.Cover,
			&book.Hash,
			&book.Path,
			&book.ChapterCount,
			&book.CreatedTs,
			&book.UpdatedTs,
		); err != nil {
			log.Error("Failed to scan book", zap.Error(err))
			return nil, err
		}
		list = append(list, &book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// RemoveBook deletes the book and its chapters. The stored archive file
// is the caller's to clean up, the store never touches the filesystem.
func (s *Store) RemoveBook(find *model.FindBook) error {
	books, err := s.ListBooks(find)
	if err != nil {
		return errors.Wrap(err, "failed to find book for deletion")
	}
	if len(books) == 0 {
		log.Warn("Attempted to delete a book that does not exist", zap.Any("find", find))
		return nil
	}

	bookID := books[0].ID

	s.dbLock.Lock()
	defer s.dbLock.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chapter WHERE book_id = ?", bookID); err != nil {
		return errors.Wrap(err, "failed to delete from chapter table")
	}
	if _, err := tx.Exec("DELETE FROM book WHERE id = ?", bookID); err != nil {
		return errors.Wrap(err, "failed to delete from book table")
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.BookCache.Delete(bookID)
	log.Info("Book deleted", zap.Int("bookID", bookID))
	return nil
}

// CheckBookHash returns the ID of the book with the given content hash,
// for duplicate detection on import.
func (s *Store) CheckBookHash(hash string) (int, bool) {
	stmt := `SELECT id FROM book WHERE hash = ?`
	args := []any{hash}

	var bookID int
	if err := s.db.QueryRow(stmt, args...).Scan(&bookID); err != nil {
		return 0, false
	}
	return bookID, true
}
