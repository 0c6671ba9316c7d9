package store

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/model"
)

func (s *Store) GetChapter(find *model.FindChapter) (*model.Chapter, error) {
	list, err := s.ListChapters(find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) ListChapters(find *model.FindChapter) ([]*model.Chapter, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.BookID; v != nil {
		where, args = append(where, "book_id = ?"), append(args, *v)
	}
	if v := find.Position; v != nil {
		where, args = append(where, "position = ?"), append(args, *v)
	}

	// Chapter bodies carry inlined resources and can be large, listings
	// usually skip them.
	contentField := "content"
	if find.ContentLess {
		contentField = "''"
	}

	query := `
	    SELECT
	        id,
	        book_id,
	        position,
	        title,
	        ` + contentField + `
	    FROM chapter
	    WHERE ` + strings.Join(where, " AND ") + ` ORDER BY position`

	log.Debug("SQL query and args:")
	log.Fallback("Debug", fmt.Sprintf("query: %s\nargs: %v\n", query, args))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Error("Failed to query chapters", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	list := make([]*model.Chapter, 0)
	for rows.Next() {
		var chapter model.Chapter
		if err := rows.Scan(
			&chapter.ID,
			&chapter.BookID,
			&chapter.Position,
			&chapter.Title,
			&chapter.Content,
		); err != nil {
			log.Error("Failed to scan chapter", zap.Error(err))
			return nil, err
		}
		list = append(list, &chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
