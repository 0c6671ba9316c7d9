package model

type Book struct {
	ID          int    `json:"id"`
	UUID        string `json:"uuid"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	// Cover is a data URI, empty when the book has none.
	Cover string `json:"cover"`
	// Hash fingerprints the archive content, for duplicate detection.
	Hash string `json:"-"`
	// Path is the storage key of the original upload.
	Path         string `json:"path"`
	ChapterCount int    `json:"chapter_count"`
	CreatedTs    int64  `json:"created_ts"`
	UpdatedTs    int64  `json:"updated_ts"`
}

type FindBook struct {
	ID     *int    `json:"id"`
	UUID   *string `json:"uuid"`
	Title  *string `json:"title"`
	Author *string `json:"author"`

	// The maximum number of books to return.
	Limit  *int `json:"limit"`
	Offset *int `json:"offset"`
}

type Chapter struct {
	ID     int `json:"id"`
	BookID int `json:"book_id"`
	// Position is the zero-based index in the book's reading order.
	Position int    `json:"position"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

type FindChapter struct {
	BookID   *int `json:"book_id"`
	Position *int `json:"position"`

	// ContentLess drops the content column, for chapter listings.
	ContentLess bool `json:"-"`
}
