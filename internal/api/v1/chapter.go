package v1

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/http/request"
	"github.com/techmengg/wnreader/internal/http/response"
	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/model"
)

// listChapters returns the chapters of a book in reading order, without
// the HTML bodies.
func (h *Handler) listChapters(w http.ResponseWriter, r *http.Request) {
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

	chapters, err := h.store.ListChapters(&model.FindChapter{BookID: &bookID, ContentLess: true})
	if err != nil {
		log.Error("Failed to list chapters", zap.Int("book_id", bookID), zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	response.OK(w, r, chapters)
}

// getChapter returns one chapter with its full HTML body.
func (h *Handler) getChapter(w http.ResponseWriter, r *http.Request) {
	bookID := request.RouteIntParam(r, "id")
	if bookID == 0 {
		response.BadRequest(w, r, errors.New("invalid book ID"))
		return
	}
	position := request.RouteIntParam(r, "position")

	chapter, err := h.store.GetChapter(&model.FindChapter{BookID: &bookID, Position: &position})
	if err != nil {
		log.Error("Failed to get chapter",
			zap.Int("book_id", bookID),
			zap.Int("position", position),
			zap.Error(err))
		response.ServerError(w, r, err)
		return
	}
	if chapter == nil {
		response.NotFound(w, r)
		return
	}
	response.OK(w, r, chapter)
}
