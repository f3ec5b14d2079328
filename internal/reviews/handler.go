package reviews

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"reviewhub/internal/auth"
	"reviewhub/internal/feed"
	"reviewhub/internal/httpapi"
	"reviewhub/pkg/models"
)

type Handler struct {
	Repo *Repo
	Feed *feed.Hub
}

func NewHandler(repo *Repo, hub *feed.Hub) *Handler {
	return &Handler{Repo: repo, Feed: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authn gin.HandlerFunc) {
	rg.GET("/titles/:title_id/reviews", h.list)
	rg.GET("/titles/:title_id/reviews/:review_id", h.get)
	rg.POST("/titles/:title_id/reviews", authn, h.create)
	rg.PATCH("/titles/:title_id/reviews/:review_id", authn, h.patch)
	rg.DELETE("/titles/:title_id/reviews/:review_id", authn, h.delete)
}

func (h *Handler) list(c *gin.Context) {
	titleID, ok := pathID(c, "title_id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	exists, err := h.Repo.TitleExists(ctx, titleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "title not found"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	total, err := h.Repo.CountByTitle(ctx, titleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.ListByTitle(ctx, titleID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "limit": limit, "offset": offset, "items": items})
}

func (h *Handler) get(c *gin.Context) {
	rv, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rv)
}

type createReq struct {
	Text  string `json:"text" binding:"required,max=4000"`
	Score *int   `json:"score" binding:"required,gte=1,lte=10"`
}

func (h *Handler) create(c *gin.Context) {
	titleID, ok := pathID(c, "title_id")
	if !ok {
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	exists, err := h.Repo.TitleExists(ctx, titleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "title not found"})
		return
	}

	claims := auth.MustGetClaims(c)

	// Advisory pre-check for a friendly error; the unique constraint
	// below still decides under concurrent creates.
	dup, err := h.Repo.Exists(ctx, titleID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if dup {
		httpapi.FieldErrors(c, map[string]string{"title": "you have already reviewed this title"})
		return
	}

	rv, err := h.Repo.Create(ctx, titleID, claims.UserID, req.Text, *req.Score)
	if err != nil {
		if errors.Is(err, ErrDuplicateReview) {
			httpapi.FieldErrors(c, map[string]string{"title": "you have already reviewed this title"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	h.Feed.Publish(feed.Event{
		Type:     feed.ReviewCreated,
		TitleID:  titleID,
		ReviewID: rv.ID,
		Author:   rv.Author,
		At:       time.Now().UTC(),
	})
	c.JSON(http.StatusCreated, rv)
}

type patchReq struct {
	Text  *string `json:"text" binding:"omitempty,max=4000"`
	Score *int    `json:"score" binding:"omitempty,gte=1,lte=10"`
}

func (h *Handler) patch(c *gin.Context) {
	rv, ok := h.lookup(c)
	if !ok {
		return
	}

	claims := auth.MustGetClaims(c)
	if !auth.CanModifyContent(claims.Role, claims.UserID, rv.AuthorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to modify this review"})
		return
	}

	var req patchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	if req.Text != nil {
		rv.Text = *req.Text
	}
	if req.Score != nil {
		rv.Score = *req.Score
	}

	if err := h.Repo.Update(c.Request.Context(), rv); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.Feed.Publish(feed.Event{
		Type:     feed.ReviewUpdated,
		TitleID:  rv.TitleID,
		ReviewID: rv.ID,
		Author:   rv.Author,
		At:       time.Now().UTC(),
	})
	c.JSON(http.StatusOK, rv)
}

func (h *Handler) delete(c *gin.Context) {
	rv, ok := h.lookup(c)
	if !ok {
		return
	}

	claims := auth.MustGetClaims(c)
	if !auth.CanModifyContent(claims.Role, claims.UserID, rv.AuthorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to delete this review"})
		return
	}

	deleted, err := h.Repo.Delete(c.Request.Context(), rv.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}

	h.Feed.Publish(feed.Event{
		Type:     feed.ReviewDeleted,
		TitleID:  rv.TitleID,
		ReviewID: rv.ID,
		Author:   rv.Author,
		At:       time.Now().UTC(),
	})
	c.Status(http.StatusNoContent)
}

// lookup resolves the title-scoped review from the path, writing the error
// response itself when the review cannot be served.
func (h *Handler) lookup(c *gin.Context) (*models.Review, bool) {
	titleID, ok := pathID(c, "title_id")
	if !ok {
		return nil, false
	}
	reviewID, ok := pathID(c, "review_id")
	if !ok {
		return nil, false
	}

	rv, err := h.Repo.GetByID(c.Request.Context(), titleID, reviewID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return nil, false
	}
	if rv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return nil, false
	}
	return rv, true
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
