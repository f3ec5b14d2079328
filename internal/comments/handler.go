package comments

import (
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
	base := "/titles/:title_id/reviews/:review_id/comments"
	rg.GET(base, h.list)
	rg.GET(base+"/:comment_id", h.get)
	rg.POST(base, authn, h.create)
	rg.PATCH(base+"/:comment_id", authn, h.patch)
	rg.DELETE(base+"/:comment_id", authn, h.delete)
}

func (h *Handler) list(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	exists, err := h.Repo.ReviewExists(ctx, titleID, reviewID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	total, err := h.Repo.CountByReview(ctx, reviewID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.ListByReview(ctx, reviewID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "limit": limit, "offset": offset, "items": items})
}

func (h *Handler) get(c *gin.Context) {
	cm, _, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cm)
}

type createReq struct {
	Text string `json:"text" binding:"required,max=4000"`
}

func (h *Handler) create(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	exists, err := h.Repo.ReviewExists(ctx, titleID, reviewID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return
	}

	claims := auth.MustGetClaims(c)
	cm, err := h.Repo.Create(ctx, reviewID, claims.UserID, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	h.Feed.Publish(feed.Event{
		Type:      feed.CommentCreated,
		TitleID:   titleID,
		ReviewID:  reviewID,
		CommentID: cm.ID,
		Author:    cm.Author,
		At:        time.Now().UTC(),
	})
	c.JSON(http.StatusCreated, cm)
}

type patchReq struct {
	Text *string `json:"text" binding:"omitempty,max=4000"`
}

func (h *Handler) patch(c *gin.Context) {
	cm, titleID, ok := h.lookup(c)
	if !ok {
		return
	}

	claims := auth.MustGetClaims(c)
	if !auth.CanModifyContent(claims.Role, claims.UserID, cm.AuthorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to modify this comment"})
		return
	}

	var req patchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	if req.Text != nil {
		cm.Text = *req.Text
	}

	if err := h.Repo.Update(c.Request.Context(), cm); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.Feed.Publish(feed.Event{
		Type:      feed.CommentUpdated,
		TitleID:   titleID,
		ReviewID:  cm.ReviewID,
		CommentID: cm.ID,
		Author:    cm.Author,
		At:        time.Now().UTC(),
	})
	c.JSON(http.StatusOK, cm)
}

func (h *Handler) delete(c *gin.Context) {
	cm, titleID, ok := h.lookup(c)
	if !ok {
		return
	}

	claims := auth.MustGetClaims(c)
	if !auth.CanModifyContent(claims.Role, claims.UserID, cm.AuthorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to delete this comment"})
		return
	}

	deleted, err := h.Repo.Delete(c.Request.Context(), cm.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}

	h.Feed.Publish(feed.Event{
		Type:      feed.CommentDeleted,
		TitleID:   titleID,
		ReviewID:  cm.ReviewID,
		CommentID: cm.ID,
		Author:    cm.Author,
		At:        time.Now().UTC(),
	})
	c.Status(http.StatusNoContent)
}

func (h *Handler) lookup(c *gin.Context) (*models.Comment, int64, bool) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return nil, 0, false
	}
	commentID, ok := pathID(c, "comment_id")
	if !ok {
		return nil, 0, false
	}

	ctx := c.Request.Context()
	exists, err := h.Repo.ReviewExists(ctx, titleID, reviewID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return nil, 0, false
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "review not found"})
		return nil, 0, false
	}

	cm, err := h.Repo.GetByID(ctx, reviewID, commentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return nil, 0, false
	}
	if cm == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return nil, 0, false
	}
	return cm, titleID, true
}

func reviewPath(c *gin.Context) (titleID, reviewID int64, ok bool) {
	titleID, ok = pathID(c, "title_id")
	if !ok {
		return 0, 0, false
	}
	reviewID, ok = pathID(c, "review_id")
	if !ok {
		return 0, 0, false
	}
	return titleID, reviewID, true
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
