package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"reviewhub/internal/httpapi"
)

func (h *Handler) listTitles(c *gin.Context) {
	f := TitleFilter{
		Category: c.Query("category"),
		Genre:    c.Query("genre"),
		Name:     c.Query("name"),
		Year:     parseInt(c.Query("year"), 0),
		Limit:    parseInt(c.Query("limit"), 20),
		Offset:   parseInt(c.Query("offset"), 0),
	}

	ctx := c.Request.Context()
	total, err := h.Repo.CountTitles(ctx, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.ListTitles(ctx, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "limit": f.Limit, "offset": f.Offset, "items": items})
}

func (h *Handler) getTitle(c *gin.Context) {
	id, ok := titleID(c)
	if !ok {
		return
	}

	t, err := h.Repo.GetTitle(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "title not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

type createTitleReq struct {
	Name        string   `json:"name" binding:"required,max=256"`
	Year        int      `json:"year" binding:"required"`
	Description string   `json:"description" binding:"omitempty,max=4000"`
	Category    string   `json:"category" binding:"required,max=50,slug"`
	Genre       []string `json:"genre" binding:"required,min=1,dive,max=50,slug"`
}

func (h *Handler) createTitle(c *gin.Context) {
	var req createTitleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	if req.Year > time.Now().Year() {
		httpapi.FieldErrors(c, map[string]string{"year": "year cannot be in the future"})
		return
	}

	t, err := h.Repo.CreateTitle(c.Request.Context(), req.Name, req.Year, req.Description, req.Category, req.Genre)
	if err != nil {
		respondTitleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

type patchTitleReq struct {
	Name        *string   `json:"name" binding:"omitempty,max=256"`
	Year        *int      `json:"year"`
	Description *string   `json:"description" binding:"omitempty,max=4000"`
	Category    *string   `json:"category" binding:"omitempty,max=50,slug"`
	Genre       *[]string `json:"genre" binding:"omitempty,min=1,dive,max=50,slug"`
}

func (h *Handler) patchTitle(c *gin.Context) {
	id, ok := titleID(c)
	if !ok {
		return
	}

	var req patchTitleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	if req.Year != nil && *req.Year > time.Now().Year() {
		httpapi.FieldErrors(c, map[string]string{"year": "year cannot be in the future"})
		return
	}

	t, err := h.Repo.UpdateTitle(c.Request.Context(), id, TitlePatch{
		Name:         req.Name,
		Year:         req.Year,
		Description:  req.Description,
		CategorySlug: req.Category,
		GenreSlugs:   req.Genre,
	})
	if err != nil {
		respondTitleError(c, err)
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "title not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) deleteTitle(c *gin.Context) {
	id, ok := titleID(c)
	if !ok {
		return
	}

	deleted, err := h.Repo.DeleteTitle(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "title not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func respondTitleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownCategory):
		httpapi.FieldErrors(c, map[string]string{"category": "no category with this slug"})
	case errors.Is(err, ErrUnknownGenre):
		httpapi.FieldErrors(c, map[string]string{"genre": "no genre with this slug"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
	}
}

func titleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("title_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return 0, false
	}
	return id, true
}
