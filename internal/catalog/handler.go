package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"reviewhub/internal/httpapi"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes wires the catalog endpoints. Reads are public; every write
// runs through authn + the catalog-admin guard.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authn, catalogAdmin gin.HandlerFunc) {
	rg.GET("/categories", h.listCategories)
	rg.POST("/categories", authn, catalogAdmin, h.createCategory)
	rg.DELETE("/categories/:slug", authn, catalogAdmin, h.deleteCategory)

	rg.GET("/genres", h.listGenres)
	rg.POST("/genres", authn, catalogAdmin, h.createGenre)
	rg.DELETE("/genres/:slug", authn, catalogAdmin, h.deleteGenre)

	rg.GET("/titles", h.listTitles)
	rg.GET("/titles/:title_id", h.getTitle)
	rg.POST("/titles", authn, catalogAdmin, h.createTitle)
	rg.PATCH("/titles/:title_id", authn, catalogAdmin, h.patchTitle)
	rg.DELETE("/titles/:title_id", authn, catalogAdmin, h.deleteTitle)
}

type namedReq struct {
	Name string `json:"name" binding:"required,max=256"`
	Slug string `json:"slug" binding:"required,max=50,slug"`
}

func (h *Handler) listCategories(c *gin.Context) {
	search := c.Query("search")
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	ctx := c.Request.Context()
	total, err := h.Repo.CountCategories(ctx, search)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.ListCategories(ctx, search, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "limit": limit, "offset": offset, "items": items})
}

func (h *Handler) createCategory(c *gin.Context) {
	var req namedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	if err := h.Repo.CreateCategory(c.Request.Context(), req.Name, req.Slug); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			httpapi.FieldErrors(c, map[string]string{"slug": "a category with this slug already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name, "slug": req.Slug})
}

func (h *Handler) deleteCategory(c *gin.Context) {
	ok, err := h.Repo.DeleteCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listGenres(c *gin.Context) {
	search := c.Query("search")
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	ctx := c.Request.Context()
	total, err := h.Repo.CountGenres(ctx, search)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.ListGenres(ctx, search, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "limit": limit, "offset": offset, "items": items})
}

func (h *Handler) createGenre(c *gin.Context) {
	var req namedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	if err := h.Repo.CreateGenre(c.Request.Context(), req.Name, req.Slug); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			httpapi.FieldErrors(c, map[string]string{"slug": "a genre with this slug already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name, "slug": req.Slug})
}

func (h *Handler) deleteGenre(c *gin.Context) {
	ok, err := h.Repo.DeleteGenre(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "genre not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
