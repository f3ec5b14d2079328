package users

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reviewhub/internal/auth"
	"reviewhub/internal/httpapi"
	"reviewhub/pkg/models"
)

// Handler exposes the admin user-management endpoints and the "me" profile
// endpoints. It reuses the auth package's user repository.
type Handler struct {
	Repo *auth.Repo
}

func NewHandler(repo *auth.Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authn, adminOnly gin.HandlerFunc) {
	rg.GET("/users/me", authn, h.me)
	rg.PATCH("/users/me", authn, h.patchMe)

	rg.GET("/users", authn, adminOnly, h.list)
	rg.POST("/users", authn, adminOnly, h.create)
	rg.GET("/users/:username", authn, adminOnly, h.get)
	rg.PATCH("/users/:username", authn, adminOnly, h.patch)
	rg.DELETE("/users/:username", authn, adminOnly, h.delete)
}

func (h *Handler) me(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, u)
}

type patchMeReq struct {
	Username  *string `json:"username" binding:"omitempty,max=150,username"`
	Email     *string `json:"email" binding:"omitempty,email,max=254"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Bio       *string `json:"bio" binding:"omitempty,max=1000"`
	// Role is accepted but ignored: read-only through this path.
	Role *string `json:"role"`
}

func (h *Handler) patchMe(c *gin.Context) {
	var req patchMeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	claims := auth.MustGetClaims(c)
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	if fields, ok := applyProfilePatch(u, req.Username, req.Email, req.FirstName, req.LastName, req.Bio); !ok {
		httpapi.FieldErrors(c, fields)
		return
	}

	if err := h.Repo.Update(c.Request.Context(), u); err != nil {
		respondUpdateError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) list(c *gin.Context) {
	search := c.Query("search")
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	ctx := c.Request.Context()
	total, err := h.Repo.Count(ctx, search)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.List(ctx, search, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

type createReq struct {
	Username  string `json:"username" binding:"required,max=150,username"`
	Email     string `json:"email" binding:"required,email,max=254"`
	FirstName string `json:"first_name" binding:"omitempty,max=150"`
	LastName  string `json:"last_name" binding:"omitempty,max=150"`
	Bio       string `json:"bio" binding:"omitempty,max=1000"`
	Role      string `json:"role" binding:"omitempty,oneof=user moderator admin"`
}

// create provisions a user directly. Admin-created accounts are active
// immediately; they still go through signup/token to obtain credentials.
func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	username := strings.TrimSpace(req.Username)
	if strings.EqualFold(username, "me") {
		httpapi.FieldErrors(c, map[string]string{"username": `"me" is reserved and cannot be used as a username`})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}

	u := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     strings.TrimSpace(strings.ToLower(req.Email)),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      role,
		Active:    true,
	}

	if err := h.Repo.Create(c.Request.Context(), u); err != nil {
		respondUpdateError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &u)
}

func (h *Handler) get(c *gin.Context) {
	u, err := h.Repo.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}

type patchReq struct {
	Username  *string `json:"username" binding:"omitempty,max=150,username"`
	Email     *string `json:"email" binding:"omitempty,email,max=254"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Bio       *string `json:"bio" binding:"omitempty,max=1000"`
	Role      *string `json:"role" binding:"omitempty,oneof=user moderator admin"`
}

func (h *Handler) patch(c *gin.Context) {
	var req patchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	u, err := h.Repo.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if fields, ok := applyProfilePatch(u, req.Username, req.Email, req.FirstName, req.LastName, req.Bio); !ok {
		httpapi.FieldErrors(c, fields)
		return
	}
	if req.Role != nil {
		u.Role = *req.Role
	}

	if err := h.Repo.Update(c.Request.Context(), u); err != nil {
		respondUpdateError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) delete(c *gin.Context) {
	ok, err := h.Repo.DeleteByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func applyProfilePatch(u *models.User, username, email, firstName, lastName, bio *string) (map[string]string, bool) {
	if username != nil {
		trimmed := strings.TrimSpace(*username)
		if strings.EqualFold(trimmed, "me") {
			return map[string]string{"username": `"me" is reserved and cannot be used as a username`}, false
		}
		u.Username = trimmed
	}
	if email != nil {
		u.Email = strings.TrimSpace(strings.ToLower(*email))
	}
	if firstName != nil {
		u.FirstName = *firstName
	}
	if lastName != nil {
		u.LastName = *lastName
	}
	if bio != nil {
		u.Bio = *bio
	}
	return nil, true
}

func respondUpdateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		httpapi.FieldErrors(c, map[string]string{"email": "a user with this email already exists"})
	case errors.Is(err, auth.ErrUsernameTaken):
		httpapi.FieldErrors(c, map[string]string{"username": "a user with this username already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
	}
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
