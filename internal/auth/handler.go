package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reviewhub/internal/httpapi"
	"reviewhub/internal/mailer"
	"reviewhub/pkg/models"
)

type Handler struct {
	Repo    *Repo
	Tokens  TokenService
	Mailer  mailer.Mailer
	CodeTTL time.Duration
}

func NewHandler(repo *Repo, tokens TokenService, m mailer.Mailer, codeTTL time.Duration) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, Mailer: m, CodeTTL: codeTTL}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/signup", h.signup)
	rg.POST("/token", h.token)
}

type signupReq struct {
	Username string `json:"username" binding:"required,max=150,username"`
	Email    string `json:"email" binding:"required,email,max=254"`
}

// signup registers a new user or, for an exact (username, email) match,
// regenerates the confirmation code. Re-signup deactivates the account until
// the next successful token exchange.
func (h *Handler) signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if strings.EqualFold(username, "me") {
		httpapi.FieldErrors(c, map[string]string{"username": `"me" is reserved and cannot be used as a username`})
		return
	}

	ctx := c.Request.Context()

	byEmail, err := h.Repo.GetByEmail(ctx, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	byUsername, err := h.Repo.GetByUsername(ctx, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	// Cross-check: both lookups must agree on the same account (or on no
	// account at all). A partial match means the caller is colliding with
	// someone else's username or email.
	if !sameUser(byEmail, byUsername) {
		fields := map[string]string{}
		if byEmail != nil {
			fields["email"] = "a user with this email already exists"
		}
		if byUsername != nil {
			fields["username"] = "a user with this username already exists"
		}
		httpapi.FieldErrors(c, fields)
		return
	}

	user := byEmail
	if user == nil {
		user = &models.User{
			ID:       uuid.NewString(),
			Username: username,
			Email:    email,
			Role:     models.RoleUser,
		}
		if err := h.Repo.Create(ctx, *user); err != nil {
			switch {
			case errors.Is(err, ErrEmailTaken):
				httpapi.FieldErrors(c, map[string]string{"email": "a user with this email already exists"})
			case errors.Is(err, ErrUsernameTaken):
				httpapi.FieldErrors(c, map[string]string{"username": "a user with this username already exists"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
			}
			return
		}
	}

	code, hash, err := NewConfirmationCode()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirmation code failed"})
		return
	}
	if err := h.Repo.SetConfirmation(ctx, user.ID, hash, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirmation code failed"})
		return
	}

	if err := h.Mailer.SendConfirmationCode(ctx, user.Email, user.Username, code); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to deliver confirmation email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": user.Username,
		"email":    user.Email,
	})
}

func sameUser(a, b *models.User) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.ID == b.ID
}

type tokenReq struct {
	Username         string `json:"username" binding:"required,max=150,username"`
	ConfirmationCode string `json:"confirmation_code" binding:"required,max=64"`
}

// token exchanges a valid confirmation code for an access token and
// activates the account. Codes are single-use: the stored hash is cleared on
// success.
func (h *Handler) token(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.BindError(c, err)
		return
	}

	ctx := c.Request.Context()

	u, err := h.Repo.GetByUsername(ctx, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	hash, sentAt, pending, err := h.Repo.Confirmation(ctx, u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !pending {
		httpapi.FieldErrors(c, map[string]string{"confirmation_code": "no pending confirmation code; sign up again"})
		return
	}
	if time.Since(sentAt) > h.CodeTTL {
		httpapi.FieldErrors(c, map[string]string{"confirmation_code": "confirmation code expired; sign up again"})
		return
	}
	if !CheckConfirmationCode(hash, req.ConfirmationCode) {
		httpapi.FieldErrors(c, map[string]string{"confirmation_code": "invalid confirmation code"})
		return
	}

	if err := h.Repo.Activate(ctx, u.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "activate failed"})
		return
	}
	u.Active = true

	token, _, err := h.Tokens.Sign(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
