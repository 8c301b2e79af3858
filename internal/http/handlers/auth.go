package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/geocoder89/sitecms/internal/actorctx"
	"github.com/geocoder89/sitecms/internal/auth"
	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/domain/user"
	"github.com/geocoder89/sitecms/internal/security"
	"github.com/geocoder89/sitecms/internal/store"
)

type AuthHandler struct {
	users    store.UserRepository
	sessions *auth.Manager
	cfg      config.Config
}

func NewAuthHandler(users store.UserRepository, sessions *auth.Manager, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
	}
}

func (h *AuthHandler) Login(ctx *gin.Context, _ []string) error {
	var req user.LoginRequest

	err := ctx.ShouldBindJSON(&req)
	if tooLarge(err) {
		return errBodyTooLarge
	}
	if err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		RespondBadRequest(ctx, "email and password required")
		return nil
	}

	// short timeout for the lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnauthorized(ctx, "Invalid credentials")
			return nil
		}
		return err
	}

	if !security.CheckPassword(req.Password, found.PasswordSalt, found.PasswordHash) {
		RespondUnauthorized(ctx, "Invalid credentials")
		return nil
	}

	if err := h.issueSession(ctx, found); err != nil {
		return err
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"user": found.Public(),
	})
	return nil
}

// Logout only clears the cookie; tokens are not tracked server side.
func (h *AuthHandler) Logout(ctx *gin.Context, _ []string) error {
	h.clearSessionCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
	return nil
}

func (h *AuthHandler) Me(ctx *gin.Context, _ []string) error {
	claims, ok := actorctx.ClaimsFrom(ctx.Request.Context())
	if !ok {
		ctx.JSON(http.StatusOK, gin.H{"user": nil})
		return nil
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, claims.UserID)
	if err != nil {
		// a valid token for a user that no longer exists is no session
		if errors.Is(err, user.ErrNotFound) {
			ctx.JSON(http.StatusOK, gin.H{"user": nil})
			return nil
		}
		return err
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.Public()})
	return nil
}

// UpdateMe changes name, email or password of the caller. A new email or
// a cleared password-change flag gets a fresh cookie since the token
// carries both.
func (h *AuthHandler) UpdateMe(ctx *gin.Context, _ []string) error {
	claims, ok := actorctx.ClaimsFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, "Unauthorized")
		return nil
	}

	var req user.UpdateMeRequest
	if !BindJSON(ctx, &req) {
		return nil
	}

	var p user.Profile

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return newValidationError([]FieldError{{Field: "name", Rule: "required", Message: validationMessage("required", "")}})
		}
		p.Name = &name
	}
	if req.Email != nil {
		email := user.NormalizeEmail(*req.Email)
		p.Email = &email
	}
	if req.Password != nil {
		salt, hash, err := security.HashPassword(*req.Password)
		if err != nil {
			return err
		}
		p.PasswordSalt = &salt
		p.PasswordHash = &hash
	}

	if p.Empty() {
		return BadRequest("Nothing to update")
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.UpdateProfile(cctx, claims.UserID, p)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnauthorized(ctx, "Unauthorized")
			return nil
		}
		return err
	}

	if u.Email != claims.Email || u.MustChangePassword != claims.MustChangePassword {
		if err := h.issueSession(ctx, u); err != nil {
			return err
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"user": u.Public(),
	})
	return nil
}

// Register creates another dashboard account. Admin only.
func (h *AuthHandler) Register(ctx *gin.Context, _ []string) error {
	var req user.RegisterRequest
	if !BindJSON(ctx, &req) {
		return nil
	}

	salt, hash, err := security.HashPassword(req.Password)
	if err != nil {
		return err
	}

	role := req.Role
	if role == "" {
		role = user.RoleEditor
	}

	now := time.Now().UTC()

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, user.User{
		ID:           uuid.NewString(),
		Email:        user.NormalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		PasswordSalt: salt,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return err
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u.Public()})
	return nil
}

func (h *AuthHandler) issueSession(ctx *gin.Context, u user.User) error {
	token, err := h.sessions.Mint(auth.Claims{
		UserID:             u.ID,
		Email:              u.Email,
		Role:               u.Role,
		MustChangePassword: u.MustChangePassword,
	})
	if err != nil {
		return err
	}

	h.setSessionCookie(ctx, token, int(h.sessions.TTL().Seconds()))
	return nil
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		auth.CookieName,
		token,
		maxAge,
		"/",
		"",
		h.cfg.Env == "prod",
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	h.setSessionCookie(ctx, "", -1)
}
