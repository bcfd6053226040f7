package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // sentinel error comparisons
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/config"     // app configuration
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"      // domain models
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository" // DB repositories
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/utils"      // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

// Register: create user and return an access token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Email
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// reject duplicate registrations up front; the unique index on
	// users.email still backstops races at the DB level
	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}
	u := &model.User{Email: req.Email, DisplayName: req.DisplayName, PasswordHash: hash, IsActive: true}
	if err := h.Users.Create(ctx, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	return c.JSON(http.StatusCreated, authResp{
		User:   userPart{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Login: verify credentials and return a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	return c.JSON(http.StatusOK, authResp{
		User:   userPart{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
