package api

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthrec/internal/auth"
	"github.com/Skufu/healthrec/internal/logging"
	"github.com/Skufu/healthrec/internal/models"
	"github.com/Skufu/healthrec/internal/store"
)

type SignupRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Password    string `json:"password" binding:"required,min=6,max=72"`
	Role        string `json:"role" binding:"omitempty,max=32"`
	Age         *int   `json:"age" binding:"omitempty,min=0,max=150"`
	Gender      string `json:"gender" binding:"omitempty,max=32"`
	Preferences string `json:"preferences" binding:"omitempty,max=2000"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type ProfileRequest struct {
	Age         *int    `json:"age" binding:"omitempty,min=0,max=150"`
	Gender      *string `json:"gender" binding:"omitempty,max=32"`
	Preferences *string `json:"preferences" binding:"omitempty,max=2000"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// UserSummary is what the debug listing exposes; password hashes never leave the store.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *handler) signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		respondInternal(c, err, "hash password")
		return
	}

	u := &models.User{
		Username:       req.Username,
		HashedPassword: hash,
		Role:           req.Role,
		Age:            req.Age,
		Gender:         req.Gender,
		Preferences:    req.Preferences,
	}
	if err := h.Repo.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			respondError(c, http.StatusBadRequest, CodeUsernameTaken, "Username already exists")
			return
		}
		respondInternal(c, err, "create user")
		return
	}

	logging.Ctx(c.Request.Context()).Info().Uint("user_id", u.ID).Str("role", u.Role).Msg("user signed up")
	c.JSON(http.StatusCreated, MessageResponse{Msg: "User created successfully"})
}

func (h *handler) login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	u, err := h.Hasher.Authenticate(c.Request.Context(), h.Repo, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", "Bearer")
			respondError(c, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password")
			return
		}
		respondInternal(c, err, "authenticate")
		return
	}

	token, err := h.JWT.GenerateToken(u.ID, u.Username, u.Role)
	if err != nil {
		respondInternal(c, err, "issue token")
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.JWT.TTL().Seconds()),
	})
}

func (h *handler) getProfile(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	u, err := h.Repo.UserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) updateProfile(c *gin.Context) {
	var req ProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	claims, _ := auth.ClaimsFrom(c)
	u, err := h.Repo.UpdateProfile(c.Request.Context(), claims.UserID, store.ProfileUpdate{
		Age:         req.Age,
		Gender:      req.Gender,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *handler) respondUserError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, CodeNotFound, "user no longer exists")
		return
	}
	respondInternal(c, err, "load user")
}

// debugUsers lists accounts for operators holding the admin key. With no key
// configured every request is refused.
func (h *handler) debugUsers(c *gin.Context) {
	want := h.Options.DebugAdminKey
	got := c.Query("admin_key")
	if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		logging.Ctx(c.Request.Context()).Warn().Str("client_ip", c.ClientIP()).Msg("debug listing refused")
		respondError(c, http.StatusForbidden, CodeForbidden, "Forbidden")
		return
	}

	users, err := h.Repo.ListUsers(c.Request.Context())
	if err != nil {
		respondInternal(c, err, "list users")
		return
	}

	out := make([]UserSummary, len(users))
	for i, u := range users {
		out[i] = UserSummary{ID: u.ID, Username: u.Username, Role: u.Role}
	}
	c.JSON(http.StatusOK, out)
}
