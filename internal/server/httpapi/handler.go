package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/services"
)

const maxBodySize = 1 << 20 // 1MB

// MinPasswordLength is the shortest password register accepts.
const MinPasswordLength = 6

// UserService is the auth surface the handlers need.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	Refresh(refreshToken string) (string, error)
}

// PostService is the post-board surface the handlers need.
type PostService interface {
	List(ctx context.Context) ([]*models.Post, error)
	Create(ctx context.Context, userID, title, body string) (*models.Post, error)
	Delete(ctx context.Context, userID, postID string) error
	AttachmentUploadURL(ctx context.Context, userID, postID string) (string, string, error)
	AttachmentDownloadURL(ctx context.Context, postID string) (string, error)
}

// Handler holds the HTTP endpoint implementations.
type Handler struct {
	users  UserService
	posts  PostService
	tokens TokenVerifier
	logger logging.Logger
}

func NewHandler(users UserService, posts PostService, tokens TokenVerifier, logger logging.Logger) *Handler {
	return &Handler{
		users:  users,
		posts:  posts,
		tokens: tokens,
		logger: logger.With("module", "httpapi"),
	}
}

// RegisterRoutes attaches all endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)

	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)

	mux.HandleFunc("GET /posts", h.handleListPosts)
	mux.HandleFunc("POST /posts", h.requireAuth(h.handleCreatePost))
	mux.HandleFunc("DELETE /posts/{id}", h.requireAuth(h.handleDeletePost))
	mux.HandleFunc("POST /posts/{id}/attachment", h.requireAuth(h.handleAttachmentUpload))
	mux.HandleFunc("GET /posts/{id}/attachment", h.requireAuth(h.handleAttachmentDownload))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// decode parses a JSON request body into dst; an empty body leaves dst
// zero-valued so field validation produces the endpoint's own message.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	user, pair, err := h.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error(ctx, "login failed", "error", err.Error())
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.logger.Info(ctx, "user logged in", "userId", user.ID)
	respondOK(w, "Login successful", map[string]any{
		"user":         user.Public(),
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "All fields required")
		return
	}
	if len(req.Password) < MinPasswordLength {
		respondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	user, pair, err := h.users.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			respondError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		h.logger.Error(ctx, "registration failed", "error", err.Error())
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.logger.Info(ctx, "user registered", "userId", user.ID)
	respondOK(w, "Registration successful", map[string]any{
		"user":         user.Public(),
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "Refresh token required")
		return
	}

	token, err := h.users.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) {
			respondError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		h.logger.Error(r.Context(), "refresh failed", "error", err.Error())
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondOK(w, "Token refreshed", map[string]any{"token": token})
}

// handleLogout is stateless: there is no server-side revocation store, the
// client discards its tokens.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	respondOK(w, "Logged out successfully", nil)
}

func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "list posts failed", "error", err.Error())
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	respondOK(w, "OK", map[string]any{"posts": posts})
}

type createPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPostRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title required")
		return
	}

	post, err := h.posts.Create(ctx, userIDFrom(ctx), req.Title, req.Body)
	if err != nil {
		h.logger.Error(ctx, "create post failed", "error", err.Error())
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondOK(w, "Post created", map[string]any{"post": post})
}

func (h *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.posts.Delete(ctx, userIDFrom(ctx), r.PathValue("id"))
	if err != nil {
		h.respondPostError(w, r, err, "delete post failed")
		return
	}

	respondOK(w, "Post deleted", nil)
}

func (h *Handler) handleAttachmentUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, url, err := h.posts.AttachmentUploadURL(ctx, userIDFrom(ctx), r.PathValue("id"))
	if err != nil {
		h.respondPostError(w, r, err, "presign upload failed")
		return
	}

	respondOK(w, "Upload URL issued", map[string]any{"key": key, "uploadUrl": url})
}

func (h *Handler) handleAttachmentDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	url, err := h.posts.AttachmentDownloadURL(ctx, r.PathValue("id"))
	if err != nil {
		h.respondPostError(w, r, err, "presign download failed")
		return
	}

	respondOK(w, "Download URL issued", map[string]any{"downloadUrl": url})
}

func (h *Handler) respondPostError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		respondError(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, common.ErrorForbidden):
		respondError(w, http.StatusForbidden, "Forbidden")
	default:
		h.logger.Error(r.Context(), logMsg, "error", err.Error())
		respondError(w, http.StatusInternalServerError, "Server error")
	}
}
