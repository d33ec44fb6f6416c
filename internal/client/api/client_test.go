package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/postboard/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, code int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"message": message,
		"data":    data,
	})
}

func newClientFor(srv *httptest.Server) (*Client, *session.Session) {
	sess := session.New()
	return New(srv.URL, 5*time.Second, sess), sess
}

func TestLogin_SetsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.com", body["email"])

		writeEnvelope(w, http.StatusOK, true, "Login successful", map[string]any{
			"user":         map[string]any{"id": "u1", "email": "a@x.com", "name": "Alice", "role": "user"},
			"token":        "acc",
			"refreshToken": "ref",
		})
	}))
	defer srv.Close()

	c, sess := newClientFor(srv)

	user, err := c.Login(context.Background(), "a@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "acc", sess.AccessToken())
	assert.Equal(t, "ref", sess.RefreshToken())
	assert.Equal(t, "a@x.com", sess.Email())
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, false, "Invalid email or password", nil)
	}))
	defer srv.Close()

	c, sess := newClientFor(srv)

	_, err := c.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")
	assert.False(t, sess.LoggedIn())
}

func TestLogin_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, _ := newClientFor(srv)

	_, err := c.Login(context.Background(), "a@x.com", "secret123")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreatePost_RefreshesOnceOn401(t *testing.T) {
	var postCalls, refreshCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts":
			n := postCalls.Add(1)
			auth := r.Header.Get("Authorization")
			if n == 1 {
				assert.Equal(t, "Bearer stale", auth)
				writeEnvelope(w, http.StatusUnauthorized, false, "Invalid or expired token", nil)
				return
			}
			assert.Equal(t, "Bearer fresh", auth)
			writeEnvelope(w, http.StatusOK, true, "Post created", map[string]any{
				"post": map[string]any{"id": "p1", "title": "hello"},
			})
		case "/auth/refresh":
			refreshCalls.Add(1)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ref", body["refreshToken"])
			writeEnvelope(w, http.StatusOK, true, "Token refreshed", map[string]any{"token": "fresh"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c, sess := newClientFor(srv)
	sess.Set("stale", "ref", "a@x.com")

	post, err := c.CreatePost(context.Background(), "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, "fresh", sess.AccessToken())
	assert.Equal(t, int32(2), postCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
}

func TestCreatePost_SecondUnauthorizedClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts":
			writeEnvelope(w, http.StatusUnauthorized, false, "Invalid or expired token", nil)
		case "/auth/refresh":
			writeEnvelope(w, http.StatusOK, true, "Token refreshed", map[string]any{"token": "still-bad"})
		}
	}))
	defer srv.Close()

	c, sess := newClientFor(srv)
	sess.Set("stale", "ref", "a@x.com")

	_, err := c.CreatePost(context.Background(), "hello", "world")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, sess.LoggedIn())
}

func TestCreatePost_FailedRefreshClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts":
			writeEnvelope(w, http.StatusUnauthorized, false, "Invalid or expired token", nil)
		case "/auth/refresh":
			writeEnvelope(w, http.StatusUnauthorized, false, "Invalid or expired refresh token", nil)
		}
	}))
	defer srv.Close()

	c, sess := newClientFor(srv)
	sess.Set("stale", "ref", "a@x.com")

	_, err := c.CreatePost(context.Background(), "hello", "world")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, sess.LoggedIn())
}

func TestCreatePost_NoRefreshTokenFailsFast(t *testing.T) {
	var refreshCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts":
			writeEnvelope(w, http.StatusUnauthorized, false, "Invalid or expired token", nil)
		case "/auth/refresh":
			refreshCalls.Add(1)
		}
	}))
	defer srv.Close()

	c, sess := newClientFor(srv)
	sess.SetAccessToken("stale")

	_, err := c.CreatePost(context.Background(), "hello", "world")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	var refreshCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts":
			auth := r.Header.Get("Authorization")
			if strings.HasSuffix(auth, "stale") {
				writeEnvelope(w, http.StatusUnauthorized, false, "Invalid or expired token", nil)
				return
			}
			writeEnvelope(w, http.StatusOK, true, "Post created", map[string]any{
				"post": map[string]any{"id": "p1"},
			})
		case "/auth/refresh":
			refreshCalls.Add(1)
			writeEnvelope(w, http.StatusOK, true, "Token refreshed", map[string]any{"token": "fresh"})
		}
	}))
	defer srv.Close()

	c, sess := newClientFor(srv)
	sess.Set("stale", "ref", "a@x.com")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.CreatePost(context.Background(), "hello", "world")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), refreshCalls.Load(), "stale token must trigger exactly one refresh")
}

func TestListPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GET", r.Method)
		assert.Empty(t, r.Header.Get("Authorization"), "listing is public")
		writeEnvelope(w, http.StatusOK, true, "OK", map[string]any{
			"posts": []map[string]any{
				{"id": "p1", "title": "first"},
				{"id": "p2", "title": "second"},
			},
		})
	}))
	defer srv.Close()

	c, _ := newClientFor(srv)

	posts, err := c.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "first", posts[0].Title)
}

func TestDeletePost_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "DELETE", r.Method)
		require.Equal(t, "/posts/p1", r.URL.Path)
		writeEnvelope(w, http.StatusForbidden, false, "Forbidden", nil)
	}))
	defer srv.Close()

	c, sess := newClientFor(srv)
	sess.Set("acc", "ref", "a@x.com")

	err := c.DeletePost(context.Background(), "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Forbidden")
}

func TestLogout_ClearsSessionEvenOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, sess := newClientFor(srv)
	sess.Set("acc", "ref", "a@x.com")

	err := c.Logout(context.Background())
	assert.Error(t, err)
	assert.False(t, sess.LoggedIn())
}

func TestAttachmentURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/posts/p1/attachment", r.URL.Path)
		switch r.Method {
		case "POST":
			writeEnvelope(w, http.StatusOK, true, "Upload URL issued", map[string]any{
				"key": "posts/k", "uploadUrl": "https://s3/put",
			})
		case "GET":
			writeEnvelope(w, http.StatusOK, true, "Download URL issued", map[string]any{
				"downloadUrl": "https://s3/get",
			})
		}
	}))
	defer srv.Close()

	c, sess := newClientFor(srv)
	sess.Set("acc", "ref", "a@x.com")

	key, putURL, err := c.AttachmentUploadURL(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "posts/k", key)
	assert.Equal(t, "https://s3/put", putURL)

	getURL, err := c.AttachmentDownloadURL(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/get", getURL)
}
