// Package api implements the HTTP client for the postboard server.
//
// Authenticated calls attach the session's access token as a Bearer
// header. When the server answers 401 the client refreshes the access
// token once and retries the original request; a second 401 surfaces
// as ErrUnauthorized.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/postboard/internal/client/models"
	"github.com/dmitrijs2005/postboard/internal/client/session"
	"github.com/dmitrijs2005/postboard/internal/common"
)

type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session

	// refreshMu serializes token refreshes so that concurrent 401s
	// produce a single /auth/refresh call.
	refreshMu sync.Mutex
}

func New(baseURL string, timeout time.Duration, sess *session.Session) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		session: sess,
	}
}

// envelope is the server's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*envelope, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return &env, resp.StatusCode, nil
}

// do performs a public (unauthenticated) request.
func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, int, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, 0, err
	}
	return c.send(req)
}

// doAuth performs an authenticated request. On a 401 it refreshes the
// access token once and retries the request with the new token.
func (c *Client) doAuth(ctx context.Context, method, path string, body any) (*envelope, int, error) {
	token := c.session.AccessToken()

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)

	env, code, err := c.send(req)
	if err != nil || code != http.StatusUnauthorized {
		return env, code, err
	}

	if err := c.refreshAccessToken(ctx, token); err != nil {
		return nil, code, err
	}

	req, err = c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+c.session.AccessToken())

	env, code, err = c.send(req)
	if err != nil {
		return nil, code, err
	}
	if code == http.StatusUnauthorized {
		c.session.Clear()
		return env, code, ErrUnauthorized
	}
	return env, code, nil
}

// refreshAccessToken exchanges the session's refresh token for a new
// access token. staleToken is the access token the caller saw fail;
// if another goroutine already refreshed past it, the refresh is
// skipped.
func (c *Client) refreshAccessToken(ctx context.Context, staleToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.session.AccessToken() != staleToken {
		return nil
	}

	refresh := c.session.RefreshToken()
	if refresh == "" {
		return ErrUnauthorized
	}

	env, code, err := c.do(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refresh})
	if err != nil {
		return err
	}
	if code != http.StatusOK || !env.Success {
		c.session.Clear()
		return ErrUnauthorized
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return err
	}

	c.session.SetAccessToken(data.Token)
	return nil
}

type authData struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.authenticate(ctx, "/auth/register", body)
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/auth/login", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*models.User, error) {
	env, code, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK || !env.Success {
		return nil, fmt.Errorf("%s", env.Message)
	}

	var data authData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}

	c.session.Set(data.Token, data.RefreshToken, data.User.Email)
	return data.User, nil
}

// Logout tells the server and wipes the local session. The server call
// is best effort: the session is cleared even if it fails.
func (c *Client) Logout(ctx context.Context) error {
	_, _, err := c.do(ctx, http.MethodPost, "/auth/logout", nil)
	c.session.Clear()
	return err
}

func (c *Client) ListPosts(ctx context.Context) ([]*models.Post, error) {
	env, code, err := c.do(ctx, http.MethodGet, "/posts", nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK || !env.Success {
		return nil, fmt.Errorf("%s", env.Message)
	}

	var data struct {
		Posts []*models.Post `json:"posts"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return data.Posts, nil
}

func (c *Client) CreatePost(ctx context.Context, title, body string) (*models.Post, error) {
	env, code, err := c.doAuth(ctx, http.MethodPost, "/posts", map[string]string{"title": title, "body": body})
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK || !env.Success {
		return nil, fmt.Errorf("%s", env.Message)
	}

	var data struct {
		Post *models.Post `json:"post"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return data.Post, nil
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	env, code, err := c.doAuth(ctx, http.MethodDelete, "/posts/"+postID, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK || !env.Success {
		return fmt.Errorf("%s", env.Message)
	}
	return nil
}

// AttachmentUploadURL asks the server for a presigned PUT URL for the
// post's attachment. Returns the storage key and the URL.
func (c *Client) AttachmentUploadURL(ctx context.Context, postID string) (string, string, error) {
	env, code, err := c.doAuth(ctx, http.MethodPost, "/posts/"+postID+"/attachment", nil)
	if err != nil {
		return "", "", err
	}
	if code != http.StatusOK || !env.Success {
		return "", "", fmt.Errorf("%s", env.Message)
	}

	var data struct {
		Key       string `json:"key"`
		UploadURL string `json:"uploadUrl"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", "", err
	}
	return data.Key, data.UploadURL, nil
}

// AttachmentDownloadURL asks the server for a presigned GET URL for the
// post's attachment.
func (c *Client) AttachmentDownloadURL(ctx context.Context, postID string) (string, error) {
	env, code, err := c.doAuth(ctx, http.MethodGet, "/posts/"+postID+"/attachment", nil)
	if err != nil {
		return "", err
	}
	if code != http.StatusOK || !env.Success {
		return "", fmt.Errorf("%s", env.Message)
	}

	var data struct {
		DownloadURL string `json:"downloadUrl"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", err
	}
	return data.DownloadURL, nil
}
