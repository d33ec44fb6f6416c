// Package cli implements the interactive PostBoard command-line client.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/postboard/internal/client/api"
	"github.com/dmitrijs2005/postboard/internal/client/config"
	"github.com/dmitrijs2005/postboard/internal/client/models"
	"github.com/dmitrijs2005/postboard/internal/client/session"
)

// backend is the API surface the CLI commands need. The real
// implementation is api.Client; tests provide a stub.
type backend interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
	ListPosts(ctx context.Context) ([]*models.Post, error)
	CreatePost(ctx context.Context, title, body string) (*models.Post, error)
	DeletePost(ctx context.Context, postID string) error
	AttachmentUploadURL(ctx context.Context, postID string) (string, string, error)
	AttachmentDownloadURL(ctx context.Context, postID string) (string, error)
}

type App struct {
	config  *config.Config
	api     backend
	session *session.Session
	reader  *bufio.Reader
}

func NewApp(c *config.Config) *App {
	sess := session.New()
	client := api.New(c.ServerURL, c.RequestTimeout, sess)

	return &App{config: c, api: client, session: sess, reader: bufio.NewReader(os.Stdin)}
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session.LoggedIn()
}
