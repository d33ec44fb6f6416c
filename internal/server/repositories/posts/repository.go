// Package posts contains the demo post-board repository.
package posts

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	SetAttachmentKey(ctx context.Context, id, key string) error
}
