// This file implements PostService: the demo post board plus S3 presigned
// URLs for post attachments.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	sc "github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for testing the AWS presign path without real credentials.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *PostService {
	return &PostService{db: db, repomanager: m, config: cfg}
}

// randomStorageKey spreads attachment objects by date to keep bucket
// listings manageable.
func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("posts/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// List returns all posts, newest first.
func (s *PostService) List(ctx context.Context) ([]*models.Post, error) {
	return s.repomanager.Posts(s.db).List(ctx)
}

// Create inserts a post owned by userID.
func (s *PostService) Create(ctx context.Context, userID, title, body string) (*models.Post, error) {
	post := &models.Post{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
		Body:   body,
	}
	return s.repomanager.Posts(s.db).Create(ctx, post)
}

// Delete removes a post. Only the owner may delete it; anyone else gets
// common.ErrorForbidden. The ownership check and the delete run in one
// transaction.
func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		post, err := repo.Get(ctx, postID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return common.ErrorForbidden
		}

		return repo.Delete(ctx, postID)
	})
}

func (s *PostService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// AttachmentUploadURL checks ownership, allocates a storage key for the post
// attachment, records it, and returns a presigned PUT URL the client uploads
// to directly.
func (s *PostService) AttachmentUploadURL(ctx context.Context, userID, postID string) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := randomStorageKey()
	var url string

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		post, err := repo.Get(ctx, postID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return common.ErrorForbidden
		}

		req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
			Bucket: &bucket,
			Key:    &key,
		}, s3.WithPresignExpires(15*time.Minute))
		if err != nil {
			return err
		}
		url = req.URL

		return repo.SetAttachmentKey(ctx, postID, key)
	})
	if err != nil {
		return "", "", err
	}

	return key, url, nil
}

// AttachmentDownloadURL returns a presigned GET URL for the post attachment,
// or common.ErrorNotFound if the post has none.
func (s *PostService) AttachmentDownloadURL(ctx context.Context, postID string) (string, error) {
	post, err := s.repomanager.Posts(s.db).Get(ctx, postID)
	if err != nil {
		return "", err
	}
	if post.AttachmentKey == "" {
		return "", common.ErrorNotFound
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &post.AttachmentKey,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
