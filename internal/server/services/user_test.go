package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	postsrepo "github.com/dmitrijs2005/postboard/internal/server/repositories/posts"
	usersrepo "github.com/dmitrijs2005/postboard/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newTokenManager() *auth.Manager {
	return auth.NewManager([]byte("test-access"), []byte("test-refresh"), time.Hour, 2*time.Hour)
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error

	lastGetEmail    string
	lastCreateEmail string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.lastCreateEmail = u.Email
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.lastGetEmail = email
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakePostsRepo struct {
	listOut []*models.Post
	listErr error

	getOut *models.Post
	getErr error

	createErr error
	deleteErr error

	deletedID         string
	attachmentPostID  string
	attachmentLastKey string
	setKeyErr         error
}

func (f *fakePostsRepo) List(ctx context.Context) ([]*models.Post, error) {
	return f.listOut, f.listErr
}

func (f *fakePostsRepo) Get(ctx context.Context, id string) (*models.Post, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakePostsRepo) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return p, nil
}

func (f *fakePostsRepo) Delete(ctx context.Context, id string) error {
	f.deletedID = id
	return f.deleteErr
}

func (f *fakePostsRepo) SetAttachmentKey(ctx context.Context, id, key string) error {
	f.attachmentPostID = id
	f.attachmentLastKey = key
	return f.setKeyErr
}

type fakeRepoManager struct {
	users usersrepo.Repository
	posts postsrepo.Repository
}

func (f *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository  { return f.users }
func (f *fakeRepoManager) Posts(db dbx.DBTX) postsrepo.Repository  { return f.posts }
func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- tests ---

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := &fakeUsersRepo{getErr: common.ErrorNotFound}
	tokens := newTokenManager()
	svc := NewUserService(db, &fakeRepoManager{users: repo}, tokens)

	user, pair, err := svc.Register(context.Background(), "Alice", "A@X.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", user.Email, "email must be lowercased")
	assert.Equal(t, "a@x.com", repo.lastCreateEmail)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEmpty(t, user.ID)

	// password is hashed, never stored as plaintext
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))

	// issued tokens verify against the right secrets and carry the subject
	id, err := tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)
	assert.Equal(t, "a@x.com", id.Email)

	rid, err := tokens.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, rid.UserID)
}

func TestRegister_DuplicateEmailFastPath(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := &fakeUsersRepo{getOut: &models.User{ID: "existing", Email: "a@x.com"}}
	svc := NewUserService(db, &fakeRepoManager{users: repo}, newTokenManager())

	_, _, err := svc.Register(context.Background(), "Alice", "a@x.com", "secret123")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegister_DuplicateEmailStoreRace(t *testing.T) {
	// fast-path check misses, the unique index catches the race
	db, _ := newSQLMockDB(t)
	repo := &fakeUsersRepo{getErr: common.ErrorNotFound, createErr: common.ErrorAlreadyExists}
	svc := NewUserService(db, &fakeRepoManager{users: repo}, newTokenManager())

	_, _, err := svc.Register(context.Background(), "Alice", "a@x.com", "secret123")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegister_StoreFailure(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := &fakeUsersRepo{getErr: common.ErrorInternal}
	svc := NewUserService(db, &fakeRepoManager{users: repo}, newTokenManager())

	_, _, err := svc.Register(context.Background(), "Alice", "a@x.com", "secret123")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	stored := &models.User{
		ID:           "u1",
		Email:        "a@x.com",
		PasswordHash: mustHash(t, "secret123"),
		Name:         "Alice",
		Role:         models.RoleUser,
	}
	repo := &fakeUsersRepo{getOut: stored}
	tokens := newTokenManager()
	svc := NewUserService(db, &fakeRepoManager{users: repo}, tokens)

	user, pair, err := svc.Login(context.Background(), "A@X.COM", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", repo.lastGetEmail, "lookup must use the lowercased email")
	assert.Equal(t, "u1", user.ID)

	id, err := tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
}

func TestLogin_UnknownEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := &fakeUsersRepo{getErr: common.ErrorNotFound}
	svc := NewUserService(db, &fakeRepoManager{users: repo}, newTokenManager())

	_, _, err := svc.Login(context.Background(), "nobody@x.com", "whatever")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogin_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	repo := &fakeUsersRepo{getOut: &models.User{
		ID: "u1", Email: "a@x.com", PasswordHash: mustHash(t, "secret123"),
	}}
	svc := NewUserService(db, &fakeRepoManager{users: repo}, newTokenManager())

	_, _, err := svc.Login(context.Background(), "a@x.com", "wrong-password")
	assert.ErrorIs(t, err, common.ErrorUnauthorized,
		"wrong password must be indistinguishable from unknown email")
}

func TestRefresh_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	tokens := newTokenManager()
	svc := NewUserService(db, &fakeRepoManager{users: &fakeUsersRepo{}}, tokens)

	refresh, err := tokens.IssueRefreshToken("u1", "a@x.com")
	require.NoError(t, err)

	access, err := svc.Refresh(refresh)
	require.NoError(t, err)

	id, err := tokens.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "a@x.com", id.Email)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	tokens := newTokenManager()
	svc := NewUserService(db, &fakeRepoManager{users: &fakeUsersRepo{}}, tokens)

	access, err := tokens.IssueAccessToken("u1", "a@x.com")
	require.NoError(t, err)

	_, err = svc.Refresh(access)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRefresh_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	expiring := auth.NewManager([]byte("test-access"), []byte("test-refresh"), time.Hour, -time.Second)
	svc := NewUserService(db, &fakeRepoManager{users: &fakeUsersRepo{}}, expiring)

	refresh, err := expiring.IssueRefreshToken("u1", "a@x.com")
	require.NoError(t, err)

	_, err = svc.Refresh(refresh)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestRefresh_Tampered(t *testing.T) {
	db, _ := newSQLMockDB(t)
	tokens := newTokenManager()
	svc := NewUserService(db, &fakeRepoManager{users: &fakeUsersRepo{}}, tokens)

	_, err := svc.Refresh("not.a.jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
