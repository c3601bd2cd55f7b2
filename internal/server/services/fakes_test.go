package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/accounthub/internal/common"
	"github.com/dmitrijs2005/accounthub/internal/dbx"
	"github.com/dmitrijs2005/accounthub/internal/logging"
	"github.com/dmitrijs2005/accounthub/internal/server/config"
	"github.com/dmitrijs2005/accounthub/internal/server/media"
	"github.com/dmitrijs2005/accounthub/internal/server/models"
	"github.com/dmitrijs2005/accounthub/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accounthub/internal/server/uploads"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memAccounts is an in-memory accounts.Repository.
type memAccounts struct {
	mu   sync.Mutex
	rows map[string]*models.Account

	createErr error
	lookupErr error
	// onCreate runs at the start of Create; a non-nil result fails it.
	onCreate func() error
	// beforeSwap runs inside SwapRefreshToken before the comparison.
	beforeSwap func(a *models.Account)
}

func newMemAccounts() *memAccounts {
	return &memAccounts{rows: map[string]*models.Account{}}
}

func clone(a *models.Account) *models.Account {
	c := *a
	return &c
}

func (m *memAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onCreate != nil {
		if err := m.onCreate(); err != nil {
			return nil, err
		}
	}
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, r := range m.rows {
		if r.Username == a.Username || r.Email == a.Email {
			return nil, common.ErrDuplicateAccount
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.rows[a.ID] = clone(a)
	return a, nil
}

func (m *memAccounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	r, ok := m.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r), nil
}

func (m *memAccounts) LockByID(ctx context.Context, id string) (*models.Account, error) {
	return m.FindByID(ctx, id)
}

func (m *memAccounts) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	var byEmail *models.Account
	for _, r := range m.rows {
		if username != "" && r.Username == username {
			return clone(r), nil
		}
		if email != "" && r.Email == email {
			byEmail = r
		}
	}
	if byEmail == nil {
		return nil, common.ErrorNotFound
	}
	return clone(byEmail), nil
}

func (m *memAccounts) UpdateRefreshToken(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok {
		r.RefreshToken = token
	}
	return nil
}

func (m *memAccounts) SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if m.beforeSwap != nil {
		m.beforeSwap(r)
	}
	if r.RefreshToken == "" || r.RefreshToken != current {
		return false, nil
	}
	r.RefreshToken = next
	return true, nil
}

func (m *memAccounts) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.PasswordHash = hash
	return nil
}

func (m *memAccounts) UpdateFields(ctx context.Context, id string, u models.AccountUpdate) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if u.Email != nil {
		for oid, o := range m.rows {
			if oid != id && o.Email == *u.Email {
				return nil, common.ErrDuplicateAccount
			}
		}
		r.Email = *u.Email
	}
	if u.FullName != nil {
		r.FullName = *u.FullName
	}
	if u.Avatar != nil {
		r.Avatar = *u.Avatar
	}
	if u.CoverImage != nil {
		r.CoverImage = *u.CoverImage
	}
	r.UpdatedAt = time.Now()
	return clone(r), nil
}

func (m *memAccounts) stored(t *testing.T, id string) *models.Account {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	require.True(t, ok, "account %s not stored", id)
	return clone(r)
}

func (m *memAccounts) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
}

type fakeRepoManager struct {
	repo *memAccounts
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (f *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository { return f.repo }

// memMedia is an in-memory media.Store.
type memMedia struct {
	mu      sync.Mutex
	objects map[string]bool
	deleted []string
	// fail reports whether the upload of a staged file should fail.
	fail func(path string) bool
}

func newMemMedia() *memMedia {
	return &memMedia{objects: map[string]bool{}}
}

func (m *memMedia) Upload(ctx context.Context, localPath string) (*media.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil && m.fail(localPath) {
		return nil, errors.New("media host unavailable")
	}
	id := uuid.NewString() + filepath.Ext(localPath)
	m.objects[id] = true
	return &media.Object{URL: "http://media.test/" + id, ID: id}, nil
}

func (m *memMedia) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !m.objects[id] {
		return false, nil
	}
	delete(m.objects, id)
	m.deleted = append(m.deleted, id)
	return true, nil
}

func (m *memMedia) ExtractID(url string) string {
	id, ok := strings.CutPrefix(url, "http://media.test/")
	if !ok {
		return ""
	}
	return id
}

func (m *memMedia) has(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[m.ExtractID(url)]
}

type fixture struct {
	svc     *AccountService
	repo    *memAccounts
	media   *memMedia
	uploads *uploads.Manager
	db      *sql.DB
	mock    sqlmock.Sqlmock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		AccessTokenSecret:            "access-secret",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenSecret:           "refresh-secret",
		RefreshTokenValidityDuration: 240 * time.Hour,
		BcryptCost:                   4,
		StagingDir:                   t.TempDir(),
	}

	logger := logging.NewDiscardLogger()
	store := newMemMedia()
	up, err := uploads.NewManager(store, cfg, logger, nil)
	require.NoError(t, err)

	repo := newMemAccounts()
	svc := NewAccountService(db, &fakeRepoManager{repo: repo}, cfg, up, logger, nil, opts...)

	return &fixture{svc: svc, repo: repo, media: store, uploads: up, db: db, mock: mock}
}

// stage writes a file into the staging directory and wraps it.
func (f *fixture) stage(t *testing.T, name string) *uploads.Artifact {
	t.Helper()
	p := filepath.Join(f.uploads.Dir(), uuid.NewString()+"-"+name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o600))
	return f.uploads.StageIncoming(p, name)
}

func (f *fixture) register(t *testing.T, username, email, password string) *models.PublicAccount {
	t.Helper()
	acc, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "Test " + username,
		Username: username,
		Email:    email,
		Password: password,
		Avatar:   f.stage(t, "avatar.png"),
	})
	require.NoError(t, err)
	return acc
}
