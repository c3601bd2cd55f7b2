// Package uploads moves client files from the local staging directory to the
// remote media store. A staged file never outlives the request that created
// it: whatever the outcome of the push, the local copy is removed.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/accounthub/internal/common"
	"github.com/dmitrijs2005/accounthub/internal/filex"
	"github.com/dmitrijs2005/accounthub/internal/logging"
	sc "github.com/dmitrijs2005/accounthub/internal/server/config"
	"github.com/dmitrijs2005/accounthub/internal/server/media"
	"github.com/dmitrijs2005/accounthub/internal/server/metrics"
)

var removeFile = filex.RemoveIfExists

type Manager struct {
	store   media.Store
	dir     string
	timeout time.Duration
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewManager creates the staging directory if needed.
func NewManager(store media.Store, cfg *sc.Config, logger logging.Logger, m *metrics.Metrics) (*Manager, error) {
	dir, err := filex.EnsureDir(cfg.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("staging dir: %w", err)
	}
	return &Manager{
		store:   store,
		dir:     dir,
		timeout: cfg.UploadTimeout,
		logger:  logger.With("module", "uploads"),
		metrics: m,
	}, nil
}

// Dir is the absolute staging directory.
func (m *Manager) Dir() string { return m.dir }

func (m *Manager) stagingName(original string) (string, error) {
	suffix, err := common.MakeRandHexString(6)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), suffix, ext), nil
}

// Stage copies a multipart part into the staging directory. A nil header
// means the field was not sent and yields a nil artifact.
func (m *Manager) Stage(fh *multipart.FileHeader) (*Artifact, error) {
	if fh == nil {
		return nil, nil
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %q: %w", fh.Filename, err)
	}
	defer src.Close()

	name, err := m.stagingName(fh.Filename)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(m.dir, name)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	_, err = io.Copy(dst, src)
	err = errors.Join(err, dst.Close())
	if err != nil {
		_ = removeFile(path)
		return nil, fmt.Errorf("write staged file: %w", err)
	}

	return &Artifact{path: path, name: fh.Filename}, nil
}

// StageIncoming wraps a file some other component has already written into
// the staging area. An empty path yields nil.
func (m *Manager) StageIncoming(path, name string) *Artifact {
	if path == "" {
		return nil
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return &Artifact{path: path, name: name}
}

// Commit pushes the artifact to the media store and removes the local copy
// on every exit path, panics included. Failures are logged and reported as a
// nil object. A nil artifact is a no-op.
func (m *Manager) Commit(ctx context.Context, a *Artifact) *media.Object {
	if a == nil {
		return nil
	}
	defer m.release(ctx, a)

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	obj, err := m.store.Upload(ctx, a.path)
	if err != nil {
		m.logger.Error(ctx, "media upload failed", "file", a.name, "error", err)
		m.metrics.Upload(metrics.ResultFailure)
		return nil
	}

	m.metrics.Upload(metrics.ResultSuccess)
	m.logger.Debug(ctx, "media uploaded", "file", a.name, "id", obj.ID)
	return obj
}

// Discard releases an artifact that will not be committed. It is a no-op
// for nil or already released artifacts.
func (m *Manager) Discard(a *Artifact) {
	if a == nil {
		return
	}
	m.release(context.Background(), a)
}

// Rollback deletes a previously committed object by URL. It reports whether
// anything was deleted and never fails. The delete outlives cancellation of
// ctx, so a dropped request still cleans up; it is bounded by the upload
// timeout instead.
func (m *Manager) Rollback(ctx context.Context, url string) bool {
	id := m.store.ExtractID(url)
	if id == "" {
		return false
	}

	ctx = context.WithoutCancel(ctx)
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	ok, err := m.store.Delete(ctx, id)
	if err != nil {
		m.logger.Warn(ctx, "media rollback failed", "id", id, "error", err)
		return false
	}
	return ok
}

func (m *Manager) release(ctx context.Context, a *Artifact) {
	a.once.Do(func() {
		if err := removeFile(a.path); err != nil {
			m.logger.Warn(ctx, "staged file cleanup failed", "path", a.path, "error", err)
			m.metrics.StagedCleanup(metrics.ResultFailure)
			return
		}
		m.metrics.StagedCleanup(metrics.ResultSuccess)
	})
}
