package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/intake/internal/intake"
	"github.com/dharsanguruparan/intake/internal/queue"
)

// Archiver is the object store archived uploads are written to.
type Archiver interface {
	PutUpload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	publicDir string
	store     Archiver
	logger    *zap.Logger
}

// NewProcessor constructs a worker processor reading from publicDir.
func NewProcessor(publicDir string, store Archiver, logger *zap.Logger) *Processor {
	return &Processor{publicDir: publicDir, store: store, logger: logger}
}

// Handler registers the archive job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ArchiveUploadTask, p.handleArchive)
	return mux
}

func (p *Processor) handleArchive(ctx context.Context, task *asynq.Task) error {
	var payload queue.ArchivePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	log := p.logger.With(zap.String("file", payload.FileName), zap.String("object_key", payload.ObjectKey))
	if !intake.SafeName(payload.FileName) {
		log.Warn("refusing to archive unsafe file name")
		return fmt.Errorf("unsafe file name %q: %w", payload.FileName, asynq.SkipRetry)
	}
	f, err := os.Open(filepath.Join(p.publicDir, payload.FileName))
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("upload vanished before archiving")
		return fmt.Errorf("open upload: %v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat upload: %w", err)
	}
	if err := p.store.PutUpload(ctx, payload.ObjectKey, f, info.Size(), contentType(payload.FileName)); err != nil {
		log.Error("archive failed", zap.Error(err))
		return err
	}
	log.Info("upload archived", zap.Int64("bytes", info.Size()))
	return nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(intake.Extension(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
