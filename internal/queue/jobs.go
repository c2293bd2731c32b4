package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// ArchiveUploadTask is scheduled each time an upload is accepted.
	ArchiveUploadTask = "upload:archive"
)

// ArchivePayload is serialized into the task payload so the worker knows
// which public file to copy and where to put it.
type ArchivePayload struct {
	FileName   string    `json:"file_name"`
	ObjectKey  string    `json:"object_key"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Dispatcher hands accepted uploads to background archiving.
type Dispatcher interface {
	EnqueueArchive(ctx context.Context, payload ArchivePayload) error
}

// AsynqDispatcher enqueues archive tasks on redis through asynq.
type AsynqDispatcher struct {
	client *asynq.Client
}

// NewAsynqDispatcher wraps client.
func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

// EnqueueArchive enqueues an archive job.
func (d *AsynqDispatcher) EnqueueArchive(ctx context.Context, payload ArchivePayload) error {
	task, err := NewArchiveTask(payload)
	if err != nil {
		return err
	}
	if _, err := d.client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue archive task: %w", err)
	}
	return nil
}

// NewArchiveTask builds the asynq task for payload.
func NewArchiveTask(payload ArchivePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ArchiveUploadTask, data), nil
}

// Noop drops every job. It is used when no broker is configured.
type Noop struct{}

func (Noop) EnqueueArchive(context.Context, ArchivePayload) error { return nil }
