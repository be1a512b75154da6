package upload

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/hibiken/asynq"
)

// TypeUploadImage is the asynq task type of an upload.
const TypeUploadImage = "upload:image"

// ImagePayload is the task payload.
type ImagePayload struct {
	Path string `json:"path"`
}

// NewUploadTask builds the task for path. Uploads are not retried.
func NewUploadTask(path string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImagePayload{Path: path})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeUploadImage, payload, asynq.MaxRetry(0)), nil
}

// Handler processes upload tasks.
type Handler struct {
	up  Uploader
	log *debug.Logger
}

// HandleUploadImage uploads the file named in the task payload.
func (h *Handler) HandleUploadImage(ctx context.Context, t *asynq.Task) error {
	var payload ImagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("upload payload: %w", err)
	}
	h.log.Info("Uploading to website: %s", payload.Path)
	if err := h.up.Upload(ctx, payload.Path); err != nil {
		h.log.Errorf("Failed to upload %s: %v", payload.Path, err)
		return err
	}
	h.log.Info("Uploaded %s successfully", payload.Path)
	return nil
}

// Queue hands uploads to Redis through asynq and runs the workers in
// process, so pending uploads survive a restart of the booth.
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	log    *debug.Logger
}

// NewQueue connects to Redis at addr and starts workers consumers.
func NewQueue(addr string, workers int, up Uploader, log *debug.Logger) (*Queue, error) {
	if workers < 1 {
		workers = 1
	}
	redisOpt := asynq.RedisClientOpt{Addr: addr}
	srv := asynq.NewServer(redisOpt, asynq.Config{Concurrency: workers})

	mux := asynq.NewServeMux()
	h := &Handler{up: up, log: log}
	mux.HandleFunc(TypeUploadImage, h.HandleUploadImage)

	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("start upload workers: %w", err)
	}
	log.Verbose("Upload queue on redis %s, %d workers", addr, workers)
	return &Queue{client: asynq.NewClient(redisOpt), server: srv, log: log}, nil
}

// UploadAsync enqueues path. Enqueue failures are logged.
func (q *Queue) UploadAsync(path string) {
	task, err := NewUploadTask(path)
	if err != nil {
		q.log.Errorf("upload task for %s: %v", path, err)
		return
	}
	info, err := q.client.Enqueue(task)
	if err != nil {
		q.log.Errorf("enqueue upload of %s: %v", path, err)
		return
	}
	q.log.Live("Upload queued: %s (task %s)", path, info.ID)
}

// Close stops the workers and the client.
func (q *Queue) Close() error {
	q.server.Shutdown()
	return q.client.Close()
}
