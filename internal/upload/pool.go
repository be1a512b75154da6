package upload

import (
	"context"
	rtdebug "runtime/debug"
	"sync"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// QueueSize bounds the pending uploads of a Pool.
const QueueSize = 64

// Pool runs uploads on a fixed set of goroutines.
type Pool struct {
	up   Uploader
	jobs chan string
	wg   sync.WaitGroup
	log  *debug.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewPool starts workers goroutines (at least one).
func NewPool(up Uploader, workers int, log *debug.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		up:     up,
		jobs:   make(chan string, QueueSize),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// UploadAsync queues path. When the queue is full the upload is dropped
// and logged.
func (p *Pool) UploadAsync(path string) {
	defer func() {
		// send on a closed pool
		if r := recover(); r != nil {
			p.log.Errorf("upload of %s after close", path)
		}
	}()
	select {
	case p.jobs <- path:
		p.log.Live("Upload queued: %s", path)
	default:
		p.log.Errorf("upload queue full, dropping %s", path)
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for path := range p.jobs {
		p.run(path)
	}
}

func (p *Pool) run(path string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("upload of %s panicked: %v\n%s", path, r, rtdebug.Stack())
		}
	}()
	p.log.Info("Uploading to website: %s", path)
	if err := p.up.Upload(p.ctx, path); err != nil {
		p.log.Errorf("Failed to upload %s: %v", path, err)
		return
	}
	p.log.Info("Uploaded %s successfully", path)
}

// Close waits for queued uploads to finish.
func (p *Pool) Close() error {
	p.once.Do(func() {
		close(p.jobs)
		p.wg.Wait()
		p.cancel()
	})
	return nil
}
