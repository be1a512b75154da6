package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/hibiken/asynq"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------- HTTPUploader ----------

func TestHTTPUploader_SendsMultipartWithToken(t *testing.T) {
	var gotToken, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(TokenHeader)
		f, hdr, err := r.FormFile(FileField)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(b)
	}))
	defer srv.Close()

	up, err := NewHTTPUploader(srv.URL, "s3cret", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, "20240601-143000-1.jpg", "jpegdata")
	if err := up.Upload(context.Background(), path); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotToken != "s3cret" || gotName != "20240601-143000-1.jpg" || gotBody != "jpegdata" {
		t.Errorf("token=%q name=%q body=%q", gotToken, gotName, gotBody)
	}
}

func TestHTTPUploader_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	up, _ := NewHTTPUploader(srv.URL, "tok", time.Second)
	if err := up.Upload(context.Background(), writeFile(t, "a.jpg", "x")); err == nil {
		t.Error("expected error on 403")
	}
	if err := up.Upload(context.Background(), "/does/not/exist.jpg"); err == nil {
		t.Error("expected error on missing file")
	}
	if _, err := NewHTTPUploader(srv.URL, "", time.Second); !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}

// ---------- Pool ----------

type fakeUploader struct {
	mu    sync.Mutex
	paths []string
	err   error
	panic bool
	block chan struct{}
}

func (f *fakeUploader) Upload(_ context.Context, path string) error {
	if f.block != nil {
		<-f.block
	}
	if f.panic {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.err
}

func TestPool_UploadsEverything(t *testing.T) {
	up := &fakeUploader{}
	p := NewPool(up, 3, nil)
	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"} {
		p.UploadAsync(name)
	}
	p.Close()
	if len(up.paths) != 4 {
		t.Errorf("uploaded %v", up.paths)
	}
}

func TestPool_SurvivesFailuresAndPanics(t *testing.T) {
	up := &fakeUploader{panic: true}
	p := NewPool(up, 1, nil)
	p.UploadAsync("a.jpg")
	p.UploadAsync("b.jpg")
	p.Close()

	up2 := &fakeUploader{err: errors.New("500")}
	p2 := NewPool(up2, 1, nil)
	p2.UploadAsync("c.jpg")
	p2.Close()
	if len(up2.paths) != 1 {
		t.Errorf("uploaded %v", up2.paths)
	}
}

func TestPool_UploadAsyncNeverBlocks(t *testing.T) {
	up := &fakeUploader{block: make(chan struct{})}
	p := NewPool(up, 1, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < QueueSize+10; i++ {
			p.UploadAsync("x.jpg")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("UploadAsync blocked on a full queue")
	}
	close(up.block)
	p.Close()
	p.UploadAsync("late.jpg")
}

// ---------- asynq task ----------

func TestUploadTask_RoundTrip(t *testing.T) {
	task, err := NewUploadTask("/photos/a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TypeUploadImage {
		t.Errorf("type = %s", task.Type())
	}
	up := &fakeUploader{}
	h := &Handler{up: up}
	if err := h.HandleUploadImage(context.Background(), task); err != nil {
		t.Fatalf("HandleUploadImage: %v", err)
	}
	if len(up.paths) != 1 || up.paths[0] != "/photos/a.jpg" {
		t.Errorf("uploaded %v", up.paths)
	}
}

func TestHandleUploadImage_BadPayload(t *testing.T) {
	h := &Handler{up: &fakeUploader{}}
	if err := h.HandleUploadImage(context.Background(), asynq.NewTask(TypeUploadImage, []byte("{"))); err == nil {
		t.Error("expected error on bad payload")
	}
	var p ImagePayload
	if err := json.Unmarshal([]byte(`{"path":"x"}`), &p); err != nil || p.Path != "x" {
		t.Errorf("payload = %+v, %v", p, err)
	}
}

// ---------- New ----------

func TestNew(t *testing.T) {
	cfg := config.Default()
	if s, err := New(cfg, nil); s != nil || err != nil {
		t.Errorf("disabled: %v, %v", s, err)
	}

	t.Setenv(config.TokenEnv, "")
	cfg.Upload.URL = "http://example.invalid/upload"
	if _, err := New(cfg, nil); !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}

	cfg.Upload.APIToken = "tok"
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.(*Pool); !ok {
		t.Errorf("New = %T, want *Pool", s)
	}
	s.Close()
}
