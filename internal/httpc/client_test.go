package httpc

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("model-bytes"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := Download(context.Background(), nil, srv.URL+"/model.onnx", &buf)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != int64(len("model-bytes")) || buf.String() != "model-bytes" {
		t.Errorf("got %d bytes %q", n, buf.String())
	}

	_, err = Download(context.Background(), srv.Client(), srv.URL+"/missing", &buf)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", statusErr.StatusCode)
	}
}

func TestDownloadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Download(ctx, nil, "http://127.0.0.1:1/model", &bytes.Buffer{}); err == nil {
		t.Error("expected error for canceled context")
	}
}
