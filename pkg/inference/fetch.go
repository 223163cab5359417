package inference

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-lens/internal/httpc"
	"github.com/teslashibe/go-lens/internal/log"
)

// Resolve returns a local path for a model artifact. Local paths are checked
// and returned as is; http(s) URLs are downloaded into cacheDir once and
// reused afterwards.
func Resolve(ctx context.Context, location, cacheDir string) (string, error) {
	if !isRemote(location) {
		if _, err := os.Stat(location); err != nil {
			return "", fmt.Errorf("%w: %s", ErrModelNotFound, location)
		}
		return location, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse model url: %w", err)
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("%w: no file name in %s", ErrModelNotFound, location)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create model cache: %w", err)
	}

	dst := filepath.Join(cacheDir, name)
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	logger := log.Component("inference")
	logger.Info("downloading model", "url", location, "dest", dst)

	tmp, err := os.CreateTemp(cacheDir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	client := httpc.NewClient(httpc.DownloadTimeout)
	n, err := httpc.Download(ctx, client, location, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("download %s: %w", location, err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store model: %w", err)
	}

	logger.Info("model downloaded", "dest", dst, "bytes", n)
	return dst, nil
}

// isRemote reports whether location is an http(s) URL.
func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
