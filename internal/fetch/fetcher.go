// Package fetch downloads source documents from signed URLs into local
// temporary files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const downloadTimeout = 30 * time.Second

// Fetcher streams remote objects to disk. Downloads never buffer the whole
// body in memory.
type Fetcher struct {
	client  *http.Client
	baseDir string
}

func New() *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: downloadTimeout},
		baseDir: filepath.Join(os.TempDir(), "contextforge"),
	}
}

// Download fetches signedURL into a uniquely named local file and returns its
// path. The caller owns the file and removes it when done.
func (f *Fetcher) Download(ctx context.Context, signedURL, filename string) (string, error) {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch document: unexpected status %d", resp.StatusCode)
	}

	localPath := filepath.Join(f.baseDir, fmt.Sprintf("%s_%s", uuid.NewString(), filepath.Base(filename)))

	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create local file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(localPath)
		return "", fmt.Errorf("write local file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close local file: %w", err)
	}

	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("download missing after write: %w", err)
	}

	return localPath, nil
}
