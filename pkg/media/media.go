package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/japaniel/wordmedia/pkg/search"
)

// JoinChar replaces spaces when a translation becomes a file name.
const JoinChar = "_"

// FileName is the stored name of the index-th (1-based) image for translation.
func FileName(translation string, index int) string {
	return fmt.Sprintf("%s_%d.jpg", strings.ReplaceAll(translation, " ", JoinChar), index)
}

// DownloadError reports a failed asset retrieval. StatusCode is 0 when no response arrived.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

var errBadName = errors.New("destination must be a plain file name")

// FileStore saves candidate images under Root.
type FileStore struct {
	Root   string
	Client *http.Client
}

// NewFileStore creates root if it does not exist.
func NewFileStore(root string, timeout time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &FileStore{
		Root:   root,
		Client: &http.Client{Timeout: timeout},
	}, nil
}

// Store streams c's image to Root/name and returns that path. The body is copied
// into a temporary file next to the target and renamed into place only after the
// whole body arrived, so a failed download never leaves a partial image.
func (s *FileStore) Store(ctx context.Context, c search.Candidate, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", &DownloadError{URL: c.SourceURL, Err: fmt.Errorf("%w: %q", errBadName, name)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SourceURL, nil)
	if err != nil {
		return "", &DownloadError{URL: c.SourceURL, Err: err}
	}
	req.Header.Set("User-Agent", "wordmedia-cli")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", &DownloadError{URL: c.SourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &DownloadError{URL: c.SourceURL, StatusCode: resp.StatusCode}
	}

	dst := filepath.Join(s.Root, name)
	if err := writeAtomic(s.Root, name, resp.Body); err != nil {
		return "", &DownloadError{URL: c.SourceURL, Err: err}
	}
	return dst, nil
}

func writeAtomic(dir, name string, r io.Reader) error {
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// Replaces an earlier file with the same name (e.g. from an interrupted run).
	return os.Rename(tmpName, filepath.Join(dir, name))
}
