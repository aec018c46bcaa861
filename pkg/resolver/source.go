package resolver

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Source reads documents by slash-separated name.
type Source interface {
	ReadFile(name string) ([]byte, error)
}

// FSSource reads from an fs.FS such as the bundled task configurations.
type FSSource struct {
	FS fs.FS
}

func (s FSSource) ReadFile(name string) ([]byte, error) {
	name = strings.TrimPrefix(path.Clean(name), "/")
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return fs.ReadFile(s.FS, name)
}

// OSSource reads from the local filesystem, allowing imports to climb out of
// the importing document's directory.
type OSSource struct{}

func (OSSource) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.FromSlash(name))
}

const maxRemoteDocumentSize = 4 << 20

// HTTPSource fetches http(s) documents. A 404 is reported as fs.ErrNotExist.
type HTTPSource struct {
	Client *http.Client
}

func (s HTTPSource) ReadFile(name string) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, application/json, text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetching %s: %w", name, fs.ErrNotExist)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status code %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) > maxRemoteDocumentSize {
		return nil, fmt.Errorf("document %s exceeds %d bytes", name, maxRemoteDocumentSize)
	}
	return data, nil
}

// MultiSource sends URLs to Remote and everything else to Files. A nil
// Remote rejects URL imports.
type MultiSource struct {
	Files  Source
	Remote Source
}

func (s MultiSource) ReadFile(name string) ([]byte, error) {
	if isURL(name) {
		if s.Remote == nil {
			return nil, fmt.Errorf("remote imports are disabled: %s", name)
		}
		return s.Remote.ReadFile(name)
	}
	return s.Files.ReadFile(name)
}

func isURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

// joinRef resolves an import reference relative to the importing document.
func joinRef(from, ref string) (string, error) {
	if isURL(ref) {
		return ref, nil
	}
	if isURL(from) {
		base, err := url.Parse(from)
		if err != nil {
			return "", fmt.Errorf("invalid document url %s: %w", from, err)
		}
		rel, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("invalid import %s: %w", ref, err)
		}
		return base.ResolveReference(rel).String(), nil
	}

	ref = filepath.ToSlash(ref)
	if path.IsAbs(ref) || filepath.IsAbs(filepath.FromSlash(ref)) {
		return path.Clean(ref), nil
	}
	return path.Join(path.Dir(from), ref), nil
}
