package source

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/frederic-klein/vpm/internal/manifest"
	"github.com/frederic-klein/vpm/internal/version"
)

// Registry serves packages from a network registry. Metadata lives at
// GET {base}/packages/{name}?range=..., the archive one level below at
// GET {base}/packages/{name}/archive?range=...; both pick the best
// version satisfying the range server-side.
type Registry struct {
	baseURL string
	client  *http.Client
}

// NewRegistry returns a source talking to the registry at baseURL.
func NewRegistry(baseURL string) *Registry {
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Manifest queries the registry for the metadata of the best version
// satisfying rng.
func (s *Registry) Manifest(name string, rng version.Range) (*manifest.Manifest, error) {
	req, err := http.NewRequest("GET", s.metadataURL(name, rng), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("package %s satisfying %s not found in registry", name, rng)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry error: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading registry response: %w", err)
	}
	return manifest.Parse(data)
}

// Store downloads the best matching archive to destPath, writing through
// a temporary file so a failed download never leaves a truncated archive.
func (s *Registry) Store(destPath, name string, rng version.Range) error {
	resp, err := s.client.Get(s.archiveURL(name, rng))
	if err != nil {
		return fmt.Errorf("downloading %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: HTTP %d", name, resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming archive: %w", err)
	}
	return nil
}

func (s *Registry) metadataURL(name string, rng version.Range) string {
	return fmt.Sprintf("%s/packages/%s?range=%s",
		s.baseURL, url.PathEscape(name), url.QueryEscape(rng.String()))
}

func (s *Registry) archiveURL(name string, rng version.Range) string {
	return fmt.Sprintf("%s/packages/%s/archive?range=%s",
		s.baseURL, url.PathEscape(name), url.QueryEscape(rng.String()))
}
