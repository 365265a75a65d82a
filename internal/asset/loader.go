package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/logger"
	"github.com/Faultbox/glbview/pkg/formats"
)

// ErrNotGLTF is returned when the payload is neither binary nor JSON glTF.
var ErrNotGLTF = errors.New("payload is not a glTF asset")

// LoadError reports a failed asset load: fetch, parse or decode.
type LoadError struct {
	URL string
	Op  string // "fetch", "parse" or "decode"
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.URL, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Config holds loader settings. Relative decoder paths resolve against
// AssetsRoot.
type Config struct {
	AssetsRoot         string
	DracoDecoderPath   string
	KTX2TranscoderPath string
	FetchTimeout       time.Duration
}

// Loader fetches and parses packaged scenes.
type Loader struct {
	config   Config
	decoders *Decoders
	client   *http.Client
}

// NewLoader creates a loader with the built-in sub-decoders configured from
// cfg.
func NewLoader(cfg Config) *Loader {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	d := NewDecoders()
	d.SetDecoderPath(resolveUnder(cfg.AssetsRoot, cfg.DracoDecoderPath))
	d.SetTranscoderPath(resolveUnder(cfg.AssetsRoot, cfg.KTX2TranscoderPath))

	return &Loader{
		config:   cfg,
		decoders: d,
		client:   &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Decoders returns the loader's sub-decoder set for registration and
// capability detection before Load.
func (l *Loader) Decoders() *Decoders {
	return l.decoders
}

// Load fetches, parses and decodes the asset at rawURL. Every failure is a
// *LoadError.
func (l *Loader) Load(ctx context.Context, rawURL string) (*Container, error) {
	start := time.Now()

	data, localPath, err := l.fetch(ctx, rawURL)
	if err != nil {
		return nil, &LoadError{URL: rawURL, Op: "fetch", Err: err}
	}

	doc, err := l.parse(data, localPath)
	if err != nil {
		return nil, &LoadError{URL: rawURL, Op: "parse", Err: err}
	}

	if err := l.decoders.CheckRequired(doc); err != nil {
		return nil, &LoadError{URL: rawURL, Op: "decode", Err: err}
	}
	if err := l.decoders.DecodeGeometry(ctx, doc); err != nil {
		return nil, &LoadError{URL: rawURL, Op: "decode", Err: err}
	}

	logger.Info("asset loaded",
		zap.String("url", rawURL),
		zap.Int("bytes", len(data)),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("images", len(doc.Images)),
		zap.Int("cameras", len(doc.Cameras)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return NewContainer(rawURL, doc, l.decoders), nil
}

// fetch returns the payload and, for local files, the resolved path.
func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		data, err := l.fetchHTTP(ctx, rawURL)
		return data, "", err
	}

	path := rawURL
	if err == nil && u.Scheme == "file" {
		path = u.Path
	}
	if _, statErr := os.Stat(path); statErr != nil && !filepath.IsAbs(path) {
		path = filepath.Join(l.config.AssetsRoot, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, path, nil
}

func (l *Loader) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (l *Loader) parse(data []byte, localPath string) (*gltf.Document, error) {
	if !formats.IsGLB(data) && !looksLikeJSON(data) {
		return nil, ErrNotGLTF
	}

	// Local files go through Open so external buffers resolve next to them.
	if localPath != "" {
		return gltf.Open(localPath)
	}

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func resolveUnder(root, path string) string {
	if path == "" || filepath.IsAbs(path) || strings.Contains(path, "://") {
		return path
	}
	return filepath.Join(root, path)
}
