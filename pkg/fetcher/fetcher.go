package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"

	"github.com/bmeric/docquery/internal/models"
	"github.com/bmeric/docquery/internal/types"
)

const (
	fileScheme  = "file://"
	minioScheme = "minio://"
)

type FetcherConfig struct {
	Endpoint  string // object storage endpoint, host:port
	AccessKey string
	SecretKey string
	UseSSL    bool
	RateLimit float64 // outbound requests per second
	Timeout   time.Duration
	TempDir   string
}

// Fetcher resolves a document locator (local path, minio://bucket/key, or
// HTTP(S) URL) to a local readable file.
type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	objects *minio.Client
	limiter *rate.Limiter
}

// LocalFile is an owned local copy of a fetched source. Downloads are backed
// by a temporary file that Release deletes; locally referenced files are left
// in place.
type LocalFile struct {
	path string
	temp bool
}

func (f *LocalFile) Path() string { return f.path }

// Release removes the backing temporary file. Safe to call more than once.
func (f *LocalFile) Release() error {
	if !f.temp {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func NewWithConfig(config FetcherConfig) (*Fetcher, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}

	var objects *minio.Client
	if config.Endpoint != "" {
		var err error
		objects, err = minio.New(config.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
			Secure: config.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize object storage client: %v", err)
		}
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		objects: objects,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Resolve returns a local file for the given locator. Callers must Release
// the result on every exit path; each download otherwise leaks a temp file.
func (f *Fetcher) Resolve(ctx context.Context, locator string) (types.Source, error) {
	switch {
	case strings.HasPrefix(locator, fileScheme):
		return f.resolveLocal(strings.TrimPrefix(locator, fileScheme))
	case strings.HasPrefix(locator, minioScheme):
		return f.resolveObject(ctx, strings.TrimPrefix(locator, minioScheme))
	default:
		// fallback: try HTTP download
		return f.resolveHTTP(ctx, locator)
	}
}

func (f *Fetcher) resolveLocal(path string) (types.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: file %s", models.ErrNotFound, path)
	}
	return &LocalFile{path: path}, nil
}

func (f *Fetcher) resolveObject(ctx context.Context, object string) (types.Source, error) {
	bucket, key, err := splitObjectPath(object)
	if err != nil {
		return nil, err
	}

	if f.objects == nil {
		return nil, fmt.Errorf("%w: object storage not configured", models.ErrDownload)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Preserve the key's extension: downstream libraries sniff type by suffix.
	local := f.tempPath(filepath.Ext(key))
	if err := f.objects.FGetObject(ctx, bucket, key, local, minio.GetObjectOptions{}); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", models.ErrDownload, bucket, key, err)
	}
	return &LocalFile{path: local, temp: true}, nil
}

func (f *Fetcher) resolveHTTP(ctx context.Context, rawURL string) (types.Source, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDownload, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: received status code %d for URL %s", models.ErrDownload, resp.StatusCode, rawURL)
	}

	local := f.tempPath(".bin")
	out, err := os.Create(local)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDownload, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(local)
		return nil, fmt.Errorf("%w: %v", models.ErrDownload, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(local)
		return nil, fmt.Errorf("%w: %v", models.ErrDownload, err)
	}

	return &LocalFile{path: local, temp: true}, nil
}

func (f *Fetcher) tempPath(ext string) string {
	return filepath.Join(f.config.TempDir, "docquery-"+uuid.NewString()+ext)
}

// splitObjectPath splits "bucket/key" into its two parts. The key may itself
// contain slashes.
func splitObjectPath(object string) (bucket, key string, err error) {
	parts := strings.SplitN(object, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: object locator must be minio://bucket/key", models.ErrInvalidLocator)
	}
	return parts[0], parts[1], nil
}
