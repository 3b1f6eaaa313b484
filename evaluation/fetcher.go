package evaluation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/hupe1980/answermesh/logging"
)

// ErrInvalidFileName is returned for attachment names that are empty or
// escape the download directory.
var ErrInvalidFileName = errors.New("invalid file name")

// FileFetcherOptions configures a FileFetcher.
type FileFetcherOptions struct {
	HTTPClient *http.Client
	// Fs is where attachments are stored. Defaults to the OS filesystem.
	Fs afero.Fs
	// DownloadDir receives downloaded attachments. Defaults to "downloads".
	DownloadDir string
	// LocalFilesDir holds local copies used by FallbackLocal. Defaults to
	// "files".
	LocalFilesDir string
	// Fallback selects the behavior when a download fails.
	Fallback FallbackPolicy
	// Timeout bounds one download. Defaults to 15s.
	Timeout time.Duration
	Logger  logging.Logger
}

// FileFetcher downloads task attachments into a local directory.
type FileFetcher struct {
	baseURL string
	opts    FileFetcherOptions
}

// NewFileFetcher creates a FileFetcher for the service at baseURL.
func NewFileFetcher(baseURL string, optFns ...func(o *FileFetcherOptions)) *FileFetcher {
	opts := FileFetcherOptions{
		HTTPClient:    http.DefaultClient,
		Fs:            afero.NewOsFs(),
		DownloadDir:   "downloads",
		LocalFilesDir: "files",
		Timeout:       15 * time.Second,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &FileFetcher{baseURL: strings.TrimRight(baseURL, "/"), opts: opts}
}

// Fetch downloads the attachment of taskID as fileName and returns its
// absolute path.
func (f *FileFetcher) Fetch(ctx context.Context, taskID, fileName string) (string, error) {
	name := filepath.Base(fileName)
	if fileName == "" || name != fileName || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, fileName)
	}

	if err := f.opts.Fs.MkdirAll(f.opts.DownloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	target := filepath.Join(f.opts.DownloadDir, name)

	err := f.download(ctx, taskID, target)
	if err != nil {
		if f.opts.Fallback != FallbackLocal {
			return "", fmt.Errorf("download file for task %s: %w", taskID, err)
		}

		source := filepath.Join(f.opts.LocalFilesDir, name)
		f.opts.Logger.Warn("evaluation.file.fallback", "task_id", taskID, "source", source, "error", err.Error())

		data, readErr := afero.ReadFile(f.opts.Fs, source)
		if readErr != nil {
			return "", fmt.Errorf("download file for task %s: %w", taskID, errors.Join(err, readErr))
		}
		if err := f.replace(target, bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("copy local file: %w", err)
		}
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	f.opts.Logger.Debug("evaluation.file.fetched", "task_id", taskID, "path", abs)

	return abs, nil
}

func (f *FileFetcher) download(ctx context.Context, taskID, target string) error {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/files/"+url.PathEscape(taskID), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := f.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode}
	}

	if err := f.replace(target, resp.Body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// replace writes r to a unique temporary file next to target and renames it
// into place. target is left untouched on failure.
func (f *FileFetcher) replace(target string, r io.Reader) error {
	tmp, err := afero.TempFile(f.opts.Fs, filepath.Dir(target), filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	_, err = io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = f.opts.Fs.Chmod(tmp.Name(), 0o644)
	}
	if err == nil {
		err = f.opts.Fs.Rename(tmp.Name(), target)
	}
	if err != nil {
		_ = f.opts.Fs.Remove(tmp.Name())
		return err
	}
	return nil
}
