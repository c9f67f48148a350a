package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mol-cyberwhip/veteranVR/internal/catalog"
)

const (
	DefaultUserAgent = "rclone/v1.73.0"
	DefaultTimeout   = 30 * time.Minute

	bufferSize = 64 * 1024
)

// DefaultConfigURLs are the public config mirrors, tried in order
var DefaultConfigURLs = []string{
	"https://raw.githubusercontent.com/vrpyou/quest/main/vrp-public.json",
	"https://vrpirates.wiki/downloads/vrp-public.json",
}

// Client talks to the public config mirrors and the archive host
type Client struct {
	userAgent  string
	configURLs []string
	httpClient *http.Client
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	UserAgent  string
	ConfigURLs []string
	Timeout    time.Duration
}

// HeadResult describes a remote file without fetching it.
// ContentLength is -1 when the server does not report it.
type HeadResult struct {
	ContentLength int64
	AcceptRanges  bool
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d", e.Method, e.URL, e.StatusCode)
}

// NewClient creates a new mirror client
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if len(opts.ConfigURLs) == 0 {
		opts.ConfigURLs = DefaultConfigURLs
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		userAgent:  opts.UserAgent,
		configURLs: opts.ConfigURLs,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// FetchPublicConfig tries each config mirror in order and returns the first
// one that parses.
func (c *Client) FetchPublicConfig(ctx context.Context) (catalog.PublicConfig, error) {
	var lastErr error
	for _, url := range c.configURLs {
		body, err := c.fetch(ctx, url)
		if err == nil {
			cfg, perr := catalog.ParsePublicConfig(body)
			if perr == nil {
				return cfg, nil
			}
			err = perr
		}
		if ctx.Err() != nil {
			return catalog.PublicConfig{}, ctx.Err()
		}
		lastErr = err
	}
	return catalog.PublicConfig{}, fmt.Errorf("could not fetch public config: %w", lastErr)
}

// FetchText returns the body of a GET request
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// Head returns the remote length and range support of a file
func (c *Client) Head(ctx context.Context, url string) (HeadResult, error) {
	req, err := c.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return HeadResult{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HeadResult{}, fmt.Errorf("failed to probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return HeadResult{}, &StatusError{Method: http.MethodHead, URL: url, StatusCode: resp.StatusCode}
	}

	length := int64(-1)
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			length = n
		}
	}

	return HeadResult{
		ContentLength: length,
		AcceptRanges:  strings.Contains(strings.ToLower(resp.Header.Get("Accept-Ranges")), "bytes"),
	}, nil
}

// Download writes url to dest. When resume is set and dest already has bytes,
// a ranged request continues from its length; the bytes are appended only if
// the server answers 206, otherwise the file is rewritten from zero.
// A 416 answer to a ranged request means dest is already complete.
// onChunk runs after each buffer is written; a non-nil return aborts the
// transfer and is returned unchanged, leaving the partial file on disk.
// When a resumed file is rewritten, onChunk first receives the discarded
// length as a negative n.
func (c *Client) Download(ctx context.Context, url, dest string, resume bool, onChunk func(n int64) error) error {
	var existing int64
	if resume {
		if info, err := os.Stat(dest); err == nil {
			existing = info.Size()
		}
	}

	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	if existing > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", existing))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if existing > 0 && resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if existing > 0 && resp.StatusCode == http.StatusPartialContent {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	out, err := os.OpenFile(dest, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open destination: %w", err)
	}
	defer out.Close()

	if existing > 0 && flags&os.O_TRUNC != 0 && onChunk != nil {
		if err := onChunk(-existing); err != nil {
			return err
		}
	}

	buf := make([]byte, bufferSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("failed to write %s: %w", dest, err)
			}
			if onChunk != nil {
				if err := onChunk(int64(n)); err != nil {
					return err
				}
			}
		}
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("failed to read %s: %w", url, rerr)
		}
	}
}
