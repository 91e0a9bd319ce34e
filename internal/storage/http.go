package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"draftforge/internal/services"
)

// HTTPConfig describes the object storage endpoint.
type HTTPConfig struct {
	Endpoint string
	Bucket   string
	Token    string
	Timeout  time.Duration
}

// HTTPClient talks to an S3-style object store over plain PUT/HEAD.
type HTTPClient struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPClient builds the HTTP backend.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) objectURL(key string) string {
	return strings.TrimRight(c.cfg.Endpoint, "/") + "/" + c.cfg.Bucket + "/" + key
}

// Put uploads body under key, overwriting any prior object. Network errors
// and 5xx responses are tagged transient; auth failures are permanent.
func (c *HTTPClient) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (Receipt, error) {
	url := c.objectURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return Receipt{}, services.Wrap(services.ErrPermanent, "upload", "build request", url, err)
	}
	req.ContentLength = size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if services.IsCancelled(err) {
			return Receipt{}, err
		}
		return Receipt{}, services.Wrap(services.ErrTransient, "upload", "put object", key, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if err := classifyStatus("put object", key, resp.StatusCode); err != nil {
		return Receipt{}, err
	}

	return Receipt{
		Key:        key,
		URL:        url,
		Size:       size,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// Exists reports whether an object is already stored under key.
func (c *HTTPClient) Exists(ctx context.Context, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.objectURL(key), nil)
	if err != nil {
		return false, services.Wrap(services.ErrPermanent, "upload", "build request", key, err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if services.IsCancelled(err) {
			return false, err
		}
		return false, services.Wrap(services.ErrTransient, "upload", "head object", key, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, classifyStatus("head object", key, resp.StatusCode)
	}
}

func classifyStatus(operation, key string, status int) error {
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrPermanent, "upload", operation, "authorization rejected: "+statusText(status), nil)
	case status == http.StatusTooManyRequests || status >= 500:
		return services.Wrap(services.ErrTransient, "upload", operation, "storage returned "+statusText(status), nil)
	default:
		return services.Wrap(services.ErrPermanent, "upload", operation, fmt.Sprintf("storage rejected key %s: %s", key, statusText(status)), nil)
	}
}

func statusText(status int) string {
	return strconv.Itoa(status) + " " + http.StatusText(status)
}
