package littleskin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skinfetch/pkg/config"
	errs "skinfetch/pkg/errors"
	"skinfetch/pkg/logger"
	"skinfetch/pkg/retry"
)

// Client talks to the texture metadata and download endpoints.
type Client struct {
	metaClient *http.Client
	dlClient   *http.Client
	baseURL    string
	headers    map[string]string
	dlHeaders  map[string]string

	maxAttempts int
	retryDelay  time.Duration

	logger logger.Logger
}

// NewClient creates a texture service client. Metadata lookups and image
// downloads use separate HTTP clients because their timeouts differ.
func NewClient(api *config.APIConfig, maxAttempts int, retryDelay time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		metaClient: &http.Client{Timeout: api.MetadataTimeout},
		dlClient:   &http.Client{Timeout: api.DownloadTimeout},
		baseURL:    normalizeBase(api.BaseURL),
		headers: map[string]string{
			"User-Agent":      api.UserAgent,
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
			"Referer":         api.Referer,
		},
		dlHeaders: map[string]string{
			"User-Agent": api.UserAgent,
			"Referer":    api.Referer,
		},
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      log,
	}
}

// SetHTTPClients replaces the underlying HTTP clients. Used by tests to
// inject a fake transport.
func (c *Client) SetHTTPClients(meta, dl *http.Client) {
	if meta != nil {
		c.metaClient = meta
	}
	if dl != nil {
		c.dlClient = dl
	}
}

// FetchTextureInfo looks up the metadata for a texture ID.
//
// Network failures and unexpected statuses are retried up to the configured
// attempt count with a fixed pause between attempts. HTTP 404 and malformed
// JSON are terminal: the former means the ID does not exist, the latter is a
// parse failure. Neither is retried.
func (c *Client) FetchTextureInfo(ctx context.Context, id int) (*TextureInfo, error) {
	url := TextureInfoURL(c.baseURL, id)

	cfg := &retry.Config{
		MaxAttempts: c.maxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: c.retryDelay},
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger,
	}

	return retry.DoWithResult(func() (*TextureInfo, error) {
		return c.fetchTextureInfoOnce(ctx, id, url)
	}, cfg)
}

func (c *Client) fetchTextureInfoOnce(ctx context.Context, id int, url string) (*TextureInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.metaClient.Do(req)
	if err != nil {
		c.logger.WarnWithFields("metadata request failed", map[string]interface{}{
			"texture_id": id,
			"error":      err.Error(),
			"duration":   time.Since(start),
		})
		return nil, errs.Newf(errs.ErrorTypeNetwork, "metadata request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		c.logger.DebugWithFields("texture does not exist", map[string]interface{}{
			"texture_id": id,
		})
		return nil, errs.NewHTTP(errs.ErrorTypeNotFound, resp.StatusCode, "texture not found")
	case resp.StatusCode >= 500:
		c.logger.WarnWithFields("metadata lookup server error", map[string]interface{}{
			"texture_id": id,
			"status":     resp.StatusCode,
		})
		return nil, errs.NewHTTP(errs.ErrorTypeServerError, resp.StatusCode,
			fmt.Sprintf("server returned status %d", resp.StatusCode))
	default:
		// Unexpected client-side statuses are logged and retried while
		// attempts remain.
		c.logger.WarnWithFields("unexpected metadata status", map[string]interface{}{
			"texture_id": id,
			"status":     resp.StatusCode,
		})
		return nil, errs.NewHTTP(errs.ErrorTypeServerError, resp.StatusCode,
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeNetwork, "failed to read response body: %v", err)
	}

	var info TextureInfo
	if err := json.Unmarshal(body, &info); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse metadata response", map[string]interface{}{
			"texture_id":   id,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, errs.NewHTTP(errs.ErrorTypeParsing, resp.StatusCode,
			fmt.Sprintf("failed to parse JSON: %v", err))
	}

	c.logger.DebugWithFields("fetched texture info", map[string]interface{}{
		"texture_id": id,
		"hash":       info.Hash,
		"type":       info.TypeOrUnknown(),
	})

	return &info, nil
}

// OpenTexture issues a single streamed GET for the image bytes behind a
// texture hash and returns the body for the caller to consume. The caller
// owns the returned reader and must close it.
//
// The response must be HTTP 200 with an image content type. 404 means the
// image is gone (terminal); any other status is a terminal server failure.
// Retrying a whole download attempt is the caller's concern so a retried
// attempt also re-runs the disk write.
func (c *Client) OpenTexture(ctx context.Context, hash string) (io.ReadCloser, error) {
	url := TextureDownloadURL(c.baseURL, hash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	for key, value := range c.dlHeaders {
		req.Header.Set(key, value)
	}

	resp, err := c.dlClient.Do(req)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeNetwork, "download request failed: %v", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errs.NewHTTP(errs.ErrorTypeNotFound, resp.StatusCode, "image not found")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errs.NewHTTP(errs.ErrorTypeServerError, resp.StatusCode,
			fmt.Sprintf("download failed with status %d", resp.StatusCode))
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "image") {
		resp.Body.Close()
		c.logger.WarnWithFields("download is not an image", map[string]interface{}{
			"hash":         hash,
			"content_type": contentType,
		})
		return nil, errs.Newf(errs.ErrorTypeParsing, "response is not an image (content-type: %s)", contentType)
	}

	return resp.Body, nil
}
