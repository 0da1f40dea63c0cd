package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skinfetch/pkg/config"
	errs "skinfetch/pkg/errors"
	"skinfetch/pkg/logger"
	"skinfetch/pkg/retry"
	"skinfetch/pkg/storage"
)

// Multipart field names expected by the upload endpoint.
const (
	singleFieldName = "images"
	batchFieldName  = "images[]"
)

// Client submits staged files to the upload endpoint, one per request or in
// multi-file batches.
type Client struct {
	singleClient *http.Client
	batchClient  *http.Client
	endpoint     string
	userAgent    string
	maxAttempts  int
	maxFileSize  int64

	logger logger.Logger
}

// NewClient creates an upload client from configuration.
func NewClient(cfg *config.UploaderConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		singleClient: &http.Client{Timeout: cfg.SingleTimeout},
		batchClient:  &http.Client{Timeout: cfg.BatchTimeout},
		endpoint:     cfg.Endpoint,
		userAgent:    cfg.UserAgent,
		maxAttempts:  cfg.MaxAttempts,
		maxFileSize:  cfg.MaxFileSize,
		logger:       log,
	}
}

// SetHTTPClients replaces the underlying HTTP clients. Used by tests to
// inject a fake transport.
func (c *Client) SetHTTPClients(single, batch *http.Client) {
	if single != nil {
		c.singleClient = single
	}
	if batch != nil {
		c.batchClient = batch
	}
}

// ValidateLocal checks the file constraints the endpoint enforces, before
// any network call: the file must exist, carry the png extension, be
// non-empty and stay within the size limit.
func (c *Client) ValidateLocal(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errs.Newf(errs.ErrorTypeValidation, "file does not exist: %s", path)
	}
	if !strings.EqualFold(filepath.Ext(path), storage.ImageExt) {
		return errs.Newf(errs.ErrorTypeValidation, "not a png file: %s", path)
	}
	if fi.Size() == 0 {
		return errs.Newf(errs.ErrorTypeValidation, "file is empty: %s", path)
	}
	if fi.Size() > c.maxFileSize {
		return errs.Newf(errs.ErrorTypeValidation,
			"file exceeds %d byte limit (%d bytes): %s", c.maxFileSize, fi.Size(), path)
	}
	return nil
}

// UploadFile submits one staged file. Local validation failures never reach
// the network. Network failures retry with exponential backoff; any answer
// from the server, success or refusal, ends the attempt loop.
func (c *Client) UploadFile(ctx context.Context, f StagedFile) error {
	if err := c.ValidateLocal(f.Path); err != nil {
		return err
	}

	cfg := &retry.Config{
		MaxAttempts: c.maxAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:  time.Second,
			Multiplier: 2.0,
		},
		RetryIf: retry.NetworkOnly,
		Context: ctx,
		Logger:  c.logger,
	}

	return retry.Do(func() error {
		return c.uploadFileOnce(ctx, f)
	}, cfg)
}

func (c *Client) uploadFileOnce(ctx context.Context, f StagedFile) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return errs.Newf(errs.ErrorTypeValidation, "failed to open file: %v", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := addImagePart(writer, singleFieldName, f.UploadName, file); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return errs.Newf(errs.ErrorTypeUnknown, "failed to close multipart writer: %v", err)
	}

	c.logger.DebugWithFields("uploading file", map[string]interface{}{
		"file":        filepath.Base(f.Path),
		"upload_name": f.UploadName,
	})

	return c.post(ctx, c.singleClient, body, writer.FormDataContentType(), 1)
}

// UploadBatch submits a group of files in one multipart request with a
// repeated field. The whole batch is a single outcome; per-file detail in
// the response is logged, not surfaced.
//
// All file handles stay open for the duration of one request and are closed
// on every exit path.
func (c *Client) UploadBatch(ctx context.Context, files []StagedFile) error {
	var valid []StagedFile
	for _, f := range files {
		if err := c.ValidateLocal(f.Path); err != nil {
			c.logger.WarnWithFields("skipping invalid file in batch", map[string]interface{}{
				"file":  filepath.Base(f.Path),
				"error": err.Error(),
			})
			continue
		}
		valid = append(valid, f)
	}

	if len(valid) == 0 {
		return errs.New(errs.ErrorTypeValidation, "no valid files to upload")
	}

	cfg := &retry.Config{
		MaxAttempts: c.maxAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:  time.Second,
			Multiplier: 2.0,
		},
		RetryIf: retry.NetworkOnly,
		Context: ctx,
		Logger:  c.logger,
	}

	return retry.Do(func() error {
		return c.uploadBatchOnce(ctx, valid)
	}, cfg)
}

func (c *Client) uploadBatchOnce(ctx context.Context, files []StagedFile) (err error) {
	opened := make([]*os.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, f := range files {
		file, openErr := os.Open(f.Path)
		if openErr != nil {
			return errs.Newf(errs.ErrorTypeValidation, "failed to open file: %v", openErr)
		}
		opened = append(opened, file)

		if err := addImagePart(writer, batchFieldName, f.UploadName, file); err != nil {
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return errs.Newf(errs.ErrorTypeUnknown, "failed to close multipart writer: %v", err)
	}

	c.logger.DebugWithFields("uploading batch", map[string]interface{}{
		"files": len(files),
	})

	return c.post(ctx, c.batchClient, body, writer.FormDataContentType(), len(files))
}

// addImagePart writes one file into the multipart body with the declared
// image content type.
func addImagePart(writer *multipart.Writer, field, filename string, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", "image/png")

	part, err := writer.CreatePart(h)
	if err != nil {
		return errs.Newf(errs.ErrorTypeUnknown, "failed to create form part: %v", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return errs.Newf(errs.ErrorTypeValidation, "failed to read file data: %v", err)
	}
	return nil
}

// post performs the HTTP request and interprets the response per the upload
// API contract: HTTP 200 with a JSON body whose success field is truthy.
func (c *Client) post(ctx context.Context, httpClient *http.Client, body io.Reader, contentType string, fileCount int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return errs.Newf(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return errs.Newf(errs.ErrorTypeNetwork, "upload request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Newf(errs.ErrorTypeNetwork, "failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorWithFields("upload rejected with HTTP error", map[string]interface{}{
			"status":   resp.StatusCode,
			"body":     preview(respBody, 500),
			"duration": time.Since(start),
		})
		return errs.NewHTTP(errs.ErrorTypeServerError, resp.StatusCode,
			fmt.Sprintf("HTTP error %d", resp.StatusCode))
	}

	var parsed UploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.logger.ErrorWithFields("failed to parse upload response", map[string]interface{}{
			"error": err.Error(),
			"body":  preview(respBody, 200),
		})
		return errs.Newf(errs.ErrorTypeParsing, "malformed server response: %s", preview(respBody, 200))
	}

	c.logFileResults(&parsed)

	if !parsed.Success {
		message := parsed.Message
		if message == "" {
			message = "upload failed"
		}
		return errs.New(errs.ErrorTypeRejected, message)
	}

	c.logger.InfoWithFields("upload succeeded", map[string]interface{}{
		"files":    fileCount,
		"duration": time.Since(start),
	})

	return nil
}

// logFileResults records any per-file detail the server included.
func (c *Client) logFileResults(resp *UploadResponse) {
	if resp.Data == nil {
		return
	}
	for _, r := range resp.Data.Results {
		if r.Success {
			continue
		}
		c.logger.WarnWithFields("server reported file failure", map[string]interface{}{
			"filename": r.Filename,
			"error":    r.Error,
		})
	}
}

func preview(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
