package uploader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skinfetch/pkg/config"
	errs "skinfetch/pkg/errors"
	"skinfetch/pkg/logger"
)

func testUploaderConfig(endpoint string) *config.UploaderConfig {
	return &config.UploaderConfig{
		Endpoint:      endpoint,
		UserAgent:     "test-uploader",
		Workers:       3,
		BatchSize:     5,
		MaxAttempts:   3,
		RequestDelay:  time.Millisecond,
		SingleTimeout: 5 * time.Second,
		BatchTimeout:  5 * time.Second,
		MaxFileSize:   1024,
	}
}

func writePNG(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func TestValidateLocal(t *testing.T) {
	dir := t.TempDir()
	client := NewClient(testUploaderConfig("http://unused"), logger.NewTestLogger())

	t.Run("valid file", func(t *testing.T) {
		path := writePNG(t, dir, "ok.png", 64)
		assert.NoError(t, client.ValidateLocal(path))
	})

	t.Run("missing file", func(t *testing.T) {
		err := client.ValidateLocal(filepath.Join(dir, "nope.png"))
		assertValidationError(t, err)
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(dir, "skin.jpg")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		assertValidationError(t, client.ValidateLocal(path))
	})

	t.Run("empty file", func(t *testing.T) {
		path := writePNG(t, dir, "empty.png", 0)
		assertValidationError(t, client.ValidateLocal(path))
	})

	t.Run("oversized file", func(t *testing.T) {
		path := writePNG(t, dir, "big.png", 2048)
		assertValidationError(t, client.ValidateLocal(path))
	})
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeValidation, apiErr.Type)
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "cool_steve.png", 64)

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		require.NoError(t, r.ParseMultipartForm(1 << 20))
		files := r.MultipartForm.File["images"]
		require.Len(t, files, 1)
		assert.Equal(t, "cool_steve.png", files[0].Filename)
		assert.Equal(t, "image/png", files[0].Header.Get("Content-Type"))
		assert.Equal(t, "test-uploader", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(testUploaderConfig(server.URL), logger.NewTestLogger())

	err := client.UploadFile(context.Background(), StagedFile{
		Path:       path,
		UploadName: "cool_steve.png",
		SkinType:   "steve",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), requests.Load())
}

func TestUploadFileSkipsNetworkOnValidationFailure(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	client := NewClient(testUploaderConfig(server.URL), logger.NewTestLogger())

	err := client.UploadFile(context.Background(), StagedFile{
		Path:       filepath.Join(t.TempDir(), "missing.png"),
		UploadName: "missing_steve.png",
	})
	assertValidationError(t, err)
	assert.Equal(t, int64(0), requests.Load())
}

func TestUploadFileRejectedIsNotRetried(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", 64)

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"message":"duplicate texture"}`))
	}))
	defer server.Close()

	client := NewClient(testUploaderConfig(server.URL), logger.NewTestLogger())

	err := client.UploadFile(context.Background(), StagedFile{Path: path, UploadName: "a_steve.png"})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeRejected, apiErr.Type)
	assert.Contains(t, apiErr.Message, "duplicate texture")

	// The server answered, so the attempt loop must end.
	assert.Equal(t, int64(1), requests.Load())
}

func TestUploadFileServerErrorIsNotRetried(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", 64)

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testUploaderConfig(server.URL), logger.NewTestLogger())

	err := client.UploadFile(context.Background(), StagedFile{Path: path, UploadName: "a_steve.png"})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeServerError, apiErr.Type)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Code)
	assert.Equal(t, int64(1), requests.Load())
}

func TestUploadFileMalformedResponse(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", 64)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway</html>"))
	}))
	defer server.Close()

	client := NewClient(testUploaderConfig(server.URL), logger.NewTestLogger())

	err := client.UploadFile(context.Background(), StagedFile{Path: path, UploadName: "a_steve.png"})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
}

func TestUploadBatch(t *testing.T) {
	dir := t.TempDir()
	staged := []StagedFile{
		{Path: writePNG(t, dir, "a.png", 32), UploadName: "a_steve.png"},
		{Path: writePNG(t, dir, "b.png", 32), UploadName: "b_alex.png"},
		{Path: writePNG(t, dir, "c.png", 32), UploadName: "c_steve.png"},
	}

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		require.NoError(t, r.ParseMultipartForm(1 << 20))
		files := r.MultipartForm.File["images[]"]
		require.Len(t, files, 3)
		assert.Equal(t, "a_steve.png", files[0].Filename)
		assert.Equal(t, "b_alex.png", files[1].Filename)
		assert.Equal(t, "c_steve.png", files[2].Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"results":[]}}`))
	}))
	defer server.Close()

	client := NewClient(testUploaderConfig(server.URL), logger.NewTestLogger())

	require.NoError(t, client.UploadBatch(context.Background(), staged))
	assert.Equal(t, int64(1), requests.Load())
}

func TestUploadBatchSkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	staged := []StagedFile{
		{Path: writePNG(t, dir, "good.png", 32), UploadName: "good_steve.png"},
		{Path: writePNG(t, dir, "empty.png", 0), UploadName: "empty_steve.png"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Len(t, r.MultipartForm.File["images[]"], 1)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClient(testUploaderConfig(server.URL), logger.NewTestLogger())
	assert.NoError(t, client.UploadBatch(context.Background(), staged))
}

func TestUploadBatchAllInvalid(t *testing.T) {
	dir := t.TempDir()
	staged := []StagedFile{
		{Path: writePNG(t, dir, "empty.png", 0), UploadName: "empty_steve.png"},
	}

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	client := NewClient(testUploaderConfig(server.URL), logger.NewTestLogger())

	err := client.UploadBatch(context.Background(), staged)
	assertValidationError(t, err)
	assert.Equal(t, int64(0), requests.Load())
}

func TestUploadBatchRejectedCollapsesToOneFailure(t *testing.T) {
	dir := t.TempDir()
	staged := []StagedFile{
		{Path: writePNG(t, dir, "a.png", 32), UploadName: "a_steve.png"},
		{Path: writePNG(t, dir, "b.png", 32), UploadName: "b_steve.png"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"message":"quota exceeded","data":{"results":[{"filename":"a_steve.png","success":true},{"filename":"b_steve.png","success":false,"error":"quota"}]}}`))
	}))
	defer server.Close()

	log := logger.NewTestLogger()
	client := NewClient(testUploaderConfig(server.URL), log)

	err := client.UploadBatch(context.Background(), staged)
	require.Error(t, err)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeRejected, apiErr.Type)

	// The per-file detail is logged, not surfaced.
	assert.NotEmpty(t, log.EntriesAtLevel("warn"))
}
