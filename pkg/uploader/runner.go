package uploader

import (
	"context"
	"io"
	"path/filepath"

	"skinfetch/internal/pool"
	"skinfetch/pkg/config"
	"skinfetch/pkg/logger"
	"skinfetch/pkg/ratelimit"
	"skinfetch/pkg/report"
	"skinfetch/pkg/storage"
)

// TransferClient is the network surface the runner drives. It is an
// interface so tests can substitute a fake.
type TransferClient interface {
	ValidateLocal(path string) error
	UploadFile(ctx context.Context, f StagedFile) error
	UploadBatch(ctx context.Context, files []StagedFile) error
}

// Runner orchestrates an upload job: scan the local tree, resolve names,
// then submit everything in the chosen mode.
type Runner struct {
	client TransferClient
	store  *storage.Manager
	pacer  ratelimit.Limiter
	cfg    *config.UploaderConfig
	out    io.Writer
	logger logger.Logger
}

// NewRunner wires an upload runner.
func NewRunner(client TransferClient, store *storage.Manager, pacer ratelimit.Limiter,
	cfg *config.UploaderConfig, out io.Writer, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Runner{
		client: client,
		store:  store,
		pacer:  pacer,
		cfg:    cfg,
		out:    out,
		logger: log,
	}
}

// Stage scans the image tree and resolves every file to its API-facing
// name. Cape files without a type suffix are excluded entirely: they are
// not uploadable through this path and do not count as failures.
func (r *Runner) Stage() ([]StagedFile, error) {
	files, err := r.store.ScanImages()
	if err != nil {
		return nil, err
	}

	staged := make([]StagedFile, 0, len(files))
	for _, path := range files {
		uploadName, skinType, ok := ResolveUploadName(path)
		if !ok {
			r.logger.DebugWithFields("skipping cape file", map[string]interface{}{
				"file": filepath.Base(path),
			})
			continue
		}
		staged = append(staged, StagedFile{
			Path:       path,
			UploadName: uploadName,
			SkinType:   skinType,
		})
	}

	r.logger.InfoWithFields("staged files for upload", map[string]interface{}{
		"scanned": len(files),
		"staged":  len(staged),
	})

	return staged, nil
}

// Run executes the upload job over the staged files and returns the final
// summary. An interrupt stops dispatch; completed outcomes are kept.
func (r *Runner) Run(ctx context.Context, mode Mode, staged []StagedFile) report.Summary {
	reporter := report.New(len(staged), r.out, r.logger)

	if len(staged) == 0 {
		return reporter.Finish()
	}

	switch mode {
	case ModeBatch:
		r.runBatch(ctx, staged, reporter)
	default:
		r.runSingle(ctx, staged, reporter)
	}

	return reporter.Finish()
}

// runSingle fans files out over the worker pool, one request per file.
func (r *Runner) runSingle(ctx context.Context, staged []StagedFile, reporter *report.Reporter) {
	p := pool.New(ctx, r.cfg.Workers, r.processFile, r.logger)
	p.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for outcome := range p.Results() {
			reporter.Record(filepath.Base(outcome.Item.Path), outcome.Success, outcome.Err)
		}
	}()

	for _, f := range staged {
		if err := p.Submit(f); err != nil {
			r.logger.WithError(err).Warn("upload dispatch stopped")
			break
		}
	}

	p.Stop()
	<-done
}

// runBatch groups files and submits each group as one request, strictly
// sequentially. Each batch is a single collapsed outcome.
//
// Files that fail local validation are recorded as individual failures up
// front; only the valid remainder is batched, so an oversized or empty file
// can never be counted as succeeded on the back of its batch mates.
func (r *Runner) runBatch(ctx context.Context, staged []StagedFile, reporter *report.Reporter) {
	valid := make([]StagedFile, 0, len(staged))
	for _, f := range staged {
		if err := r.client.ValidateLocal(f.Path); err != nil {
			reporter.Record(filepath.Base(f.Path), false, err)
			continue
		}
		valid = append(valid, f)
	}

	batchNum := 0
	for start := 0; start < len(valid); start += r.cfg.BatchSize {
		if ctx.Err() != nil {
			r.logger.Warn("upload interrupted, stopping batch dispatch")
			break
		}

		end := start + r.cfg.BatchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]
		batchNum++

		err := r.client.UploadBatch(ctx, batch)
		if err != nil {
			r.logger.WarnWithFields("batch upload failed", map[string]interface{}{
				"batch": batchNum,
				"files": len(batch),
				"error": err.Error(),
			})
		}
		reporter.RecordBatch(len(batch), err == nil, err)

		if err := r.pacer.Wait(ctx); err != nil {
			break
		}
	}
}

// processFile uploads one file and applies the inter-request pause, success
// or not.
func (r *Runner) processFile(ctx context.Context, f StagedFile) pool.Outcome[StagedFile] {
	err := r.client.UploadFile(ctx, f)

	// Throttle regardless of outcome, unless the run was cancelled.
	if ctx.Err() == nil {
		_ = r.pacer.Wait(ctx)
	}

	stage := "uploaded"
	if err != nil {
		stage = "failed"
	}

	return pool.Outcome[StagedFile]{
		Item:    f,
		Success: err == nil,
		Stage:   stage,
		Err:     err,
	}
}
