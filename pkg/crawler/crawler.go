package crawler

import (
	"context"
	"io"
	"time"

	"skinfetch/internal/pool"
	"skinfetch/pkg/config"
	errs "skinfetch/pkg/errors"
	"skinfetch/pkg/littleskin"
	"skinfetch/pkg/logger"
	"skinfetch/pkg/ratelimit"
	"skinfetch/pkg/report"
	"skinfetch/pkg/retry"
	"skinfetch/pkg/storage"
)

// TextureClient is the metadata and download surface the crawler drives.
// It is an interface so tests can substitute a fake.
type TextureClient interface {
	FetchTextureInfo(ctx context.Context, id int) (*littleskin.TextureInfo, error)
	OpenTexture(ctx context.Context, hash string) (io.ReadCloser, error)
}

// Crawler walks a contiguous range of texture IDs, fetching metadata for each
// and downloading the image into the local tree.
type Crawler struct {
	client TextureClient
	store  *storage.Manager
	pacer  ratelimit.Limiter
	cfg    *config.CrawlerConfig
	out    io.Writer
	logger logger.Logger
}

// New wires a crawler.
func New(client TextureClient, store *storage.Manager, pacer ratelimit.Limiter,
	cfg *config.CrawlerConfig, out io.Writer, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Crawler{
		client: client,
		store:  store,
		pacer:  pacer,
		cfg:    cfg,
		out:    out,
		logger: log,
	}
}

// Run enumerates every ID in [startID, endID] through the worker pool and
// returns the final summary. An interrupt stops dispatch; items already in
// flight finish and are counted.
func (c *Crawler) Run(ctx context.Context, startID, endID int) (report.Summary, error) {
	if startID > endID {
		return report.Summary{}, errs.Newf(errs.ErrorTypeValidation,
			"invalid ID range: start %d is greater than end %d", startID, endID)
	}

	total := endID - startID + 1
	c.logger.InfoWithFields("starting crawl", map[string]interface{}{
		"start_id": startID,
		"end_id":   endID,
		"total":    total,
		"workers":  c.cfg.Workers,
	})

	reporter := report.New(total, c.out, c.logger)

	p := pool.New(ctx, c.cfg.Workers, c.processTexture, c.logger)
	p.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for outcome := range p.Results() {
			reporter.Record(outcome.Item.Label(), outcome.Success, outcome.Err)
		}
	}()

	for id := startID; id <= endID; id++ {
		if err := p.Submit(textureJob{ID: id}); err != nil {
			c.logger.WithError(err).Warn("crawl dispatch stopped")
			break
		}
	}

	p.Stop()
	<-done

	return reporter.Finish(), nil
}

// processTexture handles one texture ID end to end: metadata lookup, existence
// check, then a retried download-and-save. The inter-request pause applies
// after every item regardless of outcome.
func (c *Crawler) processTexture(ctx context.Context, job textureJob) pool.Outcome[textureJob] {
	start := time.Now()
	outcome := c.fetchAndSave(ctx, job)
	outcome.Duration = time.Since(start)

	if ctx.Err() == nil {
		_ = c.pacer.Wait(ctx)
	}

	return outcome
}

func (c *Crawler) fetchAndSave(ctx context.Context, job textureJob) pool.Outcome[textureJob] {
	fail := func(stage string, err error) pool.Outcome[textureJob] {
		return pool.Outcome[textureJob]{Item: job, Success: false, Stage: stage, Err: err}
	}

	info, err := c.client.FetchTextureInfo(ctx, job.ID)
	if err != nil {
		return fail("metadata", err)
	}

	if info.Hash == "" {
		return fail("metadata", errs.Newf(errs.ErrorTypeValidation,
			"metadata for texture %d has no hash", job.ID))
	}

	filename := storage.BuildTextureFilename(info.Name, info.TypeOrUnknown(), info.Hash, job.ID)
	subdir := storage.SubdirForType(info.Type)

	// Re-running a range never re-downloads what is already on disk.
	if c.store.Exists(subdir, filename) {
		c.logger.DebugWithFields("file already exists, skipping download", map[string]interface{}{
			"texture_id": job.ID,
			"file":       filename,
		})
		return pool.Outcome[textureJob]{Item: job, Success: true, Stage: "skipped"}
	}

	cfg := &retry.Config{
		MaxAttempts: c.cfg.MaxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: c.cfg.RetryDelay},
		RetryIf:     retry.NetworkOnly,
		Context:     ctx,
		Logger:      c.logger,
	}

	// A failed attempt re-runs the whole download including the disk write,
	// since the body is streamed straight to the file.
	err = retry.Do(func() error {
		return c.downloadOnce(ctx, info.Hash, subdir, filename)
	}, cfg)
	if err != nil {
		return fail("download", err)
	}

	return pool.Outcome[textureJob]{Item: job, Success: true, Stage: "downloaded"}
}

func (c *Crawler) downloadOnce(ctx context.Context, hash, subdir, filename string) error {
	body, err := c.client.OpenTexture(ctx, hash)
	if err != nil {
		return err
	}
	defer body.Close()

	written, err := c.store.Save(body, subdir, filename)
	if err != nil {
		return err
	}

	c.logger.InfoWithFields("downloaded texture", map[string]interface{}{
		"file":  filename,
		"bytes": written,
	})

	return nil
}
