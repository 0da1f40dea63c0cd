package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"skinfetch/pkg/crawler"
	"skinfetch/pkg/littleskin"
	"skinfetch/pkg/logger"
	"skinfetch/pkg/ratelimit"
	"skinfetch/pkg/storage"
	"skinfetch/pkg/ui"
)

var (
	// Crawl command flags
	crawlStart   int
	crawlEnd     int
	crawlOutput  string
	crawlWorkers int
	crawlRPM     int
	crawlBaseURL string
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Download textures for a range of IDs",
	Long: `Walk a contiguous range of texture IDs, fetch the metadata for each,
and download the images into the local tree (skins/, capes/, others/).

Files that already exist are skipped, so re-running a range only fetches
what is missing.`,
	Example: `  # Crawl IDs 1 through 1000 into the default directory
  skinfetch crawl --start 1 --end 1000

  # Custom output directory and worker count
  skinfetch crawl --start 500 --end 600 --output ./textures --workers 8

  # Prompt for the range interactively
  skinfetch crawl`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().IntVar(&crawlStart, "start", 0, "first texture ID (prompted when omitted)")
	crawlCmd.Flags().IntVar(&crawlEnd, "end", 0, "last texture ID, inclusive (prompted when omitted)")
	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "image root directory (default: imgs)")
	crawlCmd.Flags().IntVar(&crawlWorkers, "workers", 0, "number of concurrent downloads")
	crawlCmd.Flags().IntVar(&crawlRPM, "rate-limit", 0, "requests per minute (0 uses fixed per-item delay)")
	crawlCmd.Flags().StringVar(&crawlBaseURL, "base-url", "", "texture server base URL")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if crawlOutput != "" {
		flags["output"] = crawlOutput
	}
	if crawlWorkers > 0 {
		flags["crawl-workers"] = crawlWorkers
	}
	if crawlBaseURL != "" {
		flags["base-url"] = crawlBaseURL
	}

	cfg, err := loadConfig(flags, "crawler.log")
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	if crawlRPM > 0 {
		cfg.Crawler.RequestsPerMinute = crawlRPM
	}

	log := logger.WithField("run_id", runID)
	log.WithField("version", version).Info("skinfetch crawl starting")

	startID, endID := crawlStart, crawlEnd
	if !cmd.Flags().Changed("start") || !cmd.Flags().Changed("end") {
		prompter := ui.NewPrompter(os.Stdin, os.Stdout)
		startID, endID, err = prompter.IDRange()
		if err != nil {
			ui.PrintError("Invalid ID range", err.Error())
			os.Exit(1)
		}
	}

	ui.PrintInfo("Texture server", cfg.API.BaseURL)
	ui.PrintInfo("ID range", fmt.Sprintf("%d-%d", startID, endID))
	ui.PrintInfo("Output directory", cfg.Crawler.OutputDir)

	if !assumeYes {
		prompter := ui.NewPrompter(os.Stdin, os.Stdout)
		proceed, err := prompter.Confirm(fmt.Sprintf("Crawl %d texture IDs", endID-startID+1), false)
		if err != nil {
			ui.PrintError("Failed to read confirmation", err.Error())
			os.Exit(1)
		}
		if !proceed {
			ui.PrintWarning("Crawl cancelled")
			return nil
		}
	}

	store, err := storage.NewManager(cfg.Crawler.OutputDir, log)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}

	client := littleskin.NewClient(&cfg.API, cfg.Crawler.MaxAttempts, cfg.Crawler.RetryDelay, log)

	var pacer ratelimit.Limiter
	if cfg.Crawler.RequestsPerMinute > 0 {
		pacer = ratelimit.NewTokenBucket(cfg.Crawler.RequestsPerMinute, time.Minute)
	} else {
		pacer = ratelimit.NewFixedInterval(cfg.Crawler.RequestDelay)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintHighlight(fmt.Sprintf("Crawling textures %d-%d", startID, endID))

	c := crawler.New(client, store, pacer, &cfg.Crawler, os.Stdout, log)

	summary, err := c.Run(ctx, startID, endID)
	if err != nil {
		log.WithError(err).Error("Crawl failed")
		ui.PrintError("Crawl failed", err.Error())
		os.Exit(1)
	}

	if ctx.Err() != nil {
		ui.PrintWarning("Crawl interrupted, showing completed work")
	}

	printSummary("Crawl summary", summary)

	if abs, err := filepath.Abs(store.Root()); err == nil {
		ui.PrintInfo("Images saved to", abs)
	}

	log.WithFields(map[string]interface{}{
		"processed": summary.Processed,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("Crawl finished")

	if summary.Failed > 0 {
		ui.PrintWarning("Some textures failed", strconv.Itoa(summary.Failed))
	} else {
		ui.PrintSuccess("All textures processed successfully")
	}

	return nil
}
