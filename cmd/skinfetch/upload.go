package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"skinfetch/pkg/logger"
	"skinfetch/pkg/ratelimit"
	"skinfetch/pkg/storage"
	"skinfetch/pkg/ui"
	"skinfetch/pkg/uploader"
)

var (
	// Upload command flags
	uploadEndpoint  string
	uploadMode      string
	uploadBatchSize int
	uploadWorkers   int
	uploadDir       string
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Re-submit the local image tree to an upload endpoint",
	Long: `Scan the local image tree and submit every uploadable png to the
configured endpoint.

Single mode uploads one file per request with a pool of workers. Batch mode
groups files and submits each group in one request, sequentially. Cape files
without a type suffix cannot be accepted by the destination and are skipped.`,
	Example: `  # Upload one file per request
  skinfetch upload --endpoint https://example.com/api/upload

  # Batch mode with groups of ten
  skinfetch upload --endpoint https://example.com/api/upload --mode batch --batch-size 10

  # Skip the confirmation prompts
  skinfetch upload --endpoint https://example.com/api/upload --yes`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVarP(&uploadEndpoint, "endpoint", "e", "", "upload endpoint URL")
	uploadCmd.Flags().StringVarP(&uploadMode, "mode", "m", "", "upload mode: single or batch (prompted when omitted)")
	uploadCmd.Flags().IntVar(&uploadBatchSize, "batch-size", 0, "files per batch request")
	uploadCmd.Flags().IntVar(&uploadWorkers, "workers", 0, "number of concurrent uploads in single mode")
	uploadCmd.Flags().StringVarP(&uploadDir, "dir", "d", "", "image root directory to scan (default: imgs)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if uploadEndpoint != "" {
		flags["endpoint"] = uploadEndpoint
	}
	if uploadBatchSize > 0 {
		flags["batch-size"] = uploadBatchSize
	}
	if uploadWorkers > 0 {
		flags["upload-workers"] = uploadWorkers
	}
	if uploadDir != "" {
		flags["output"] = uploadDir
	}

	cfg, err := loadConfig(flags, "upload.log")
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	log := logger.WithField("run_id", runID)
	log.WithField("version", version).Info("skinfetch upload starting")

	prompter := ui.NewPrompter(os.Stdin, os.Stdout)

	endpoint := cfg.Uploader.Endpoint
	switch {
	case endpoint == "":
		endpoint, err = prompter.EndpointOverride("")
		if err != nil {
			ui.PrintError("Failed to read endpoint", err.Error())
			os.Exit(1)
		}
	case !assumeYes && !cmd.Flags().Changed("endpoint"):
		// A configured endpoint still gets confirmed, with a chance to
		// point the run somewhere else.
		keep, err := prompter.Confirm(fmt.Sprintf("Upload to %s", endpoint), false)
		if err != nil {
			ui.PrintError("Failed to read confirmation", err.Error())
			os.Exit(1)
		}
		if !keep {
			endpoint, err = prompter.EndpointOverride(endpoint)
			if err != nil {
				ui.PrintError("Failed to read endpoint", err.Error())
				os.Exit(1)
			}
		}
	}
	if endpoint == "" {
		ui.PrintError("No upload endpoint configured", "provide --endpoint or SKINFETCH_UPLOAD_ENDPOINT")
		os.Exit(1)
	}
	cfg.Uploader.Endpoint = endpoint

	mode, err := resolveMode(prompter)
	if err != nil {
		ui.PrintError("Failed to choose upload mode", err.Error())
		os.Exit(1)
	}

	store, err := storage.NewManager(cfg.Crawler.OutputDir, log)
	if err != nil {
		ui.PrintError("Failed to open image directory", err.Error())
		os.Exit(1)
	}

	client := uploader.NewClient(&cfg.Uploader, log)
	pacer := ratelimit.NewFixedInterval(cfg.Uploader.RequestDelay)
	runner := uploader.NewRunner(client, store, pacer, &cfg.Uploader, os.Stdout, log)

	staged, err := runner.Stage()
	if err != nil {
		ui.PrintError("Failed to scan image directory", err.Error())
		os.Exit(1)
	}
	if len(staged) == 0 {
		ui.PrintWarning("No uploadable files found", cfg.Crawler.OutputDir)
		return nil
	}

	ui.PrintInfo("Upload endpoint", endpoint)
	ui.PrintInfo("Mode", string(mode))
	ui.PrintInfo("Files to upload", strconv.Itoa(len(staged)))

	if !assumeYes {
		proceed, err := prompter.Confirm(fmt.Sprintf("Upload %d files", len(staged)), false)
		if err != nil {
			ui.PrintError("Failed to read confirmation", err.Error())
			os.Exit(1)
		}
		if !proceed {
			ui.PrintWarning("Upload cancelled")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintHighlight(fmt.Sprintf("Uploading %d files in %s mode", len(staged), mode))

	summary := runner.Run(ctx, mode, staged)

	if ctx.Err() != nil {
		ui.PrintWarning("Upload interrupted, showing completed work")
	}

	printSummary("Upload summary", summary)

	log.WithFields(map[string]interface{}{
		"processed": summary.Processed,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("Upload finished")

	if summary.Failed > 0 {
		ui.PrintWarning("Some uploads failed", strconv.Itoa(summary.Failed))
	} else {
		ui.PrintSuccess("All files uploaded successfully")
	}

	return nil
}

// resolveMode turns the --mode flag into an upload mode, prompting when the
// flag is absent.
func resolveMode(prompter *ui.Prompter) (uploader.Mode, error) {
	switch uploadMode {
	case "":
		if assumeYes {
			return uploader.ModeSingle, nil
		}
		return prompter.UploadMode()
	case string(uploader.ModeSingle):
		return uploader.ModeSingle, nil
	case string(uploader.ModeBatch):
		return uploader.ModeBatch, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected single or batch)", uploadMode)
	}
}
