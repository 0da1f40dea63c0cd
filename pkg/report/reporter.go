package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"skinfetch/pkg/logger"
)

// Summary is the final tally of a batch run.
type Summary struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// SuccessRate returns the fraction of processed items that succeeded,
// as a percentage.
func (s Summary) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Processed) * 100
}

// Throughput returns processed items per second.
func (s Summary) Throughput() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Processed) / secs
}

// Reporter aggregates per-item outcomes as they complete and keeps a live
// progress line on the console. A single mutex guards both the counters and
// the interleaved console writes.
type Reporter struct {
	mu        sync.Mutex
	total     int
	processed int
	succeeded int
	failed    int
	start     time.Time

	out         io.Writer
	interactive bool
	termWidth   func() int

	logger logger.Logger
}

// New creates a reporter for a run of total items writing progress to out.
// When out is a terminal the progress line is redrawn in place; otherwise
// each update is a plain line.
func New(total int, out io.Writer, log logger.Logger) *Reporter {
	if log == nil {
		log = logger.GetLogger()
	}

	r := &Reporter{
		total:     total,
		start:     time.Now(),
		out:       out,
		termWidth: func() int { return 0 },
		logger:    log,
	}

	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		r.interactive = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		if r.interactive {
			r.termWidth = func() int {
				w, _, err := term.GetSize(int(fd))
				if err != nil {
					return 0
				}
				return w
			}
		}
	}

	return r
}

// Record registers the outcome of one item. Failure reasons go to the log,
// not the console, to keep the progress line readable.
func (r *Reporter) Record(label string, success bool, err error) {
	r.recordN(label, 1, success, err)
}

// RecordBatch registers the collapsed outcome of a whole batch: n items that
// all succeeded or all failed as one unit.
func (r *Reporter) RecordBatch(n int, success bool, err error) {
	r.recordN(fmt.Sprintf("batch of %d", n), n, success, err)
}

func (r *Reporter) recordN(label string, n int, success bool, err error) {
	if !success && err != nil {
		r.logger.DebugWithFields("item failed", map[string]interface{}{
			"item":  label,
			"error": err.Error(),
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.processed += n
	if success {
		r.succeeded += n
	} else {
		r.failed += n
	}

	r.printProgressLocked()
}

// printProgressLocked redraws the progress line. Callers must hold the mutex.
func (r *Reporter) printProgressLocked() {
	percent := 0.0
	if r.total > 0 {
		percent = float64(r.processed) / float64(r.total) * 100
	}

	line := fmt.Sprintf("progress: %d/%d (%.1f%%) - ok: %d, failed: %d",
		r.processed, r.total, percent, r.succeeded, r.failed)

	if r.interactive {
		if w := r.termWidth(); w > 0 && len(line) > w-1 {
			line = line[:w-1]
		}
		fmt.Fprintf(r.out, "\r%s", line)
		return
	}

	fmt.Fprintln(r.out, line)
}

// Snapshot returns the current counts without finishing the run.
func (r *Reporter) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Summary{
		Total:     r.total,
		Processed: r.processed,
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Elapsed:   time.Since(r.start),
	}
}

// Finish terminates the progress line and returns the final summary. It is
// safe to call after an interrupted run; the summary covers whatever
// completed.
func (r *Reporter) Finish() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.interactive && r.processed > 0 {
		fmt.Fprintln(r.out)
	}

	return Summary{
		Total:     r.total,
		Processed: r.processed,
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Elapsed:   time.Since(r.start),
	}
}
