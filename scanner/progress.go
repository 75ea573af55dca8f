package scanner

import (
	"fmt"
	"time"

	"foodmatch/logging"
)

// NewProgressTracker initializes the progress tracker
func NewProgressTracker(stats FileStats, options ImportOptions, resultsChan chan ImportResult) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:  time.NewTicker(500 * time.Millisecond),
		done:    make(chan bool),
		drained: make(chan struct{}),
		total:   stats.labeledFiles,
		out:     options.Output,
	}

	go tracker.displayProgress()
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (Imported: %d, Skipped: %d, Errors: %d)",
					p.processed, p.total, p.imported, p.skipped, p.errors)
			} else {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (Imported: %d, Skipped: %d)",
					p.processed, p.total, p.imported, p.skipped)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state based on import results
func (p *ProgressTracker) processResults(resultsChan chan ImportResult) {
	defer close(p.drained)

	for result := range resultsChan {
		p.mu.Lock()
		p.processed++

		switch {
		case result.Skipped:
			p.skipped++
			logging.DebugLog("Skipping already imported photo: %s", result.Path)
		case !result.Success:
			p.errors++
			if result.Error != nil {
				logging.LogImageProcessed(result.Path, false, result.Error.Error())
			}
		default:
			p.imported++
			logging.LogImageProcessed(result.Path, true, "")
		}

		p.mu.Unlock()
	}
}

// Stop ends the progress display once every result has been counted.
// The results channel must be closed first.
func (p *ProgressTracker) Stop() {
	<-p.drained
	p.ticker.Stop()
	p.done <- true
}

// PrintStartupInfo displays information about the import before starting
func PrintStartupInfo(stats FileStats, options ImportOptions) {
	fmt.Fprintf(options.Output, "Starting food photo import...\nPhotos found: %d (%d with a calorie label, %d without)\n",
		stats.totalFiles, stats.labeledFiles, stats.unlabeledFiles)
	fmt.Fprintf(options.Output, "User: %d\n", options.UserID)

	if options.DebugMode {
		fmt.Fprintf(options.Output, "Debug mode: enabled\n")
		logging.DebugLog("Found %d photos in %s (%d labeled, %d unlabeled)",
			stats.totalFiles, options.FolderPath, stats.labeledFiles, stats.unlabeledFiles)
	}
}

// PrintCompletionStats displays statistics after import completion
func PrintCompletionStats(summary Summary, options ImportOptions) {
	if options.DebugMode {
		logging.DebugLog("Import completed in %v. Imported: %d, Skipped: %d, Errors: %d, Unlabeled: %d",
			summary.Elapsed, summary.Imported, summary.Skipped, summary.Errors, summary.Unlabeled)
	}

	fmt.Fprintln(options.Output, "\nImport complete.")
	fmt.Fprintf(options.Output, "Imported %d photos in %v.\n", summary.Imported, summary.Elapsed.Round(time.Second))

	if summary.Skipped > 0 {
		fmt.Fprintf(options.Output, "Skipped %d photos imported earlier.\n", summary.Skipped)
	}
	if summary.Unlabeled > 0 {
		fmt.Fprintf(options.Output, "Ignored %d photos without a leading calorie count (e.g. 450_pasta.jpg).\n", summary.Unlabeled)
	}
	if summary.Errors > 0 {
		fmt.Fprintf(options.Output, "Encountered %d errors during import.\n", summary.Errors)
		fmt.Fprintln(options.Output, "Check the log file for details.")
	}
}

func (p *ProgressTracker) summary(stats FileStats, started time.Time) Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Summary{
		Found:     stats.totalFiles,
		Unlabeled: stats.unlabeledFiles,
		Imported:  p.imported,
		Skipped:   p.skipped,
		Errors:    p.errors,
		Elapsed:   time.Since(started),
	}
}
