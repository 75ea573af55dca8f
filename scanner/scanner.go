// Package scanner backfills a user's food log from a folder of photos whose
// file names start with their calorie count.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"foodmatch/foodlog"
	"foodmatch/logging"
	"foodmatch/signalhandler"
)

// Importer stores imported photos
type Importer interface {
	Import(req foodlog.ImportRequest) (int64, error)
	AlreadyImported(userID int64, sourcePath string) (bool, error)
}

// ImportFolder walks options.FolderPath and imports every labeled photo with
// a bounded pool of workers. Cancelling ctx stops the walk; photos already
// handed to workers are finished.
func ImportFolder(ctx context.Context, svc Importer, options ImportOptions) (Summary, error) {
	folderInfo, err := os.Stat(options.FolderPath)
	if err != nil {
		return Summary{}, fmt.Errorf("cannot access folder %s: %w", options.FolderPath, err)
	}
	if !folderInfo.IsDir() {
		return Summary{}, fmt.Errorf("path is not a directory: %s", options.FolderPath)
	}
	if options.Output == nil {
		options.Output = os.Stdout
	}
	if options.MaxWorkers <= 0 {
		options.MaxWorkers = signalhandler.GetOptimalProcs()
	}

	clock := newCaptureClock(options.UseExif)
	defer clock.Close()

	var wg sync.WaitGroup
	resultsChan := make(chan ImportResult, 100)
	semaphore := make(chan struct{}, options.MaxWorkers)

	fileStats := countFilesToProcess(options)
	PrintStartupInfo(fileStats, options)

	tracker := NewProgressTracker(fileStats, options, resultsChan)

	startTime := time.Now()
	err = walkAndImportFiles(ctx, svc, clock, options, &wg, resultsChan, semaphore)

	wg.Wait()
	close(resultsChan)
	tracker.Stop()

	summary := tracker.summary(fileStats, startTime)
	PrintCompletionStats(summary, options)
	logging.LogInfo("Imported %d photos from %s for user %d (%d skipped, %d errors)",
		summary.Imported, options.FolderPath, options.UserID, summary.Skipped, summary.Errors)

	return summary, err
}

// countFilesToProcess counts photos with and without a calorie label
func countFilesToProcess(options ImportOptions) FileStats {
	stats := FileStats{}

	if options.DebugMode {
		logging.DebugLog("Starting import from folder: %s for user %d", options.FolderPath, options.UserID)
	}

	filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !IsImageFile(path) {
			return nil
		}
		stats.totalFiles++
		if _, ok := ParseCalorieLabel(path); ok {
			stats.labeledFiles++
		} else {
			stats.unlabeledFiles++
		}
		return nil
	})

	return stats
}

// walkAndImportFiles traverses the directory and imports each labeled photo
func walkAndImportFiles(ctx context.Context, svc Importer, clock *captureClock, options ImportOptions,
	wg *sync.WaitGroup, resultsChan chan ImportResult, semaphore chan struct{}) error {

	return filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || info.IsDir() {
			if err != nil && options.DebugMode {
				logging.LogError("Error accessing path %s: %v", path, err)
			}
			return nil
		}
		if !IsImageFile(path) {
			return nil
		}
		calories, ok := ParseCalorieLabel(path)
		if !ok {
			if options.DebugMode {
				logging.DebugLog("No calorie label, ignoring: %s", path)
			}
			return nil
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(p string, fi os.FileInfo) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resultsChan <- importPhoto(svc, clock, p, fi, calories, options)
		}(path, info)

		return nil
	})
}

// importPhoto stores one photo unless it was imported before
func importPhoto(svc Importer, clock *captureClock, path string, info os.FileInfo, calories int, options ImportOptions) ImportResult {
	sourcePath, err := filepath.Abs(path)
	if err != nil {
		sourcePath = path
	}

	exists, err := svc.AlreadyImported(options.UserID, sourcePath)
	if err != nil {
		return ImportResult{Path: path, Error: err}
	}
	if exists {
		return ImportResult{Path: path, Success: true, Skipped: true}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{Path: path, Error: fmt.Errorf("cannot read %s: %w", path, err)}
	}

	id, err := svc.Import(foodlog.ImportRequest{
		UserID:     options.UserID,
		Photo:      content,
		Ext:        GetFileFormat(path),
		SourcePath: sourcePath,
		Calories:   calories,
		Created:    clock.CaptureTime(path, info),
	})
	if err != nil {
		return ImportResult{Path: path, Error: fmt.Errorf("cannot import %s: %w", path, err)}
	}
	return ImportResult{Path: path, ItemID: id, Success: true}
}
