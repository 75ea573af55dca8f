package scanner

import (
	"io"
	"sync"
	"time"
)

// ImportOptions defines the options for importing a folder
type ImportOptions struct {
	FolderPath string
	UserID     int64
	MaxWorkers int // 0 means signalhandler.GetOptimalProcs()
	UseExif    bool
	DebugMode  bool
	Output     io.Writer // progress output, defaults to os.Stdout
}

// ImportResult holds the result of importing one photo
type ImportResult struct {
	Path    string
	ItemID  int64
	Success bool
	Skipped bool
	Error   error
}

// FileStats tracks information about files found in the folder
type FileStats struct {
	totalFiles     int
	labeledFiles   int
	unlabeledFiles int
}

// Summary reports the outcome of an import
type Summary struct {
	Found     int
	Unlabeled int
	Imported  int
	Skipped   int
	Errors    int
	Elapsed   time.Duration
}

// ProgressTracker tracks progress of the import operation
type ProgressTracker struct {
	processed int
	imported  int
	skipped   int
	errors    int
	ticker    *time.Ticker
	done      chan bool
	drained   chan struct{}
	mu        sync.Mutex
	total     int
	out       io.Writer
}
