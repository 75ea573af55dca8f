package scanner

import (
	"os"
	"sync"
	"time"

	"github.com/barasher/go-exiftool"

	"foodmatch/logging"
)

// exifTimeLayout is the EXIF DateTimeOriginal format
const exifTimeLayout = "2006:01:02 15:04:05"

// captureClock resolves when a photo was taken. A single exiftool process
// is shared by all workers, so calls are serialized.
type captureClock struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

func newCaptureClock(useExif bool) *captureClock {
	c := &captureClock{}
	if !useExif {
		return c
	}
	et, err := exiftool.NewExiftool()
	if err != nil {
		logging.LogWarning("exiftool unavailable, using file modification times: %v", err)
		return c
	}
	c.et = et
	return c
}

// CaptureTime returns the EXIF DateTimeOriginal of path, read in the local
// zone, or the file modification time when there is none
func (c *captureClock) CaptureTime(path string, info os.FileInfo) time.Time {
	if t, ok := c.exifTime(path); ok {
		return t
	}
	return info.ModTime()
}

func (c *captureClock) exifTime(path string) (time.Time, bool) {
	if c.et == nil {
		return time.Time{}, false
	}

	c.mu.Lock()
	fileInfos := c.et.ExtractMetadata(path)
	c.mu.Unlock()

	if len(fileInfos) == 0 || fileInfos[0].Err != nil {
		return time.Time{}, false
	}
	raw, err := fileInfos[0].GetString("DateTimeOriginal")
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(exifTimeLayout, raw, time.Local)
	if err != nil {
		logging.DebugLog("Unparsable DateTimeOriginal %q in %s: %v", raw, path, err)
		return time.Time{}, false
	}
	return t, true
}

func (c *captureClock) Close() {
	if c.et != nil {
		c.et.Close()
	}
}
