package scanner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// maxLabelCalories bounds the calorie count accepted from a file name
const maxLabelCalories = 100000

// calorieLabel matches a leading calorie count followed by a separator
var calorieLabel = regexp.MustCompile(`^(\d{1,6})[_\- ]`)

// IsImageFile checks if a file extension belongs to a decodable photo
func IsImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff":
		return true
	default:
		return false
	}
}

// GetFileFormat returns the lowercase file extension without the dot
func GetFileFormat(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// ParseCalorieLabel reads the calorie count a file name starts with, as in
// 450_pasta.jpg or 450-pasta.png
func ParseCalorieLabel(path string) (int, bool) {
	m := calorieLabel.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	calories, err := strconv.Atoi(m[1])
	if err != nil || calories > maxLabelCalories {
		return 0, false
	}
	return calories, true
}
