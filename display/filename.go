package display

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NextFreeName appends ".N" before path's extension, where N is the
// smallest positive integer for which no file yet exists, leaving path
// unchanged if it doesn't already exist. Grounded on the collision
// handling in the source's Filename-message path.
func NextFreeName(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := base + "." + strconv.Itoa(n) + ext
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
