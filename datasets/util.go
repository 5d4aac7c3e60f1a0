package datasets

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func parseFloat32(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

// GlobForPath turns a user-supplied data path into a CSV glob pattern. A path
// that is an existing directory becomes dir/*.csv; anything else is returned
// unchanged and treated as a pattern.
func GlobForPath(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, "*.csv")
	}
	return path
}
