package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DayDir returns (creating if needed) the batch directory for the given day.
func DayDir(baseDir string, day time.Time) (string, error) {
	dir := filepath.Join(baseDir, day.Format("20060102"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create batch directory")
	}
	return dir, nil
}

// NextNumber determines the next batch sequence number for a day-scoped
// directory by parsing the numeric suffix of existing batch filenames
// ({prefix}-{NNN}). Numbers reset daily starting at 001 and every file
// written in one run shares the same number. Malformed filenames are
// ignored.
func NextNumber(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(err, "failed to read batch directory")
	}

	max := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		base := strings.TrimSuffix(name, filepath.Ext(name))
		_, numStr, found := strings.Cut(base, "-")
		if !found {
			continue
		}
		num, err := strconv.Atoi(numStr)
		if err != nil || num <= 0 {
			continue
		}
		if num > max {
			max = num
		}
	}

	return fmt.Sprintf("%03d", max+1), nil
}
