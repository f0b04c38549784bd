package chain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kebairia/pgchain/internal/logger"
)

// QuarantinePrefix marks directories whose backup record is corrupt.
// Quarantined directories are excluded from chain grouping and from
// pruning; they wait for manual inspection.
const QuarantinePrefix = "quarantine-"

// IsQuarantined reports whether a directory name already carries the
// quarantine marker, which makes re-running quarantine a no-op.
func IsQuarantined(name string) bool {
	return strings.HasPrefix(name, QuarantinePrefix)
}

// QuarantinePath renames a corrupt backup directory in place, adding
// the quarantine prefix. If the target name is taken, a timestamp
// suffix disambiguates. The new path is returned.
func QuarantinePath(path string) (string, error) {
	dir, name := filepath.Split(filepath.Clean(path))
	if IsQuarantined(name) {
		return path, nil
	}

	target := filepath.Join(dir, QuarantinePrefix+name)
	if _, err := os.Stat(target); err == nil {
		target = target + "-" + time.Now().UTC().Format("20060102150405")
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("quarantine %q: %w", path, err)
	}
	return target, nil
}

// Quarantine isolates every corrupt path found by Scan. It runs before
// retention on each cycle so a half-written or damaged backup can
// never be deleted by the policy engine. Failures are isolated per
// directory; the first error is returned after all paths have been
// attempted.
func Quarantine(corrupt []string, log logger.Logger) error {
	var firstErr error
	for _, path := range corrupt {
		moved, err := QuarantinePath(path)
		if err != nil {
			log.Error("quarantine failed", "path", path, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Warn("backup quarantined",
			"path", path,
			"moved_to", moved,
			"reason", "unreadable or incomplete metadata",
		)
	}
	return firstErr
}
