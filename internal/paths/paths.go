// Package paths resolves the filesystem locations of openclawd's
// persistent state: the accumulator queue file and the bandit
// posterior database live under a single data directory, and
// operator-supplied overrides may use a leading ~.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// QueueFileName is the accumulator's JSONL file name under the data
// directory.
const QueueFileName = "digest-queue.jsonl"

// BanditDBName is the bandit posterior database file name under the
// data directory.
const BanditDBName = "bandit.db"

// ExpandHome replaces a leading ~ with the user's home directory. If
// the home directory cannot be determined, the path is returned
// unchanged.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}

// QueueFile returns the accumulator queue file path under dataDir.
func QueueFile(dataDir string) string {
	return filepath.Join(ExpandHome(dataDir), QueueFileName)
}

// BanditDB returns the bandit posterior database path under dataDir.
func BanditDB(dataDir string) string {
	return filepath.Join(ExpandHome(dataDir), BanditDBName)
}
