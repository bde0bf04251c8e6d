package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogPath returns the default log file location under the user's
// home directory. Falls back to the working directory when the home
// directory cannot be resolved.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wayfarer", "logs", "wayfarer.log")
	}
	return filepath.Join(home, ".wayfarer", "logs", "wayfarer.log")
}
