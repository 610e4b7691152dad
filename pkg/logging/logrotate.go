package logging

import (
	"fmt"
	"path/filepath"
)

// LogrotateConfig returns a logrotate(8) stanza for a log file written with
// Config.File. The file stays open while vidgen runs, so rotation copies and
// truncates it instead of moving it.
func LogrotateConfig(logFile string, keepDays int) string {
	if keepDays <= 0 {
		keepDays = 14
	}
	path, err := filepath.Abs(logFile)
	if err != nil {
		path = logFile
	}
	return fmt.Sprintf(`# Logrotate configuration for vidgen
# Install: sudo cp this file to /etc/logrotate.d/vidgen

%s {
    daily
    rotate %d
    compress
    delaycompress
    missingok
    notifempty
    copytruncate
}
`, path, keepDays)
}
