package logger

import "os"

// SetupLogger installs the process-wide logger used by the CLI.
// quiet raises the level to warn; logs always go to stderr.
func SetupLogger(logLevel string, logJSON, logSource, quiet bool) Logger {
	level := LogLevel(logLevel)
	if quiet && level != ErrorLevel && level != DisabledLevel {
		level = WarnLevel
	}
	return Init(&Config{
		Level:      level,
		Output:     os.Stderr,
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	})
}
