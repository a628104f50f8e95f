// Package logging sets up the diagnostic log. Stdout carries the message
// channel, so logs go to a file or stderr only.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// EnvPath overrides the default log directory.
const EnvPath = "SITEBEEP_LOG_PATH"

// FileName is the log file inside the log directory.
const FileName = "host.log"

// ResolveDir picks the log directory: flag, then environment, then the OS default.
func ResolveDir(flagPath string) (string, error) {
	for _, candidate := range []string{flagPath, os.Getenv(EnvPath)} {
		if candidate == "" {
			continue
		}
		if filepath.IsAbs(candidate) {
			return candidate, nil
		}
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(wd, candidate), nil
	}
	return getDefaultDir()
}

// Open creates dir if needed and returns a logger appending to dir/host.log.
// The returned closer releases the file.
func Open(dir string, level zerolog.Level) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, FileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return New(file, level), file, nil
}

// New returns a plain-text logger writing to out.
func New(out io.Writer, level zerolog.Level) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	return zerolog.New(consoleWriter).Level(level).With().Timestamp().Int("pid", os.Getpid()).Logger()
}

// Stderr returns a logger for interactive commands.
func Stderr(level zerolog.Level) zerolog.Logger {
	return New(os.Stderr, level)
}
