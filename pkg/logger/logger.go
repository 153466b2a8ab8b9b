// Package logger is the process-wide leveled logger used by every harness package.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	globalLogger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
	output       io.Writer = os.Stderr
	logFile      *os.File
	debug        bool
	mu           sync.Mutex
)

// Init redirects the logger to the specified log file (appending).
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
	}

	logFile = f
	setOutputLocked(f)
	return nil
}

// SetOutput redirects the logger to w. Any file opened by Init is closed.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	setOutputLocked(w)
}

func setOutputLocked(w io.Writer) {
	output = w
	globalLogger = log.New(w, "", log.Ltime|log.Lmicroseconds)
}

// SetDebug toggles DEBUG output.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = enabled
}

// Close closes the log file and falls back to stderr.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
		setOutputLocked(os.Stderr)
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	printf("[INFO] ", format, v...)
}

// Debug logs a debug message. Dropped unless SetDebug(true).
func Debug(format string, v ...interface{}) {
	mu.Lock()
	enabled := debug
	mu.Unlock()
	if enabled {
		printf("[DEBUG] ", format, v...)
	}
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	printf("[ERROR] ", format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	printf("[WARN] ", format, v...)
}

func printf(level, format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger.Printf(level+format, v...)
}

// GetWriter returns the current log destination, e.g. for a child process's output.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}
