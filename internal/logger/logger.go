package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu          sync.RWMutex
	infoLogger  = log.New(os.Stderr, "[INFO] ", log.Ldate|log.Ltime)
	errorLogger = log.New(os.Stderr, "[ERROR] ", log.Ldate|log.Ltime)
	verbose     bool
)

// Init sends log output to w and, when logDir is non-empty, to a dated file
// inside logDir as well. The returned closer releases the file.
func Init(w io.Writer, logDir string, debug bool) (io.Closer, error) {
	var closer io.Closer = nopCloser{}
	out := w

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		logFile := filepath.Join(logDir, fmt.Sprintf("clipflow_%s.log", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(w, f)
		closer = f
	}

	mu.Lock()
	infoLogger = log.New(out, "[INFO] ", log.Ldate|log.Ltime)
	errorLogger = log.New(out, "[ERROR] ", log.Ldate|log.Ltime|log.Lshortfile)
	verbose = debug
	mu.Unlock()

	return closer, nil
}

// Writer is where log lines currently go; used to point gin at the same sink.
func Writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return infoLogger.Writer()
}

func Info(format string, v ...any) {
	mu.RLock()
	l := infoLogger
	mu.RUnlock()
	l.Output(2, fmt.Sprintf(format, v...))
}

func Error(format string, v ...any) {
	mu.RLock()
	l := errorLogger
	mu.RUnlock()
	l.Output(2, fmt.Sprintf(format, v...))
}

// Debug logs only when Init was called with debug enabled.
func Debug(format string, v ...any) {
	mu.RLock()
	l, on := infoLogger, verbose
	mu.RUnlock()
	if on {
		l.Output(2, "[DEBUG] "+fmt.Sprintf(format, v...))
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
