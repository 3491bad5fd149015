package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultMaxFileSize int64 = 100 * 1024 * 1024

var numberedFileRe = regexp.MustCompile(`^app-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer that starts a new file every ISO week, or
// sooner when the current file reaches maxFileSize. Files older than the
// retention period are removed by a daily background sweep.
type RotatingLogger struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	file        *os.File
	week        string
	size        int64
	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// NewRotatingLogger creates a logger writing into logDir. A maxFileSize of
// zero disables size based rotation.
func NewRotatingLogger(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
	}
}

// Open creates the log directory, opens the current file and starts the
// retention sweep
func (rl *RotatingLogger) Open() error {
	if err := os.MkdirAll(rl.logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rl.mu.Lock()
	err := rl.rotate(weekKey(time.Now()), false)
	rl.mu.Unlock()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rl.sweepCancel = cancel
	rl.sweepDone = make(chan struct{})
	go rl.sweepLoop(ctx)
	return nil
}

// weekKey formats t as YYYY-Www using the ISO week
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write implements io.Writer
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(time.Now())
	full := rl.maxFileSize > 0 && rl.size+int64(len(p)) > rl.maxFileSize

	if rl.file == nil || week != rl.week || full {
		if err := rl.rotate(week, full && week == rl.week); err != nil {
			return 0, err
		}
	}

	n, err := rl.file.Write(p)
	rl.size += int64(n)
	return n, err
}

// rotate switches to the file for week. Caller holds mu.
func (rl *RotatingLogger) rotate(week string, bySize bool) error {
	if rl.file != nil {
		_ = rl.file.Close()
		rl.file = nil
	}

	name := rl.pickFile(week, bySize)
	path := filepath.Join(rl.logDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rl.file = file
	rl.week = week
	rl.size = 0
	if info, err := file.Stat(); err == nil {
		rl.size = info.Size()
	}
	return nil
}

// pickFile returns app-<week>.log while it has room, then the highest
// numbered app-<week>_NN.log with room, then the next number
func (rl *RotatingLogger) pickFile(week string, bySize bool) string {
	base := fmt.Sprintf("app-%s.log", week)
	if !bySize && rl.hasRoom(filepath.Join(rl.logDir, base)) {
		return base
	}

	matches, _ := filepath.Glob(filepath.Join(rl.logDir, fmt.Sprintf("app-%s_??.log", week)))
	highest := 0
	var highestPath string
	for _, m := range matches {
		sub := numberedFileRe.FindStringSubmatch(filepath.Base(m))
		if len(sub) < 2 {
			continue
		}
		if n, _ := strconv.Atoi(sub[1]); n > highest {
			highest, highestPath = n, m
		}
	}

	if highestPath != "" && !bySize && rl.hasRoom(highestPath) {
		return filepath.Base(highestPath)
	}
	return fmt.Sprintf("app-%s_%02d.log", week, highest+1)
}

func (rl *RotatingLogger) hasRoom(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return rl.maxFileSize == 0 || info.Size() < rl.maxFileSize
}

func (rl *RotatingLogger) sweepLoop(ctx context.Context) {
	defer close(rl.sweepDone)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := rl.cleanupOldLogs(); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			}
		}
	}
}

// cleanupOldLogs removes app-*.log files not modified within the retention
// period and returns how many were deleted
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(rl.logDir, name)) == nil {
			deleted++
		}
	}
	return deleted, nil
}

// Close stops the sweep and closes the current file
func (rl *RotatingLogger) Close() error {
	if rl.sweepCancel != nil {
		rl.sweepCancel()
		<-rl.sweepDone
		rl.sweepCancel = nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.file == nil {
		return nil
	}
	err := rl.file.Close()
	rl.file = nil
	return err
}
