// Package trace writes agent turns to plain text files so a conversation with the
// model can be inspected after the fact.
package trace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	Directory         string
	RetentionDuration time.Duration
	MaxTraceFiles     int
}

type Tracer struct {
	config  Config
	counter int64
	mu      sync.Mutex
	now     func() time.Time
}

const (
	defaultRetentionDuration = 7 * 24 * time.Hour
	defaultMaxTraceFiles     = 10
)

// New creates the trace directory. Zero config fields take the defaults: a directory
// under os.TempDir, a week of retention and ten files.
func New(config ...Config) (*Tracer, error) {
	cfg := Config{
		Directory:         filepath.Join(os.TempDir(), "insights-traces"),
		RetentionDuration: defaultRetentionDuration,
		MaxTraceFiles:     defaultMaxTraceFiles,
	}
	if len(config) > 0 {
		if config[0].Directory != "" {
			cfg.Directory = config[0].Directory
		}
		if config[0].RetentionDuration > 0 {
			cfg.RetentionDuration = config[0].RetentionDuration
		}
		if config[0].MaxTraceFiles > 0 {
			cfg.MaxTraceFiles = config[0].MaxTraceFiles
		}
	}

	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}
	return &Tracer{config: cfg, now: time.Now}, nil
}

func (tr *Tracer) Directory() string { return tr.config.Directory }

// Record writes one turn to a new trace file and returns its path. Old files are
// pruned first so the directory never grows past MaxTraceFiles.
func (tr *Tracer) Record(turn Turn) (string, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.cleanup()

	start := tr.now()
	counter := atomic.AddInt64(&tr.counter, 1)
	path := filepath.Join(tr.config.Directory, fmt.Sprintf("trace-%s.%03d.txt", start.Format("20060102150405"), counter))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("opening trace file: %w", err)
	}
	defer file.Close()

	turn.write(file, start)
	if err := file.Sync(); err != nil {
		return "", err
	}
	return path, nil
}

func (tr *Tracer) cleanup() {
	entries, err := os.ReadDir(tr.config.Directory)
	if err != nil {
		slog.Error("Failed to read trace directory", "error", err)
		return
	}

	type traceFile struct {
		path    string
		modTime time.Time
	}
	var traceFiles []traceFile

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "trace-") || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		traceFiles = append(traceFiles, traceFile{path: filepath.Join(tr.config.Directory, entry.Name()), modTime: info.ModTime()})
	}

	sort.Slice(traceFiles, func(i, j int) bool {
		return traceFiles[i].modTime.Before(traceFiles[j].modTime)
	})

	cutoff := tr.now().Add(-tr.config.RetentionDuration)
	kept := traceFiles[:0]
	for _, f := range traceFiles {
		if f.modTime.Before(cutoff) {
			remove(f.path)
			continue
		}
		kept = append(kept, f)
	}

	// leave room for the file about to be written
	if excess := len(kept) - tr.config.MaxTraceFiles + 1; excess > 0 {
		for _, f := range kept[:excess] {
			remove(f.path)
		}
	}
}

func remove(path string) {
	if err := os.Remove(path); err != nil {
		slog.Error("Failed to remove trace file", "file", path, "error", err)
		return
	}
	slog.Debug("Removed trace file", "file", filepath.Base(path))
}
