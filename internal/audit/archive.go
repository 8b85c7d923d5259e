package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Archive writes JSON lines into zstd-compressed files, one file per hour.
type Archive struct {
	baseDir string
	prefix  string
	clock   func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewArchive creates an archive rooted at baseDir. Files are created lazily.
func NewArchive(baseDir, prefix string) *Archive {
	return &Archive{
		baseDir: baseDir,
		prefix:  prefix,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Close flushes and closes the current file.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

// Write appends v as one JSON line.
func (a *Archive) Write(v any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	hour := a.clock().Format("2006-01-02-15")
	if hour != a.curHour {
		if err := a.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if _, err := a.w.Write(b); err != nil {
		return err
	}
	if err := a.w.WriteByte('\n'); err != nil {
		return err
	}
	return a.w.Flush()
}

func (a *Archive) rotateLocked(hour string) error {
	if err := a.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(a.baseDir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(a.PathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	a.f = f
	a.enc = enc
	a.w = bufio.NewWriterSize(enc, 64*1024)
	a.curHour = hour
	return nil
}

func (a *Archive) closeLocked() error {
	var err error
	if a.w != nil {
		_ = a.w.Flush()
	}
	if a.enc != nil {
		err = a.enc.Close()
		a.enc = nil
	}
	if a.f != nil {
		_ = a.f.Close()
		a.f = nil
	}
	a.w = nil
	a.curHour = ""
	return err
}

// PathForHour returns the file used for an hour key (2006-01-02-15).
func (a *Archive) PathForHour(hour string) string {
	return filepath.Join(a.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", a.prefix, hour))
}
