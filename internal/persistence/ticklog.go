package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/fishery/internal/engine"
)

// TickLog writes one compressed JSON line per tick, starting a new file
// every rotateEvery ticks.
type TickLog struct {
	dir         string
	prefix      string
	rotateEvery int

	mu    sync.Mutex
	chunk int
	f     *os.File
	enc   *zstd.Encoder
	w     *bufio.Writer
}

// NewTickLog creates a tick log under dir. Files are named
// <prefix>-<first tick>.jsonl.zst.
func NewTickLog(dir, prefix string, rotateEvery int) *TickLog {
	if rotateEvery < 1 {
		rotateEvery = 365
	}
	return &TickLog{dir: dir, prefix: prefix, rotateEvery: rotateEvery, chunk: -1}
}

// Write appends one tick.
func (l *TickLog) Write(st engine.Stats) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	chunk := (st.Tick - 1) / l.rotateEvery
	if st.Tick <= 0 {
		chunk = 0
	}
	if chunk != l.chunk {
		if err := l.rotateLocked(chunk); err != nil {
			return err
		}
	}

	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	return l.w.WriteByte('\n')
}

// Close flushes and closes the current file.
func (l *TickLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *TickLog) rotateLocked(chunk int) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	path := l.pathFor(chunk)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 128*1024)
	l.chunk = chunk
	return nil
}

func (l *TickLog) closeLocked() error {
	var err error
	if l.w != nil {
		err = l.w.Flush()
	}
	if l.enc != nil {
		if cerr := l.enc.Close(); err == nil {
			err = cerr
		}
		l.enc = nil
	}
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	l.w = nil
	l.chunk = -1
	return err
}

func (l *TickLog) pathFor(chunk int) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s-%08d.jsonl.zst", l.prefix, chunk*l.rotateEvery+1))
}

// ReadTickLog decodes every line of one tick log file.
func ReadTickLog(path string) ([]engine.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []engine.Stats
	jd := json.NewDecoder(dec)
	for jd.More() {
		var st engine.Stats
		if err := jd.Decode(&st); err != nil {
			return out, fmt.Errorf("decode %s: %w", path, err)
		}
		out = append(out, st)
	}
	return out, nil
}
