package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/fishery/internal/engine"
)

// SnapshotHeader is the first line of a snapshot file, readable without
// decoding the whole world.
type SnapshotHeader struct {
	Version    int    `json:"version"`
	RunID      string `json:"run_id,omitempty"`
	Scenario   string `json:"scenario"`
	Seed       int64  `json:"seed"`
	Tick       int    `json:"tick"`
	Population int    `json:"population"`
	Boats      int    `json:"boats"`
	WrittenAt  string `json:"written_at"`
}

// SnapshotPath names the snapshot of a tick inside dir.
func SnapshotPath(dir string, tick int) string {
	return filepath.Join(dir, fmt.Sprintf("tick-%08d.snap.zst", tick))
}

// WriteSnapshot writes a zstd-compressed JSON header line followed by the
// JSON-encoded state.
func WriteSnapshot(path, runID string, st *engine.State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeSnapshotFile(tmp, runID, st); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeSnapshotFile(path, runID string, st *engine.State) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hdr := SnapshotHeader{
		Version:    st.Version,
		RunID:      runID,
		Scenario:   st.Config.Name,
		Seed:       st.Config.Seed,
		Tick:       st.Tick,
		Population: len(st.Fish),
		Boats:      len(st.Boats),
		WrittenAt:  time.Now().UTC().Format(time.RFC3339),
	}
	hb, err := json.Marshal(hdr)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := json.NewEncoder(bw).Encode(st); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadSnapshotHeader reads only the header line.
func ReadSnapshotHeader(path string) (SnapshotHeader, error) {
	var hdr SnapshotHeader
	f, err := os.Open(path)
	if err != nil {
		return hdr, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return hdr, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, fmt.Errorf("decode header: %w", err)
	}
	return hdr, nil
}

// ReadSnapshot reads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (SnapshotHeader, *engine.State, error) {
	var hdr SnapshotHeader
	f, err := os.Open(path)
	if err != nil {
		return hdr, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return hdr, nil, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, nil, fmt.Errorf("decode header: %w", err)
	}

	var st engine.State
	if err := json.NewDecoder(br).Decode(&st); err != nil {
		return hdr, nil, fmt.Errorf("decode state: %w", err)
	}
	return hdr, &st, nil
}

// LatestSnapshot returns the newest snapshot in dir by tick, or "" if
// there is none.
func LatestSnapshot(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "tick-*.snap.zst"))
	if err != nil {
		return "", err
	}
	latest := ""
	for _, m := range matches {
		if m > latest {
			latest = m
		}
	}
	return latest, nil
}
