// Package replay implements the dump/replay collaborator (spec.md §6, §5):
// a JSONL writer for offline history capture, and a throttled reader that
// drives the engine deterministically for regression work.
//
// The writer only ever appends lines, so it has no use for a whole-file
// atomic rewrite. The dump file is not rotated: it grows by appending.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"airraidengine/internal/infra/logger"
)

// Record is one line of the dump file format (spec.md §6):
//
//	{"ts": 1700000000, "channel": "air_alert_ua", "id": 12345, "text": "..."}
type Record struct {
	Timestamp int64  `json:"ts"`
	Channel   string `json:"channel"`
	ID        uint64 `json:"id"`
	Text      string `json:"text"`
}

// DumpWriter appends Records to a JSONL file, one object per line, in the
// order they are written. Callers are responsible for calling records in
// non-decreasing ts order (spec.md §6 "Order must be non-decreasing by ts").
type DumpWriter struct {
	f *os.File
	w *bufio.Writer
}

// OpenDumpWriter opens path for appending, creating it (and its directory) if
// necessary.
func OpenDumpWriter(path string) (*DumpWriter, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("replay: ensure dir %q: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("replay: open dump file: %w", err)
	}
	return &DumpWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// Write appends one Record as a JSON line.
func (d *DumpWriter) Write(r Record) error {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("replay: marshal record: %w", err)
	}
	if _, err := d.w.Write(line); err != nil {
		return fmt.Errorf("replay: write record: %w", err)
	}
	if err := d.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("replay: write newline: %w", err)
	}
	return nil
}

// Flush flushes buffered output to the underlying file.
func (d *DumpWriter) Flush() error {
	return d.w.Flush()
}

// Close flushes and closes the dump file.
func (d *DumpWriter) Close() error {
	if err := d.w.Flush(); err != nil {
		_ = d.f.Close()
		return err
	}
	return d.f.Close()
}

// ReadDump reads every well-formed Record from path in file order (1-based
// line numbers for replay slicing, per spec.md §6). Malformed lines are
// logged and skipped rather than aborting the read (spec.md §7, "Parse error
// (replay): malformed JSONL line: log and continue to next line").
func ReadDump(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open dump file: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			logger.Warn(fmt.Sprintf("replay: malformed dump line %d: %v", lineNo, err))
			continue
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("replay: scan dump file: %w", err)
	}
	return records, nil
}
