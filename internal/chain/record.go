package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const MetadataFilename = "metadata.json"

// IDTimeFormat is the zero-padded UTC layout used in backup directory
// names, so lexical order equals chronological order.
const IDTimeFormat = "2006-01-02T15-04-05"

const (
	KindFull        = "full"
	KindIncremental = "incremental"
)

var (
	// ErrCorruptMetadata marks a directory that was meant to be a backup
	// but whose record cannot be read or is missing mandatory fields.
	ErrCorruptMetadata = errors.New("corrupt backup metadata")

	// ErrBrokenChain marks a restore chain with a missing or unreadable
	// ancestor.
	ErrBrokenChain = errors.New("broken backup chain")
)

// Record describes one backup directory. Parent and ChainStart hold
// relative directory names, never absolute paths, so a backup root can
// be relocated intact.
type Record struct {
	ID         string    `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"`
	Parent     string    `json:"parent,omitempty"`
	ChainStart string    `json:"chain_start"`
}

// NewFull builds the record for a fresh full backup taken at ts.
// A full backup starts its own chain, so chain_start is its own id.
func NewFull(ts time.Time) *Record {
	id := ts.UTC().Format(IDTimeFormat) + "_" + KindFull
	return &Record{
		ID:         id,
		Timestamp:  ts.UTC(),
		Kind:       KindFull,
		ChainStart: id,
	}
}

// NewIncremental builds the record for an incremental backup taken at
// ts on top of parent. It inherits the parent's chain_start.
func NewIncremental(ts time.Time, parent *Record) *Record {
	return &Record{
		ID:         ts.UTC().Format(IDTimeFormat) + "_" + KindIncremental,
		Timestamp:  ts.UTC(),
		Kind:       KindIncremental,
		Parent:     parent.ID,
		ChainStart: parent.ChainStart,
	}
}

// IsFull reports whether the record starts its own chain.
func (r *Record) IsFull() bool { return r.Kind == KindFull }

// WriteRecord persists the record under dir. The record is written to a
// temporary file first and renamed into place, so a reader never
// observes a half-written record and a crash mid-write cannot corrupt
// an existing one.
func WriteRecord(dir string, rec *Record) error {
	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("create temp metadata file in %q: %w", dir, err)
	}
	tmpPath := tmp.Name()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rec); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode metadata JSON: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp metadata file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, MetadataFilename)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename metadata file into place: %w", err)
	}
	return nil
}

// ReadRecord loads the record stored under dir. It returns (nil, nil)
// when no record file exists, meaning the directory is not a backup at
// all. An existing but unparsable or incomplete record returns an error
// wrapping ErrCorruptMetadata; only that case is quarantined by the
// caller.
func ReadRecord(dir string) (*Record, error) {
	filePath := filepath.Join(dir, MetadataFilename)

	jsonFile, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrCorruptMetadata, filePath, err)
	}
	defer jsonFile.Close()

	var rec Record
	decoder := json.NewDecoder(jsonFile)
	if err := decoder.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrCorruptMetadata, filePath, err)
	}

	// chain_start and timestamp are the mandatory fields; without them
	// neither grouping nor age computation is possible.
	if rec.ChainStart == "" {
		return nil, fmt.Errorf("%w: %q has no chain_start", ErrCorruptMetadata, filePath)
	}
	if rec.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: %q has no timestamp", ErrCorruptMetadata, filePath)
	}

	rec.ID = filepath.Base(dir)
	if rec.Kind == "" {
		// Older records may omit the kind; a record without a parent can
		// only be a full backup.
		if rec.Parent == "" {
			rec.Kind = KindFull
		} else {
			rec.Kind = KindIncremental
		}
	}
	return &rec, nil
}

// ParseID splits a backup directory name into its timestamp and kind.
// It reports ok=false for names that do not follow the
// "<timestamp>_<kind>" convention.
func ParseID(id string) (ts time.Time, kind string, ok bool) {
	i := strings.LastIndex(id, "_")
	if i < 0 {
		return time.Time{}, "", false
	}
	kind = id[i+1:]
	if kind != KindFull && kind != KindIncremental {
		return time.Time{}, "", false
	}
	ts, err := time.Parse(IDTimeFormat, id[:i])
	if err != nil {
		return time.Time{}, "", false
	}
	return ts.UTC(), kind, true
}
