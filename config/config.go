// Package config defines the external-collaborator configuration seam
// this module reads its per-profile settings through, plus a concrete
// FileStore that reads and writes the original tool's flat key=value
// config file format.
//
// Grounded on config.Config usage in
// _examples/original_source/common/test/test_snapshots.py (profile-scoped
// keys like "snapshots.include", "snapshots.exclude.1.value",
// "snapshots.ssh.host"). No key=value config library appears anywhere in
// the example pack — mitchellh/mapstructure and the viper closure
// reachable from other_examples/tinyzimmer-btrsync both target structured
// (YAML/JSON/TOML) formats, not this historical flat grouping-by-profile
// format — so FileStore is deliberately a bufio.Scanner-based stdlib
// implementation; see DESIGN.md.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

// Store is the typed view over one profile's configuration that every
// other package in this module reads through, rather than touching a file
// format directly.
type Store interface {
	ProfileID() string
	Version() string

	SnapshotsPath() string
	SSHMode() bool
	SSHHost() string
	SSHUser() string

	Include() []IncludeEntry
	Exclude() []string

	ContinueOnErrors() bool
	TakeSnapshotRegardlessOfChanges() bool
	UseGlobalFlock() bool

	LockFilePath() string
	MessageFilePath() string
	LogFilePath() string
}

// IncludeEntry mirrors syncer.IncludeEntry without importing the syncer
// package, so config has no dependency on the transport layer.
type IncludeEntry struct {
	Path string
	Kind int
}

// FileStore is a Store backed by a flat "key = value" text file, one
// profile worth of keys per file (the original tool keys a single file by
// profile number internally; this module stores one file per profile).
type FileStore struct {
	path   string
	values map[string]string
}

// NewFileStore returns an empty FileStore that will read from / write to
// path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, values: map[string]string{}}
}

// Load reads path into the store, replacing any previously loaded values.
// Blank lines and lines starting with "#" are ignored; malformed lines
// (no "=") are skipped rather than failing the whole load.
func (s *FileStore) Load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrapf(err, "opening config %s", s.path)
	}
	defer f.Close()

	return s.read(f)
}

func (s *FileStore) read(r io.Reader) error {
	s.values = map[string]string{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		s.values[key] = val
	}

	return scanner.Err()
}

// Save writes the store's current values back to path as "key = value"
// lines, sorted by key for reproducible output, replacing the file
// atomically.
func (s *FileStore) Save() error {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %s\n", k, s.values[k])
	}

	return atomic.WriteFile(s.path, strings.NewReader(b.String()))
}

// Path returns the backing file path, so callers (the take-snapshot
// pipeline, in particular) can copy the active configuration verbatim into
// a snapshot without re-serializing it.
func (s *FileStore) Path() string { return s.path }

// Set assigns key to value in memory; callers must call Save to persist.
func (s *FileStore) Set(key, value string) {
	if s.values == nil {
		s.values = map[string]string{}
	}

	s.values[key] = value
}

func (s *FileStore) get(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}

	return def
}

func (s *FileStore) getBool(key string, def bool) bool {
	v, ok := s.values[key]
	if !ok {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}

func (s *FileStore) ProfileID() string { return s.get("profile.id", "1") }
func (s *FileStore) Version() string   { return s.get("version", "1") }

func (s *FileStore) SnapshotsPath() string { return s.get("snapshots.path", "") }
func (s *FileStore) SSHMode() bool         { return s.get("snapshots.mode", "local") == "ssh" }
func (s *FileStore) SSHHost() string       { return s.get("snapshots.ssh.host", "") }
func (s *FileStore) SSHUser() string       { return s.get("snapshots.ssh.user", "") }

// Include returns the configured include list, reading the numbered
// "snapshots.include.N.value"/"snapshots.include.N.type" key pairs the
// original tool uses, in ascending N order.
func (s *FileStore) Include() []IncludeEntry {
	return s.numberedEntries("snapshots.include")
}

// Exclude returns the configured exclude patterns, reading the numbered
// "snapshots.exclude.N.value" keys in ascending N order.
func (s *FileStore) Exclude() []string {
	var out []string

	for i := 1; ; i++ {
		v, ok := s.values[fmt.Sprintf("snapshots.exclude.%d.value", i)]
		if !ok {
			break
		}

		out = append(out, v)
	}

	return out
}

func (s *FileStore) numberedEntries(prefix string) []IncludeEntry {
	var out []IncludeEntry

	for i := 1; ; i++ {
		v, ok := s.values[fmt.Sprintf("%s.%d.value", prefix, i)]
		if !ok {
			break
		}

		kind, _ := strconv.Atoi(s.get(fmt.Sprintf("%s.%d.type", prefix, i), "0"))
		out = append(out, IncludeEntry{Path: v, Kind: kind})
	}

	return out
}

func (s *FileStore) ContinueOnErrors() bool {
	return s.getBool("snapshots.continue_on_errors", false)
}

func (s *FileStore) TakeSnapshotRegardlessOfChanges() bool {
	return s.getBool("snapshots.take_snapshot_regardless_of_changes", false)
}

func (s *FileStore) UseGlobalFlock() bool {
	return s.getBool("global.use_flock", false)
}

func (s *FileStore) LockFilePath() string {
	return s.get("global.lock_file_path", "/tmp/backintime.lock")
}

func (s *FileStore) MessageFilePath() string {
	return s.get("snapshots.message_file_path", "")
}

func (s *FileStore) LogFilePath() string {
	return s.get("snapshots.log_file_path", "")
}
