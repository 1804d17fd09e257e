// Package cache implements the persistent raw-response caches. Each logical
// cache category is one JSONL file mapping a composite string key to the raw
// remote payload for that key. A missing file loads as an empty store; saving
// rewrites the whole file atomically.
package cache

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// MaxLineCapacity is the maximum buffer size for reading cache lines.
// Citation payloads for long-running journals can be large.
const MaxLineCapacity = 4 * 1024 * 1024

// Store is an in-memory cache mapping with a backing file. It assumes a
// single writer; there is no cross-process locking.
type Store struct {
	path    string
	entries map[string]json.RawMessage
}

// entry is the on-disk line format.
type entry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Load reads a cache file into memory. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{
		path:    path,
		entries: make(map[string]json.RawMessage),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, MaxLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parsing cache %s line %d: %w", path, lineNum, err)
		}
		s.entries[e.Key] = e.Value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cache %s: %w", path, err)
	}

	return s, nil
}

// Save rewrites the backing file with the current entries. The write is
// atomic (temp file + rename) so a crash mid-save leaves either the previous
// or the new file, never a truncated one.
func (s *Store) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*.jsonl")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	// Deterministic order keeps the file diff-friendly.
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := bufio.NewWriter(tmpFile)
	for _, k := range keys {
		data, err := json.Marshal(entry{Key: k, Value: s.entries[k]})
		if err != nil {
			tmpFile.Close()
			return fmt.Errorf("encoding cache entry %q: %w", k, err)
		}
		if _, err := w.Write(data); err != nil {
			tmpFile.Close()
			return fmt.Errorf("writing cache entry %q: %w", k, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmpFile.Close()
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("flushing cache file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing cache file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}

	success = true
	return nil
}

// Get returns the raw payload stored under key.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// Put stores a raw payload under key, replacing any previous value.
func (s *Store) Put(key string, value json.RawMessage) {
	s.entries[key] = value
}

// PutValue marshals v and stores it under key.
func (s *Store) PutValue(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache value for %q: %w", key, err)
	}
	s.entries[key] = data
	return nil
}

// GetStrings decodes the payload under key as a list of strings.
func (s *Store) GetStrings(key string) ([]string, bool, error) {
	raw, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, true, fmt.Errorf("decoding cache value for %q: %w", key, err)
	}
	return out, true, nil
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Size returns the approximate in-memory payload size in bytes.
func (s *Store) Size() int64 {
	var total int64
	for k, v := range s.entries {
		total += int64(len(k) + len(v))
	}
	return total
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}
