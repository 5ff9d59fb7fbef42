package fingerprint

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// cachePayload is the gob-serialized shape persisted to CachePath. SourceHash
// is the sha256 of the CSV file this payload was derived from; Load uses it
// to invalidate a stale cache automatically.
type cachePayload struct {
	SourceHash string
	Records    []Record
	IDs        map[string]struct{}
}

// Load loads a Store from csvPath, using cachePath as an optional
// gob-encoded binary cache. If cachePath exists and its recorded source
// hash matches csvPath's current content hash, the cache is used directly
// and the CSV is not re-parsed. Otherwise the CSV is parsed and, if
// cachePath is non-empty, the result is written back to cachePath.
//
// This mirrors the contract note in the component design: persistence is an
// optimization, not part of FS's contract, so any failure to read or write
// the cache falls back to re-parsing the CSV rather than failing the load.
func Load(csvPath, cachePath string) (*Store, error) {
	hash, hashErr := fileHash(csvPath)
	if hashErr == nil && cachePath != "" {
		if store, ok := loadCache(cachePath, hash); ok {
			return store, nil
		}
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: open %s: %w", csvPath, err)
	}
	defer f.Close()

	store, err := LoadCSV(f, csvPath)
	if err != nil {
		return nil, err
	}

	if cachePath != "" && hashErr == nil {
		_ = SaveCache(store, cachePath, hash)
	}

	return store, nil
}

// SaveCache writes store to cachePath in gob form, tagged with sourceHash.
// A failure here is not fatal to the caller; it just means the next Load
// re-parses the CSV.
func SaveCache(store *Store, cachePath, sourceHash string) error {
	payload := cachePayload{
		SourceHash: sourceHash,
		Records:    store.records,
		IDs:        store.ids,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("fingerprint: encode cache: %w", err)
	}

	tmp := cachePath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("fingerprint: write cache: %w", err)
	}
	return os.Rename(tmp, cachePath)
}

// loadCache attempts to load a Store from cachePath, verifying it matches
// wantHash. Returns ok=false on any failure (missing file, decode error,
// hash mismatch) so the caller falls back to re-parsing.
func loadCache(cachePath, wantHash string) (*Store, bool) {
	f, err := os.Open(cachePath)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var payload cachePayload
	if err := gob.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false
	}
	if payload.SourceHash != wantHash {
		return nil, false
	}

	return &Store{records: payload.Records, ids: payload.IDs}, true
}

func fileHash(path string) (string, error) {
	return FileHash(path)
}

// FileHash returns the hex-encoded sha256 of the file at path, the same
// content hash Load uses to invalidate the binary cache. Exposed for
// callers (e.g. the index build command) that need to tag a build
// artifact with the source it was derived from.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Watcher watches a CSV source file and asynchronously rebuilds the Store
// whenever the file changes, swapping it into the current atomic pointer. This is a convenience for long-running serve processes; no
// invariant depends on it running.
type Watcher struct {
	csvPath   string
	cachePath string
	logger    *slog.Logger
	current   *atomic.Pointer[Store]
}

// NewWatcher creates a Watcher that keeps current up to date as csvPath
// changes on disk.
func NewWatcher(csvPath, cachePath string, current *atomic.Pointer[Store], logger *slog.Logger) *Watcher {
	return &Watcher{
		csvPath:   csvPath,
		cachePath: cachePath,
		logger:    logger,
		current:   current,
	}
}

// Run watches the CSV file for writes until ctx is cancelled. Errors
// starting the watcher are returned; errors during individual reload
// attempts are logged and do not stop the watch loop.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fingerprint: fsnotify: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.csvPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("fingerprint: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.csvPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "fingerprint watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	store, err := Load(w.csvPath, w.cachePath)
	if err != nil {
		w.logger.WarnContext(ctx, "fingerprint reload failed", slog.String("error", err.Error()))
		return
	}
	w.current.Store(store)
	w.logger.InfoContext(ctx, "fingerprint database reloaded", slog.Int("records", store.Len()))
}
