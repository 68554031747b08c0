// Package bucket owns a slide's working directory and maps moments to
// on-disk bucket files.
//
// A bucket file is named by `moment mod window` and holds the records
// appended while it was the open bucket. Because naming is by modulo, a slot
// is truncated and reused once window seconds of moments have cycled
// through; that overwrite is the primary retention mechanism. The store also
// keeps an in-memory map of each slot's current owning moment, so queries
// can filter buckets by true age instead of trusting slot names, and prunes
// buckets older than the trigger when it rotates.
package bucket

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/xtxerr/slide/internal/errors"
	"github.com/xtxerr/slide/internal/logging"
)

// Store manages the bucket files of one slide.
//
// Writes must be serialized; the store enforces this with an internal lock
// around the rotate-then-append sequence. Reads take a snapshot of the slot
// map and then touch files without blocking writers.
type Store struct {
	mu sync.RWMutex

	dir     string
	window  int64 // seconds
	trigger int64 // seconds, >= window

	open       *os.File
	openMoment int64
	hasOpen    bool

	oldest    int64
	hasOldest bool

	// slot -> owning moment for every resident bucket file
	slots map[int64]int64

	closed bool

	stats Stats
	log   *slog.Logger
}

// Stats holds bucket store statistics.
type Stats struct {
	RecordsWritten int64
	BytesWritten   int64
	Rotations      int64
	FilesPruned    int64
}

// Info describes one resident bucket file.
type Info struct {
	Slot    int64
	Moment  int64
	Path    string
	Size    int64
	ModTime time.Time
}

// NewStore creates a bucket store rooted at dir. The directory is created if
// it does not exist. Window and trigger are in whole seconds.
func NewStore(dir string, window, trigger int64) (*Store, error) {
	if window < 1 {
		return nil, errors.ErrInvalidWindow
	}
	if trigger < window {
		return nil, errors.ErrInvalidTrigger
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create bucket dir")
	}

	return &Store{
		dir:     dir,
		window:  window,
		trigger: trigger,
		slots:   make(map[int64]int64),
		log:     logging.Component("bucket"),
	}, nil
}

// Write appends one framed record for the given moment.
//
// If moment matches the open bucket, the record is appended to it.
// Otherwise the open bucket is closed and the file at slot
// `moment mod window` is truncate-created, discarding whatever an earlier
// cycle left there.
func (s *Store) Write(moment int64, rec []byte) error {
	if moment < 0 {
		return errors.ErrInvalidMoment
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSlideClosed
	}

	if !s.hasOpen || s.openMoment != moment {
		if err := s.rotate(moment); err != nil {
			return err
		}
	}

	if _, err := s.open.Write(rec); err != nil {
		return errors.Wrapf(err, "append to bucket %d", s.openMoment%s.window)
	}

	if !s.hasOldest {
		s.oldest = moment
		s.hasOldest = true
	}

	s.stats.RecordsWritten++
	s.stats.BytesWritten += int64(len(rec))
	return nil
}

// rotate closes the open bucket and truncate-creates the slot for moment.
// Called with the write lock held.
func (s *Store) rotate(moment int64) error {
	if s.open != nil {
		s.open.Close()
		s.open = nil
		s.hasOpen = false
	}

	slot := moment % s.window
	path := filepath.Join(s.dir, strconv.FormatInt(slot, 10))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "open bucket %d", slot)
	}

	s.open = f
	s.openMoment = moment
	s.hasOpen = true
	s.slots[slot] = moment
	s.stats.Rotations++

	s.log.Debug("rotated bucket", "slot", slot, "moment", moment)

	s.prune(moment)
	return nil
}

// prune removes resident buckets whose owning moment fell behind the
// trigger. The slot just opened for moment is never eligible. Called with
// the write lock held.
func (s *Store) prune(moment int64) {
	cutoff := moment - s.trigger

	for slot, owned := range s.slots {
		if owned > cutoff || owned == moment {
			continue
		}
		path := filepath.Join(s.dir, strconv.FormatInt(slot, 10))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("prune bucket", "slot", slot, "error", err)
			continue
		}
		delete(s.slots, slot)
		s.stats.FilesPruned++
	}
}

// List returns every resident bucket, ordered by owning moment ascending.
// Files whose names do not parse as a non-negative integer (quantile scratch
// and run files use a leading '-') are excluded.
func (s *Store) List() ([]Info, error) {
	s.mu.RLock()
	snapshot := make(map[int64]int64, len(s.slots))
	for slot, moment := range s.slots {
		snapshot[slot] = moment
	}
	s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "list buckets")
	}

	var buckets []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		slot, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil || slot < 0 {
			continue
		}

		moment, ok := snapshot[slot]
		if !ok {
			// A file this store did not write (or already pruned from the
			// map); stale by definition.
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			continue
		}

		buckets = append(buckets, Info{
			Slot:    slot,
			Moment:  moment,
			Path:    filepath.Join(s.dir, entry.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Moment < buckets[j].Moment
	})

	return buckets, nil
}

// Select returns the buckets whose owning moment lies strictly after cutoff.
func (s *Store) Select(cutoff int64) ([]Info, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	selected := all[:0]
	for _, b := range all {
		if b.Moment > cutoff {
			selected = append(selected, b)
		}
	}
	return selected, nil
}

// SelectByModTime returns the buckets whose file modification time is within
// window seconds of now. The approximate quantile engine selects buckets by
// recency of writes rather than by owning moment.
func (s *Store) SelectByModTime(now time.Time, window int64) ([]Info, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	horizon := now.Add(-time.Duration(window) * time.Second)

	selected := all[:0]
	for _, b := range all {
		if b.ModTime.After(horizon) {
			selected = append(selected, b)
		}
	}
	return selected, nil
}

// ReadAll reads a bucket file fully into memory for decoding.
func (s *Store) ReadAll(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read bucket %s", filepath.Base(path))
	}
	return data, nil
}

// Oldest returns the moment of the first write, if any write has happened.
func (s *Store) Oldest() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oldest, s.hasOldest
}

// Dir returns the store's working directory.
func (s *Store) Dir() string {
	return s.dir
}

// Window returns the window length in seconds.
func (s *Store) Window() int64 {
	return s.window
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Close closes the open bucket handle. The directory is left in place.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.open != nil {
		err := s.open.Close()
		s.open = nil
		s.hasOpen = false
		if err != nil {
			return errors.Wrap(err, "close bucket")
		}
	}
	return nil
}

// Destroy closes the store and removes its directory and all contents.
func (s *Store) Destroy() error {
	if err := s.Close(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.dir); err != nil {
		return errors.Wrap(err, "remove bucket dir")
	}
	return nil
}
