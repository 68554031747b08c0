// Package extsort sorts framed reading records across bucket files into a
// single output file, ordered by decoded value ascending.
//
// The sorter is a classic external merge sort: records are accumulated into
// bounded in-memory chunks, each chunk is sorted and spilled to a run file,
// and the runs are k-way merged into the output. Inputs larger than memory
// are handled by the chunk bound; a single small input skips the spill
// entirely.
//
// The output file begins with one reserved 12-byte slot ahead of the sorted
// records, so the record at byte offset rank*12 is the rank-th smallest
// value (1-based). Run files and the output use names with a leading '-',
// which the bucket store never lists as buckets.
package extsort

import (
	"bufio"
	"container/heap"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/xtxerr/slide/internal/codec"
	"github.com/xtxerr/slide/internal/errors"
	"github.com/xtxerr/slide/internal/logging"
)

// DefaultChunkRecords is the default number of records sorted in memory at
// once (64Ki records, 768KiB raw).
const DefaultChunkRecords = 64 * 1024

// Sorter sorts record files within a working directory.
type Sorter struct {
	dir          string
	chunkRecords int
	log          *slog.Logger
}

// New creates a sorter that places its run files in dir. chunkRecords <= 0
// selects DefaultChunkRecords.
func New(dir string, chunkRecords int) *Sorter {
	if chunkRecords <= 0 {
		chunkRecords = DefaultChunkRecords
	}
	return &Sorter{
		dir:          dir,
		chunkRecords: chunkRecords,
		log:          logging.Component("extsort"),
	}
}

// keyed is one record with its decoded sort key.
type keyed struct {
	key float64
	raw [codec.RecordSize]byte
}

// Sort merges all records from the input files into output, ascending by
// decoded value, behind one reserved leading slot. Partial runs are cleaned
// up on both success and failure.
func (s *Sorter) Sort(inputs []string, output string) error {
	chunk := make([]keyed, 0, s.chunkRecords)
	var runs []string

	defer func() {
		for _, run := range runs {
			os.Remove(run)
		}
	}()

	spill := func() error {
		path, err := s.writeRun(chunk)
		if err != nil {
			return err
		}
		runs = append(runs, path)
		chunk = chunk[:0]
		return nil
	}

	for _, input := range inputs {
		err := readRecords(input, func(rec keyed) error {
			chunk = append(chunk, rec)
			if len(chunk) == s.chunkRecords {
				return spill()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	// Everything fit in one chunk: sort and write directly.
	if len(runs) == 0 {
		sortChunk(chunk)
		return writeSorted(output, chunk)
	}

	if len(chunk) > 0 {
		if err := spill(); err != nil {
			return err
		}
	}

	s.log.Debug("merging runs", "runs", len(runs))
	return s.merge(runs, output)
}

// writeRun sorts the chunk and spills it to a uniquely named run file.
func (s *Sorter) writeRun(chunk []keyed) (string, error) {
	sortChunk(chunk)

	path := filepath.Join(s.dir, fmt.Sprintf("-run-%s", uuid.NewString()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", errors.Wrap(err, "create run file")
	}

	w := bufio.NewWriter(f)
	for _, rec := range chunk {
		if _, err := w.Write(rec.raw[:]); err != nil {
			f.Close()
			os.Remove(path)
			return "", errors.Wrap(err, "write run file")
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrap(err, "flush run file")
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.Wrap(err, "close run file")
	}
	return path, nil
}

// merge k-way merges sorted run files into the output file.
func (s *Sorter) merge(runs []string, output string) error {
	cursors := make(mergeHeap, 0, len(runs))
	defer func() {
		for _, c := range cursors {
			c.close()
		}
	}()

	for _, run := range runs {
		c, err := openCursor(run)
		if err != nil {
			return err
		}
		if c != nil {
			cursors = append(cursors, c)
		}
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "create sort output")
	}

	w := bufio.NewWriter(f)
	fail := func(err error) error {
		f.Close()
		os.Remove(output)
		return err
	}

	sentinel := codec.EncodeRecord(0)
	if _, err := w.Write(sentinel[:]); err != nil {
		return fail(errors.Wrap(err, "write reserved slot"))
	}

	h := &cursors
	heap.Init(h)
	for h.Len() > 0 {
		c := (*h)[0]
		if _, err := w.Write(c.raw[:]); err != nil {
			return fail(errors.Wrap(err, "write sort output"))
		}

		ok, err := c.advance()
		if err != nil {
			return fail(err)
		}
		if ok {
			heap.Fix(h, 0)
		} else {
			c.close()
			heap.Pop(h)
		}
	}

	if err := w.Flush(); err != nil {
		return fail(errors.Wrap(err, "flush sort output"))
	}
	if err := f.Close(); err != nil {
		os.Remove(output)
		return errors.Wrap(err, "close sort output")
	}
	return nil
}

// writeSorted writes an already-sorted chunk to the output file behind the
// reserved leading slot.
func writeSorted(output string, chunk []keyed) error {
	f, err := os.OpenFile(output, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "create sort output")
	}

	w := bufio.NewWriter(f)
	sentinel := codec.EncodeRecord(0)
	if _, err := w.Write(sentinel[:]); err != nil {
		f.Close()
		os.Remove(output)
		return errors.Wrap(err, "write reserved slot")
	}
	for _, rec := range chunk {
		if _, err := w.Write(rec.raw[:]); err != nil {
			f.Close()
			os.Remove(output)
			return errors.Wrap(err, "write sort output")
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(output)
		return errors.Wrap(err, "flush sort output")
	}
	if err := f.Close(); err != nil {
		os.Remove(output)
		return errors.Wrap(err, "close sort output")
	}
	return nil
}

func sortChunk(chunk []keyed) {
	sort.Slice(chunk, func(i, j int) bool {
		return chunk[i].key < chunk[j].key
	})
}

// readRecords streams framed records from a file, decoding each sort key.
func readRecords(path string, fn func(keyed) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", filepath.Base(path))
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var rec keyed
		if _, err := io.ReadFull(r, rec.raw[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			if err == io.ErrUnexpectedEOF {
				return errors.Wrapf(errors.ErrCorruptRecord, "truncated record in %s", filepath.Base(path))
			}
			return errors.Wrapf(err, "read %s", filepath.Base(path))
		}

		key, err := codec.DecodeRecord(rec.raw[:])
		if err != nil {
			return errors.Wrapf(err, "decode record in %s", filepath.Base(path))
		}
		rec.key = key

		if err := fn(rec); err != nil {
			return err
		}
	}
}
