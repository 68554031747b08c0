package extsort

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/xtxerr/slide/internal/codec"
	"github.com/xtxerr/slide/internal/errors"
)

// cursor walks one sorted run file during the merge.
type cursor struct {
	file *os.File
	r    *bufio.Reader
	path string

	key float64
	raw [codec.RecordSize]byte
}

// openCursor opens a run file and positions the cursor on its first record.
// Returns nil for an empty run.
func openCursor(path string) (*cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open run file")
	}

	c := &cursor{
		file: f,
		r:    bufio.NewReader(f),
		path: path,
	}

	ok, err := c.advance()
	if err != nil {
		c.close()
		return nil, err
	}
	if !ok {
		c.close()
		return nil, nil
	}
	return c, nil
}

// advance reads the next record. Returns false at end of run.
func (c *cursor) advance() (bool, error) {
	if _, err := io.ReadFull(c.r, c.raw[:]); err != nil {
		if err == io.EOF {
			return false, nil
		}
		if err == io.ErrUnexpectedEOF {
			return false, errors.Wrapf(errors.ErrCorruptRecord, "truncated run %s", filepath.Base(c.path))
		}
		return false, errors.Wrap(err, "read run file")
	}

	key, err := codec.DecodeRecord(c.raw[:])
	if err != nil {
		return false, errors.Wrapf(err, "decode run %s", filepath.Base(c.path))
	}
	c.key = key
	return true, nil
}

func (c *cursor) close() {
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
}

// mergeHeap is a min-heap of run cursors ordered by current key.
type mergeHeap []*cursor

func (h mergeHeap) Len() int            { return len(h) }
func (h mergeHeap) Less(i, j int) bool  { return h[i].key < h[j].key }
func (h mergeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(*cursor)) }

func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
