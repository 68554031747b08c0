package extsort

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/xtxerr/slide/internal/codec"
	"github.com/xtxerr/slide/internal/errors"
)

func writeInput(t *testing.T, dir, name string, values []float64) string {
	t.Helper()

	var data []byte
	for _, v := range values {
		rec := codec.EncodeRecord(v)
		data = append(data, rec[:]...)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func readSorted(t *testing.T, path string) []float64 {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data)%codec.RecordSize != 0 {
		t.Fatalf("output not record-aligned: %d bytes", len(data))
	}

	var values []float64
	// Skip the reserved leading slot.
	if err := codec.DecodeAll(data[codec.RecordSize:], func(v float64) {
		values = append(values, v)
	}); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return values
}

func TestSort_SingleChunk(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "0", []float64{5, 1, 9, 3, 3, -2})
	out := filepath.Join(dir, "-sorted-test")

	if err := New(dir, 0).Sort([]string{in}, out); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	got := readSorted(t, out)
	want := []float64{-2, 1, 3, 3, 5, 9}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSort_ReservedLeadingSlot(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "0", []float64{7})
	out := filepath.Join(dir, "-sorted-test")

	if err := New(dir, 0).Sort([]string{in}, out); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	// One record plus the reserved slot.
	if info.Size() != 2*codec.RecordSize {
		t.Errorf("expected %d bytes, got %d", 2*codec.RecordSize, info.Size())
	}
}

func TestSort_Empty(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "-sorted-test")

	if err := New(dir, 0).Sort(nil, out); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() != codec.RecordSize {
		t.Errorf("expected only the reserved slot, got %d bytes", info.Size())
	}
}

func TestSort_SpillsAndMerges(t *testing.T) {
	dir := t.TempDir()

	rng := rand.New(rand.NewSource(1))
	var all []float64
	var inputs []string
	for i := 0; i < 3; i++ {
		values := make([]float64, 100)
		for j := range values {
			values[j] = float64(rng.Intn(10_000))
		}
		all = append(all, values...)
		inputs = append(inputs, writeInput(t, dir, string(rune('0'+i)), values))
	}

	out := filepath.Join(dir, "-sorted-test")
	// Tiny chunks force multiple runs and a real k-way merge.
	if err := New(dir, 16).Sort(inputs, out); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	got := readSorted(t, out)
	sort.Float64s(all)

	if len(got) != len(all) {
		t.Fatalf("expected %d records, got %d", len(all), len(got))
	}
	for i := range all {
		if got[i] != all[i] {
			t.Fatalf("position %d: expected %v, got %v", i, all[i], got[i])
		}
	}

	// Run files must not linger.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if len(e.Name()) > 4 && e.Name()[:5] == "-run-" {
			t.Errorf("leftover run file %s", e.Name())
		}
	}
}

func TestSort_CorruptInput(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "0", []float64{1, 2})

	// Truncate mid-record.
	if err := os.Truncate(in, codec.RecordSize+3); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	out := filepath.Join(dir, "-sorted-test")
	err := New(dir, 0).Sort([]string{in}, out)
	if !errors.Is(err, errors.ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
}
