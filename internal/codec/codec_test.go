package codec

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/xtxerr/slide/internal/errors"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 3.5, 42.125, 1e9, -1e9, 4_000_000_000, -4_000_000_000, 0.0001}

	for _, v := range values {
		got, err := Decode(mustPayload(v))
		if err != nil {
			t.Fatalf("Decode(%v): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %v: got %v", v, got)
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{5_000_000_000, 4_000_000_000},
		{-5_000_000_000, -4_000_000_000},
		{4_000_000_000, 4_000_000_000},
		{3_999_999_999, 3_999_999_999},
		{math.Inf(1), 4_000_000_000},
		{math.Inf(-1), -4_000_000_000},
		{7, 7},
	}

	for _, c := range cases {
		got, err := Decode(mustPayload(c.in))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got != c.want {
			t.Errorf("clamp(%v): expected %v, got %v", c.in, c.want, got)
		}
	}

	// NaN clamps to zero
	got, err := Decode(mustPayload(math.NaN()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != 0 {
		t.Errorf("clamp(NaN): expected 0, got %v", got)
	}
}

func TestFrame_Layout(t *testing.T) {
	rec := EncodeRecord(42)

	if len(rec) != RecordSize {
		t.Fatalf("expected %d bytes, got %d", RecordSize, len(rec))
	}
	if header := binary.BigEndian.Uint32(rec[0:4]); header != PayloadSize {
		t.Errorf("expected length header %d, got %d", PayloadSize, header)
	}

	v, err := DecodeRecord(rec[:])
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %v", v)
	}
}

func TestUnframe_BadHeader(t *testing.T) {
	rec := EncodeRecord(42)
	binary.BigEndian.PutUint32(rec[0:4], 9)

	if _, err := Unframe(rec[:]); !errors.Is(err, errors.ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestUnframe_ShortRecord(t *testing.T) {
	if _, err := Unframe(make([]byte, RecordSize-1)); !errors.Is(err, errors.ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestDecodeAll(t *testing.T) {
	var data []byte
	for _, v := range []float64{1, 2, 3} {
		rec := EncodeRecord(v)
		data = append(data, rec[:]...)
	}

	var got []float64
	if err := DecodeAll(data, func(v float64) { got = append(got, v) }); err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("unexpected readings: %v", got)
	}

	// Trailing garbage is corruption
	if err := DecodeAll(append(data, 0xff), nil); !errors.Is(err, errors.ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
}

func mustPayload(v float64) []byte {
	p := Encode(v)
	return p[:]
}
