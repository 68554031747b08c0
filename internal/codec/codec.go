// Package codec encodes and decodes readings to and from fixed-size on-disk
// records.
//
// Record format (binary, big-endian):
//   - Length header (4 bytes): constant 8, the payload length
//   - Payload (8 bytes): IEEE-754 bits of the clamped reading
//
// Every record is exactly 12 bytes, which lets the quantile engine address
// sorted records by byte offset without scanning.
package codec

import (
	"encoding/binary"
	"math"

	"github.com/xtxerr/slide/internal/errors"
)

const (
	// PayloadSize is the size of one encoded reading.
	PayloadSize = 8

	// RecordSize is the size of one framed record.
	RecordSize = 4 + PayloadSize

	// MaxMagnitude is the largest absolute value a reading may carry.
	// Readings are clamped to this magnitude before encoding.
	MaxMagnitude = 4_000_000_000
)

// Clamp bounds a reading to MaxMagnitude, preserving sign. NaN clamps to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > MaxMagnitude:
		return MaxMagnitude
	case v < -MaxMagnitude:
		return -MaxMagnitude
	default:
		return v
	}
}

// Encode clamps the reading and encodes it into exactly PayloadSize bytes.
func Encode(v float64) [PayloadSize]byte {
	var buf [PayloadSize]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(Clamp(v)))
	return buf
}

// Decode is the inverse of Encode. It exactly reconstructs any value
// produced by Encode.
func Decode(payload []byte) (float64, error) {
	if len(payload) != PayloadSize {
		return 0, errors.Wrapf(errors.ErrCorruptRecord, "payload length %d", len(payload))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(payload)), nil
}

// Frame prefixes an encoded payload with the 4-byte length header.
func Frame(payload [PayloadSize]byte) [RecordSize]byte {
	var rec [RecordSize]byte
	binary.BigEndian.PutUint32(rec[0:4], PayloadSize)
	copy(rec[4:], payload[:])
	return rec
}

// Unframe strips and validates the length header of a record.
func Unframe(rec []byte) ([]byte, error) {
	if len(rec) != RecordSize {
		return nil, errors.Wrapf(errors.ErrCorruptRecord, "record length %d", len(rec))
	}
	if n := binary.BigEndian.Uint32(rec[0:4]); n != PayloadSize {
		return nil, errors.Wrapf(errors.ErrCorruptRecord, "length header %d", n)
	}
	return rec[4:], nil
}

// EncodeRecord encodes a reading into one framed 12-byte record.
func EncodeRecord(v float64) [RecordSize]byte {
	return Frame(Encode(v))
}

// DecodeRecord decodes one framed 12-byte record back into a reading.
func DecodeRecord(rec []byte) (float64, error) {
	payload, err := Unframe(rec)
	if err != nil {
		return 0, err
	}
	return Decode(payload)
}

// DecodeAll decodes a sequence of framed records, calling fn for each
// reading. The data length must be a multiple of RecordSize.
func DecodeAll(data []byte, fn func(v float64)) error {
	if len(data)%RecordSize != 0 {
		return errors.Wrapf(errors.ErrCorruptRecord, "trailing %d bytes", len(data)%RecordSize)
	}
	for off := 0; off < len(data); off += RecordSize {
		v, err := DecodeRecord(data[off : off+RecordSize])
		if err != nil {
			return err
		}
		fn(v)
	}
	return nil
}
