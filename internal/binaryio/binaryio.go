// Package binaryio provides typed little/big-endian integer readers and the
// MIDI variable-length quantity decoder shared by every file-format reader in
// this module.
package binaryio

import (
	"bufio"
	"fmt"
	"io"
)

// ErrTruncated is wrapped into errors raised when a reader runs out of input
// mid-field.
var ErrTruncated = fmt.Errorf("truncated read")

// U8 reads an unsigned 8-bit integer.
func U8(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return buf[0], nil
}

// S8 reads a signed 8-bit integer.
func S8(r io.Reader) (int8, error) {
	b, err := U8(r)
	return int8(b), err
}

// U16LE reads an unsigned little-endian 16-bit integer.
func U16LE(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

// U16BE reads an unsigned big-endian 16-bit integer.
func U16BE(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// S16LE reads a signed little-endian 16-bit integer.
func S16LE(r io.Reader) (int16, error) {
	v, err := U16LE(r)
	return int16(v), err
}

// S16BE reads a signed big-endian 16-bit integer.
func S16BE(r io.Reader) (int16, error) {
	v, err := U16BE(r)
	return int16(v), err
}

// U32BE reads an unsigned big-endian 32-bit integer.
func U32BE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]), nil
}

// U16LEBytes reads an unsigned little-endian 16-bit integer from a byte slice.
func U16LEBytes(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// U16BEBytes reads an unsigned big-endian 16-bit integer from a byte slice.
func U16BEBytes(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// S16BEBytes reads a signed big-endian 16-bit integer from a byte slice.
func S16BEBytes(b []byte) int16 {
	return int16(U16BEBytes(b))
}

// S16LEBytes reads a signed little-endian 16-bit integer from a byte slice.
func S16LEBytes(b []byte) int16 {
	return int16(U16LEBytes(b))
}

// ReadVarLength reads a MIDI variable-length quantity: a big-endian base-128
// value where the high bit of each byte marks continuation.
func ReadVarLength(r io.ByteReader) (uint32, error) {
	var length uint32
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		length = length<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return length, nil
		}
	}
}

// NewByteReader adapts an io.Reader into an io.ByteReader, reusing it
// directly when it already implements the interface.
func NewByteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return bufio.NewReader(r)
}

// GetAsciiText trims trailing NUL padding from a fixed-width name field.
func GetAsciiText(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}

// Clamp restricts value to the inclusive range [min, max].
func Clamp[T int | int8 | int16 | int32 | int64 | float64](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
