// Copyright 2025 detvm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bin implements the little-endian binary encoding shared by the
// object-file and program-image codecs.
package bin

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Reader decodes little-endian fields from an in-memory buffer. The first
// decode error sticks; subsequent reads return zero values so callers can
// decode a whole section and check Err once.
type Reader struct {
	data []byte
	pos  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// EOF reports whether the reader has consumed the entire buffer.
func (r *Reader) EOF() bool { return r.pos >= len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.data) {
		r.err = errors.Errorf("unexpected EOF: need %d bytes at offset %d, have %d", n, r.pos, len(r.data)-r.pos)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 { return int64(r.U64()) }

func (r *Reader) F64() float64 { return math.Float64frombits(r.U64()) }

// String reads n raw bytes as a string.
func (r *Reader) String(n int) string {
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// Skip discards n bytes.
func (r *Reader) Skip(n int) { r.take(n) }

// Expect consumes len(tag) bytes and fails the reader unless they match tag.
func (r *Reader) Expect(tag string) {
	if r.err != nil {
		return
	}
	got := r.String(len(tag))
	if r.err == nil && got != tag {
		r.err = errors.Errorf("bad section tag: expected %q, got %q", tag, got)
	}
}
