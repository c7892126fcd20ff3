// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package wire decodes protobuf wire-format primitives out of byte buffers.
//
// All functions are pure: they take a buffer and a cursor position and
// return the decoded value along with the advanced cursor.
package wire

import (
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxVarintLen is the maximum number of bytes a varint may occupy.
const MaxVarintLen = 10

// ErrMalformedField is returned when a field has an invalid number or an
// unexpected wire type.
var ErrMalformedField = errors.New("malformed protobuf field")

// TruncatedInputError is returned when the buffer, or the underlying stream,
// is exhausted in the middle of a primitive.
type TruncatedInputError struct {
	Offset int64 // where the primitive started
	Need   int64 // bytes required, zero if unknown
}

func (e *TruncatedInputError) Error() string {
	if e.Need > 0 {
		return fmt.Sprintf("truncated input at offset %d: need %d more bytes", e.Offset, e.Need)
	}

	return fmt.Sprintf("truncated input at offset %d", e.Offset)
}

// MalformedVarintError is returned when a varint runs past MaxVarintLen bytes
// without terminating.
type MalformedVarintError struct {
	Offset int64
}

func (e *MalformedVarintError) Error() string {
	return fmt.Sprintf("malformed varint at offset %d", e.Offset)
}

// toError maps a negative protowire length onto the package's error types.
func toError(n int, pos int, remaining []byte) error {
	err := protowire.ParseError(n)

	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &TruncatedInputError{Offset: int64(pos)}
	case isOverflow(remaining):
		return &MalformedVarintError{Offset: int64(pos)}
	default:
		return fmt.Errorf("%w at offset %d: %w", ErrMalformedField, pos, err)
	}
}

// isOverflow reports whether the buffer starts with a varint that has not
// terminated within MaxVarintLen bytes.
func isOverflow(b []byte) bool {
	if len(b) < MaxVarintLen {
		return false
	}

	for _, c := range b[:MaxVarintLen-1] {
		if c < 0x80 {
			return false
		}
	}

	return b[MaxVarintLen-1] > 1
}

// Varint decodes an unsigned base-128 varint starting at pos.
func Varint(buf []byte, pos int) (uint64, int, error) {
	if pos >= len(buf) {
		return 0, pos, &TruncatedInputError{Offset: int64(pos), Need: 1}
	}

	v, n := protowire.ConsumeVarint(buf[pos:])
	if n < 0 {
		return 0, pos, toError(n, pos, buf[pos:])
	}

	return v, pos + n, nil
}

// Zigzag decodes a zigzag encoded signed varint starting at pos.
func Zigzag(buf []byte, pos int) (int64, int, error) {
	v, next, err := Varint(buf, pos)
	if err != nil {
		return 0, pos, err
	}

	return protowire.DecodeZigZag(v), next, nil
}

// Bytes decodes a length-delimited byte string starting at pos.  The returned
// slice aliases buf.
func Bytes(buf []byte, pos int) ([]byte, int, error) {
	size, next, err := Varint(buf, pos)
	if err != nil {
		return nil, pos, err
	}

	if remaining := uint64(len(buf) - next); size > remaining {
		return nil, pos, &TruncatedInputError{Offset: int64(pos), Need: int64(size - remaining)}
	}

	end := next + int(size)

	return buf[next:end:end], end, nil
}

// Fixed32 decodes a little-endian 32 bit value starting at pos.
func Fixed32(buf []byte, pos int) (uint32, int, error) {
	if pos > len(buf) {
		pos = len(buf)
	}

	v, n := protowire.ConsumeFixed32(buf[pos:])
	if n < 0 {
		return 0, pos, &TruncatedInputError{Offset: int64(pos), Need: int64(4 - len(buf[pos:]))}
	}

	return v, pos + n, nil
}

// Fixed64 decodes a little-endian 64 bit value starting at pos.
func Fixed64(buf []byte, pos int) (uint64, int, error) {
	if pos > len(buf) {
		pos = len(buf)
	}

	v, n := protowire.ConsumeFixed64(buf[pos:])
	if n < 0 {
		return 0, pos, &TruncatedInputError{Offset: int64(pos), Need: int64(8 - len(buf[pos:]))}
	}

	return v, pos + n, nil
}

// Tag decodes a field key starting at pos.
func Tag(buf []byte, pos int) (protowire.Number, protowire.Type, int, error) {
	v, next, err := Varint(buf, pos)
	if err != nil {
		return 0, 0, pos, err
	}

	num, typ := protowire.DecodeTag(v)
	if num < protowire.MinValidNumber || num > protowire.MaxValidNumber {
		return 0, 0, pos, fmt.Errorf("%w at offset %d: invalid field number %d", ErrMalformedField, pos, num)
	}

	return num, typ, next, nil
}

// Skip advances past the value of a field with the given wire type.
func Skip(buf []byte, pos int, typ protowire.Type) (int, error) {
	var err error

	next := pos

	switch typ {
	case protowire.VarintType:
		_, next, err = Varint(buf, pos)
	case protowire.Fixed32Type:
		_, next, err = Fixed32(buf, pos)
	case protowire.Fixed64Type:
		_, next, err = Fixed64(buf, pos)
	case protowire.BytesType:
		_, next, err = Bytes(buf, pos)
	default:
		err = fmt.Errorf("%w at offset %d: unsupported wire type %d", ErrMalformedField, pos, typ)
	}

	return next, err
}
