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

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Reader walks the fields of a single protobuf message.  Errors are sticky:
// once an error occurs Next returns false and the accessors return zero
// values.
//
//	r := wire.NewReader(buf)
//	for r.Next() {
//		switch r.Field() {
//		case 1:
//			id = r.Sint64()
//		default:
//			r.Skip()
//		}
//	}
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	buf  []byte
	pos  int
	num  protowire.Number
	typ  protowire.Type
	read bool // value of the current field has been consumed
	err  error
}

// NewReader creates a Reader over the message encoded in buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf, read: true}
}

// Next advances to the next field.  Values of the previous field that were
// not read are skipped.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}

	if !r.read {
		r.Skip()

		if r.err != nil {
			return false
		}
	}

	if r.pos >= len(r.buf) {
		return false
	}

	num, typ, next, err := Tag(r.buf, r.pos)
	if err != nil {
		r.err = err

		return false
	}

	r.num, r.typ, r.pos, r.read = num, typ, next, false

	return true
}

// Field returns the number of the current field.
func (r *Reader) Field() protowire.Number { return r.num }

// Type returns the wire type of the current field.
func (r *Reader) Type() protowire.Type { return r.typ }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Skip discards the value of the current field.
func (r *Reader) Skip() {
	if r.err != nil || r.read {
		return
	}

	r.read = true
	r.pos, r.err = Skip(r.buf, r.pos, r.typ)
}

func (r *Reader) expect(typ protowire.Type) bool {
	if r.err != nil {
		return false
	}

	if r.read {
		r.err = fmt.Errorf("%w: value of field %d already read", ErrMalformedField, r.num)

		return false
	}

	if r.typ != typ {
		r.err = fmt.Errorf("%w at offset %d: field %d has wire type %d, expected %d",
			ErrMalformedField, r.pos, r.num, r.typ, typ)

		return false
	}

	r.read = true

	return true
}

// Uint64 reads the current varint field.
func (r *Reader) Uint64() uint64 {
	if !r.expect(protowire.VarintType) {
		return 0
	}

	var v uint64

	v, r.pos, r.err = Varint(r.buf, r.pos)

	return v
}

// Int64 reads the current int64 field.
func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

// Int32 reads the current int32 field.
func (r *Reader) Int32() int32 { return int32(r.Uint64()) }

// Uint32 reads the current uint32 field.
func (r *Reader) Uint32() uint32 { return uint32(r.Uint64()) }

// Bool reads the current bool field.
func (r *Reader) Bool() bool { return protowire.DecodeBool(r.Uint64()) }

// Sint64 reads the current zigzag encoded field.
func (r *Reader) Sint64() int64 { return protowire.DecodeZigZag(r.Uint64()) }

// Bytes reads the current length-delimited field.  The returned slice aliases
// the message buffer.
func (r *Reader) Bytes() []byte {
	if !r.expect(protowire.BytesType) {
		return nil
	}

	var v []byte

	v, r.pos, r.err = Bytes(r.buf, r.pos)

	return v
}

// Text reads the current length-delimited field as a string.
func (r *Reader) Text() string { return string(r.Bytes()) }

// packed calls fn for every varint of a repeated scalar field.  Both the
// packed and the unpacked encodings are accepted.
func (r *Reader) packed(fn func(v uint64)) {
	if r.err != nil {
		return
	}

	if r.typ == protowire.VarintType {
		v := r.Uint64()
		if r.err == nil {
			fn(v)
		}

		return
	}

	payload := r.Bytes()
	if r.err != nil {
		return
	}

	for pos := 0; pos < len(payload); {
		var v uint64

		v, pos, r.err = Varint(payload, pos)
		if r.err != nil {
			return
		}

		fn(v)
	}
}

// Uint32s appends the values of a repeated uint32 field to dst.
func (r *Reader) Uint32s(dst []uint32) []uint32 {
	r.packed(func(v uint64) { dst = append(dst, uint32(v)) })

	return dst
}

// Int32s appends the values of a repeated int32 field to dst.
func (r *Reader) Int32s(dst []int32) []int32 {
	r.packed(func(v uint64) { dst = append(dst, int32(v)) })

	return dst
}

// Sint32s appends the values of a repeated sint32 field to dst.
func (r *Reader) Sint32s(dst []int32) []int32 {
	r.packed(func(v uint64) { dst = append(dst, int32(protowire.DecodeZigZag(v))) })

	return dst
}

// Sint64s appends the values of a repeated sint64 field to dst.
func (r *Reader) Sint64s(dst []int64) []int64 {
	r.packed(func(v uint64) { dst = append(dst, protowire.DecodeZigZag(v)) })

	return dst
}

// Bools appends the values of a repeated bool field to dst.
func (r *Reader) Bools(dst []bool) []bool {
	r.packed(func(v uint64) { dst = append(dst, protowire.DecodeBool(v)) })

	return dst
}
