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

// Package packers compresses the payload of PBF blobs.
package packers

import (
	"bytes"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Blob field numbers of the payload variants.
const (
	rawField  protowire.Number = 1
	zlibField protowire.Number = 3
	lzmaField protowire.Number = 4
	lz4Field  protowire.Number = 6
	zstdField protowire.Number = 7
)

// base holds the compressing writer and the buffer it writes into.
type base struct {
	io.WriteCloser

	field protowire.Number
	buf   *bytes.Buffer
}

func newBasePacker(field protowire.Number, buf *bytes.Buffer, w io.WriteCloser) *base {
	return &base{
		WriteCloser: w,
		field:       field,
		buf:         buf,
	}
}

// SaveTo appends the packed contents to an encoded Blob message using the
// field matching the compression.
func (b *base) SaveTo(blob []byte) []byte {
	blob = protowire.AppendTag(blob, b.field, protowire.BytesType)

	return protowire.AppendBytes(blob, b.buf.Bytes())
}
