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

package encoder

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmscan/internal/wire"
)

func TestParseCompression(t *testing.T) {
	for _, c := range []BlobCompression{RAW, ZLIB, LZMA, LZ4, ZSTD} {
		parsed, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	parsed, err := ParseCompression("ZLIB")
	require.NoError(t, err)
	assert.Equal(t, ZLIB, parsed)

	_, err = ParseCompression("bzip2")
	assert.Error(t, err)
	assert.Equal(t, "BlobCompression(9)", BlobCompression(9).String())
}

func TestPack(t *testing.T) {
	msg := bytes.Repeat([]byte("highway=residential;"), 64)

	tests := []struct {
		compression BlobCompression
		field       int32
	}{
		{RAW, 1},
		{ZLIB, 3},
		{LZMA, 4},
		{LZ4, 6},
		{ZSTD, 7},
	}

	for _, tc := range tests {
		t.Run(tc.compression.String(), func(t *testing.T) {
			bb, err := Pack(msg, tc.compression)
			require.NoError(t, err)

			var (
				rawSize int32
				field   int32
				payload []byte
			)

			r := wire.NewReader(bb)
			for r.Next() {
				if r.Field() == 2 {
					rawSize = r.Int32()
				} else {
					field = int32(r.Field())
					payload = r.Bytes()
				}
			}

			require.NoError(t, r.Err())
			assert.Equal(t, int32(len(msg)), rawSize)
			assert.Equal(t, tc.field, field)
			assert.NotEmpty(t, payload)
		})
	}
}

func TestWriteBlob(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteBlob(&buf, TypeData, []byte{1, 2, 3}))

	size := binary.BigEndian.Uint32(buf.Bytes()[:4])
	hb := buf.Bytes()[4 : 4+size]

	var (
		typ      string
		datasize int32
	)

	r := wire.NewReader(hb)
	for r.Next() {
		switch r.Field() {
		case 1:
			typ = r.Text()
		case 3:
			datasize = r.Int32()
		}
	}

	require.NoError(t, r.Err())
	assert.Equal(t, TypeData, typ)
	assert.Equal(t, int32(3), datasize)
	assert.Equal(t, []byte{1, 2, 3}, buf.Bytes()[4+size:])
}
