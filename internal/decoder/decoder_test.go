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

package decoder

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"m4o.io/osmscan/internal/core"
	"m4o.io/osmscan/internal/encoder"
	"m4o.io/osmscan/internal/wire"
	"m4o.io/osmscan/model"
)

func nodes(n int) []model.Entity {
	entities := make([]model.Entity, n)
	for i := range entities {
		entities[i] = &model.Node{
			ID:   model.ID(i + 1),
			Lat:  model.Degrees(float64(i) / 10),
			Lon:  model.Degrees(float64(-i) / 10),
			Tags: map[string]string{},
		}
	}

	return entities
}

// stream writes a header blob followed by one blob per (type, payload).
func stream(t *testing.T, blobs ...[2]any) []byte {
	t.Helper()

	var buf bytes.Buffer

	hdr := model.Header{RequiredFeatures: []string{"OsmSchema-V0.6", "DenseNodes"}}
	require.NoError(t, encoder.SaveHeader(&buf, hdr, encoder.ZLIB))

	for _, b := range blobs {
		packed, err := encoder.Pack(b[1].([]byte), encoder.ZLIB)
		require.NoError(t, err)
		require.NoError(t, encoder.WriteBlob(&buf, b[0].(string), packed))
	}

	return buf.Bytes()
}

func dataBlock(t *testing.T, entities []model.Entity) [2]any {
	t.Helper()

	block, err := encoder.EncodeBlock(encoder.DefaultBlockConfig, entities)
	require.NoError(t, err)

	return [2]any{TypeData, block}
}

func TestBlobReaderOffsets(t *testing.T) {
	data := stream(t, dataBlock(t, nodes(2)), dataBlock(t, nodes(3)))

	br := NewBlobReader(bytes.NewReader(data))

	hdr, err := br.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, []string{"OsmSchema-V0.6", "DenseNodes"}, hdr.RequiredFeatures)

	first := br.Offset()

	var offsets []int64
	for blob, err := range br.All(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, TypeData, blob.Type)
		assert.Equal(t, Zlib, blob.Compression)
		assert.Positive(t, blob.RawSize)

		offsets = append(offsets, blob.Offset)
	}

	require.Len(t, offsets, 2)
	assert.Equal(t, first, offsets[0])
	assert.Greater(t, offsets[1], offsets[0])
	assert.Equal(t, int64(len(data)), br.Offset())
}

func TestBlobsRestartable(t *testing.T) {
	data := stream(t,
		dataBlock(t, nodes(2)),
		[2]any{"OSMExtension", []byte("ignored")},
		dataBlock(t, nodes(3)))

	rs := bytes.NewReader(data)
	blobs := Blobs(context.Background(), rs)

	for range 2 {
		var counts []int

		for payload, err := range blobs {
			require.NoError(t, err)
			assert.Equal(t, TypeData, payload.Type)

			entities, err := parsePrimitiveBlock(payload.Data)
			require.NoError(t, err)

			counts = append(counts, len(entities))
		}

		assert.Equal(t, []int{2, 3}, counts)
	}
}

func TestBlobsMissingHeader(t *testing.T) {
	for _, err := range Blobs(context.Background(), bytes.NewReader(nil)) {
		assert.ErrorIs(t, err, ErrMissingHeader)
	}
}

func TestBlobsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var errs []error
	for _, err := range Blobs(ctx, bytes.NewReader(stream(t, dataBlock(t, nodes(1))))) {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestBlobReaderLimits(t *testing.T) {
	t.Run("header too large", func(t *testing.T) {
		var prefix [4]byte
		binary.BigEndian.PutUint32(prefix[:], maxBlobHeaderSize+1)

		_, err := NewBlobReader(bytes.NewReader(prefix[:])).Next()
		assert.ErrorIs(t, err, ErrBlobHeaderTooLarge)
	})

	t.Run("blob too large", func(t *testing.T) {
		var hb []byte
		hb = protowire.AppendTag(hb, 1, protowire.BytesType)
		hb = protowire.AppendString(hb, TypeData)
		hb = protowire.AppendTag(hb, 3, protowire.VarintType)
		hb = protowire.AppendVarint(hb, maxBlobSize+1)

		data := binary.BigEndian.AppendUint32(nil, uint32(len(hb)))
		data = append(data, hb...)

		_, err := NewBlobReader(bytes.NewReader(data)).Next()
		assert.ErrorIs(t, err, ErrBlobTooLarge)

		var blobErr *BlobError
		require.ErrorAs(t, err, &blobErr)
		assert.Equal(t, TypeData, blobErr.Type)
	})

	t.Run("truncated prefix", func(t *testing.T) {
		_, err := NewBlobReader(bytes.NewReader([]byte{0, 0})).Next()

		var truncated *wire.TruncatedInputError
		require.ErrorAs(t, err, &truncated)
		assert.Equal(t, int64(2), truncated.Need)
	})

	t.Run("clean end", func(t *testing.T) {
		_, err := NewBlobReader(bytes.NewReader(nil)).Next()
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestUnpack(t *testing.T) {
	block, err := encoder.EncodeBlock(encoder.DefaultBlockConfig, nodes(10))
	require.NoError(t, err)

	for _, c := range []encoder.BlobCompression{encoder.RAW, encoder.ZLIB, encoder.LZMA, encoder.LZ4, encoder.ZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			packed, err := encoder.Pack(block, c)
			require.NoError(t, err)

			blob, err := parseBlob(packed)
			require.NoError(t, err)

			buf := core.NewPooledBuffer()
			defer buf.Close()

			data, err := unpack(buf, blob)
			require.NoError(t, err)
			assert.Equal(t, block, data)
		})
	}
}

func TestUnpackFailures(t *testing.T) {
	block, err := encoder.EncodeBlock(encoder.DefaultBlockConfig, nodes(10))
	require.NoError(t, err)

	packed, err := encoder.Pack(block, encoder.ZLIB)
	require.NoError(t, err)

	buf := core.NewPooledBuffer()
	defer buf.Close()

	t.Run("missing raw size", func(t *testing.T) {
		blob, err := parseBlob(packed)
		require.NoError(t, err)

		blob.RawSize = 0

		buf.Reset()
		_, err = unpack(buf, blob)

		var mismatch *BlobSizeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, int64(0), mismatch.Declared)
		assert.Equal(t, int64(len(block)), mismatch.Actual)
	})

	t.Run("raw size too small", func(t *testing.T) {
		blob, err := parseBlob(packed)
		require.NoError(t, err)

		blob.RawSize = 5

		buf.Reset()
		_, err = unpack(buf, blob)

		var mismatch *BlobSizeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, int64(6), mismatch.Actual)
	})

	t.Run("raw size beyond blob limit", func(t *testing.T) {
		blob, err := parseBlob(packed)
		require.NoError(t, err)

		blob.RawSize = math.MaxInt32

		buf.Reset()
		_, err = unpack(buf, blob)

		assert.ErrorIs(t, err, ErrBlobTooLarge)
		assert.Less(t, buf.Cap(), maxBlobSize)
	})

	t.Run("negative raw size", func(t *testing.T) {
		blob, err := parseBlob(packed)
		require.NoError(t, err)

		blob.RawSize = -1

		buf.Reset()
		_, err = unpack(buf, blob)
		assert.ErrorIs(t, err, ErrBlobTooLarge)
	})

	t.Run("bzip2", func(t *testing.T) {
		_, err := unpack(buf, &Blob{Compression: Bzip2, Data: []byte{1}})
		assert.ErrorIs(t, err, ErrUnknownCompressionType)
	})

	t.Run("no payload", func(t *testing.T) {
		blob, err := parseBlob(nil)
		require.NoError(t, err)

		_, err = unpack(buf, blob)
		assert.ErrorIs(t, err, ErrUnknownCompressionType)
	})
}

func TestHeaderFromBlob(t *testing.T) {
	var buf bytes.Buffer

	hdr := model.Header{
		BoundingBox:      &model.BoundingBox{Top: 51.69344, Left: -0.511482, Bottom: 51.28554, Right: 0.335437},
		RequiredFeatures: []string{"OsmSchema-V0.6"},
		WritingProgram:   "Osmium",
	}
	require.NoError(t, encoder.SaveHeader(&buf, hdr, encoder.RAW))

	actual, err := LoadHeader(&buf)
	require.NoError(t, err)
	assert.True(t, actual.BoundingBox.EqualWithin(hdr.BoundingBox, model.E9))
	assert.Equal(t, hdr.RequiredFeatures, actual.RequiredFeatures)
	assert.Equal(t, "Osmium", actual.WritingProgram)

	buf.Reset()
	hdr.RequiredFeatures = append(hdr.RequiredFeatures, "LocationsOnWays")
	require.NoError(t, encoder.SaveHeader(&buf, hdr, encoder.RAW))

	_, err = LoadHeader(&buf)

	var unsupported *UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "LocationsOnWays", unsupported.Feature)
}

func TestParsePrimitiveBlock(t *testing.T) {
	expected := []model.Entity{
		&model.Node{ID: 1, Lat: 35.0, Lon: 139.0, Tags: map[string]string{"amenity": "restaurant"}},
		&model.Node{ID: 2, Lat: 35.1, Lon: 139.1, Tags: map[string]string{}},
	}

	block, err := encoder.EncodeBlock(encoder.DefaultBlockConfig, expected)
	require.NoError(t, err)

	actual, err := parsePrimitiveBlock(block)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestParsePrimitiveBlockDefaults(t *testing.T) {
	var node []byte
	node = protowire.AppendTag(node, 1, protowire.VarintType)
	node = protowire.AppendVarint(node, protowire.EncodeZigZag(7))
	node = protowire.AppendTag(node, 8, protowire.VarintType)
	node = protowire.AppendVarint(node, protowire.EncodeZigZag(350000000))
	node = protowire.AppendTag(node, 9, protowire.VarintType)
	node = protowire.AppendVarint(node, protowire.EncodeZigZag(-1391000000))

	var group []byte
	group = protowire.AppendTag(group, 1, protowire.BytesType)
	group = protowire.AppendBytes(group, node)

	// a changeset group carries no entities
	group2 := protowire.AppendTag(nil, 5, protowire.BytesType)
	group2 = protowire.AppendBytes(group2, nil)

	var block []byte
	block = protowire.AppendTag(block, 2, protowire.BytesType)
	block = protowire.AppendBytes(block, group)
	block = protowire.AppendTag(block, 2, protowire.BytesType)
	block = protowire.AppendBytes(block, group2)

	entities, err := parsePrimitiveBlock(block)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	n := entities[0].(*model.Node)
	assert.Equal(t, model.ID(7), n.ID)
	assert.Equal(t, model.Degrees(35.0), n.Lat)
	assert.Equal(t, model.Degrees(-139.1), n.Lon)
	assert.Nil(t, n.Info)
}

func TestParsePrimitiveBlockMalformed(t *testing.T) {
	packed := func(values ...uint64) []byte {
		var b []byte
		for _, v := range values {
			b = protowire.AppendVarint(b, v)
		}

		return b
	}

	dense := func(fields ...[]byte) []byte {
		var st []byte
		st = protowire.AppendTag(st, 1, protowire.BytesType)
		st = protowire.AppendString(st, "")
		st = protowire.AppendTag(st, 1, protowire.BytesType)
		st = protowire.AppendString(st, "k")

		var dn []byte
		for _, f := range fields {
			dn = append(dn, f...)
		}

		var group []byte
		group = protowire.AppendTag(group, 2, protowire.BytesType)
		group = protowire.AppendBytes(group, dn)

		var block []byte
		block = protowire.AppendTag(block, 1, protowire.BytesType)
		block = protowire.AppendBytes(block, st)
		block = protowire.AppendTag(block, 2, protowire.BytesType)
		block = protowire.AppendBytes(block, group)

		return block
	}

	field := func(num protowire.Number, b []byte) []byte {
		f := protowire.AppendTag(nil, num, protowire.BytesType)

		return protowire.AppendBytes(f, b)
	}

	ids := field(1, packed(2, 2))
	lats := field(8, packed(0, 0))
	lons := field(9, packed(0, 0))

	tests := []struct {
		name  string
		block []byte
	}{
		{"lats shorter than ids", dense(ids, field(8, packed(0)), lons)},
		{"unterminated keys_vals", dense(ids, lats, lons, field(10, packed(1, 1, 0, 1, 1)))},
		{"key without value", dense(ids, lats, lons, field(10, packed(0, 1)))},
		{"string index out of range", dense(ids, lats, lons, field(10, packed(1, 9, 0, 0)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePrimitiveBlock(tt.block)
			assert.ErrorIs(t, err, ErrMalformedBlock)
		})
	}

	t.Run("truncated varint", func(t *testing.T) {
		_, err := parsePrimitiveBlock([]byte{0x88})

		var truncated *wire.TruncatedInputError
		assert.ErrorAs(t, err, &truncated)
	})
}

func TestDecodeMemberType(t *testing.T) {
	mt, err := decodeMemberType(2)
	require.NoError(t, err)
	assert.Equal(t, model.RELATION, mt)

	_, err = decodeMemberType(3)
	assert.ErrorIs(t, err, ErrMalformedBlock)
}

func TestToTimestamp(t *testing.T) {
	expected := time.Date(2022, 2, 13, 20, 40, 22, 0, time.UTC)

	assert.Equal(t, expected, toTimestamp(1000, 1644784822))
	assert.Equal(t, expected, toTimestamp(1, 1644784822000))
}

func TestDecodeBatch(t *testing.T) {
	data := stream(t, dataBlock(t, nodes(2)), dataBlock(t, nodes(3)))

	br := NewBlobReader(bytes.NewReader(data))
	_, err := br.ReadHeader()
	require.NoError(t, err)

	var blobs []*Blob
	for blob, err := range br.All(context.Background()) {
		require.NoError(t, err)

		blobs = append(blobs, blob)
	}

	blobs = append(blobs, &Blob{Type: "OSMExtension"})

	var counts []int
	for try := range GenerateBatchDecoder(core.DefaultBufferSize)(blobs) {
		require.NoError(t, try.Error)

		counts = append(counts, len(try.Value))
	}

	assert.Equal(t, []int{2, 3}, counts)
}

func TestDecodeBatchError(t *testing.T) {
	blobs := []*Blob{{Type: TypeData, Offset: 42, Compression: Bzip2}}

	var errs []error
	for try := range GenerateBatchDecoder(0)(blobs) {
		errs = append(errs, try.Error)
	}

	require.Len(t, errs, 1)

	var blobErr *BlobError
	require.True(t, errors.As(errs[0], &blobErr))
	assert.Equal(t, int64(42), blobErr.Offset)
	assert.ErrorIs(t, errs[0], ErrUnknownCompressionType)
}
