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

package osmscan

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"m4o.io/osmscan/internal/encoder"
	"m4o.io/osmscan/model"
)

// encodePBF writes entities into an in-memory PBF stream.
func encodePBF(tb testing.TB, entities []model.Entity, opts ...EncoderOption) []byte {
	tb.Helper()

	var buf bytes.Buffer

	enc, err := NewEncoder(&buf, append([]EncoderOption{WithStorePath(tb.TempDir())}, opts...)...)
	require.NoError(tb, err)
	require.NoError(tb, enc.EncodeBatch(entities))
	require.NoError(tb, enc.Close())

	return buf.Bytes()
}

// rawPBF frames an uncompressed header followed by hand built OSMData blocks.
func rawPBF(tb testing.TB, blocks ...[]byte) []byte {
	tb.Helper()

	var buf bytes.Buffer

	hdr := model.Header{RequiredFeatures: []string{"OsmSchema-V0.6", "DenseNodes"}}
	require.NoError(tb, encoder.SaveHeader(&buf, hdr, encoder.RAW))

	for _, block := range blocks {
		packed, err := encoder.Pack(block, encoder.RAW)
		require.NoError(tb, err)
		require.NoError(tb, encoder.WriteBlob(&buf, encoder.TypeData, packed))
	}

	return buf.Bytes()
}

// block assembles a PrimitiveBlock from a string table and raw groups.
func block(strings []string, groups ...[]byte) []byte {
	var st []byte
	for _, s := range strings {
		st = protowire.AppendTag(st, 1, protowire.BytesType)
		st = protowire.AppendString(st, s)
	}

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, st)

	for _, g := range groups {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, g)
	}

	return b
}

// message appends a length delimited field.
func message(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, msg)
}

// plainNode encodes a Node message without tags.
func plainNode(id int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(id))
	b = protowire.AppendTag(b, 8, protowire.VarintType)
	b = protowire.AppendVarint(b, 0)
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 0)

	return b
}

// plainWay encodes a Way message without tags or refs.
func plainWay(id int64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(id))

	return b
}

// decodeAll drains a decoder.
func decodeAll(tb testing.TB, d *Decoder) ([]model.Entity, error) {
	tb.Helper()

	var all []model.Entity

	for {
		entities, err := d.Decode()
		if errors.Is(err, io.EOF) {
			return all, nil
		} else if err != nil {
			return all, err
		}

		all = append(all, entities...)
	}
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}

	return t.UTC()
}

// sampleEntities covers every kind of entity with and without metadata.
func sampleEntities() []model.Entity {
	return []model.Entity{
		&model.Node{
			ID: 1, Lat: 35.0, Lon: 139.0,
			Tags: map[string]string{"amenity": "restaurant", "name": "すし屋"},
			Info: &model.Info{Version: 3, UID: 42, Timestamp: ts("2022-02-13T20:40:22Z"), Changeset: 1001, User: "alice", Visible: true},
		},
		&model.Node{
			ID: 2, Lat: 35.1, Lon: 139.1,
			Tags: map[string]string{},
			Info: &model.Info{Version: 1, UID: 7, Timestamp: ts("2021-06-01T00:00:00Z"), Changeset: 998, User: "bob", Visible: false},
		},
		&model.Node{
			ID: 5, Lat: -33.8688, Lon: 151.2093,
			Tags: map[string]string{"place": "city"},
			Info: &model.Info{Version: 12, UID: 42, Timestamp: ts("2023-01-01T12:30:45Z"), Changeset: 2000, User: "alice", Visible: true},
		},
		&model.Way{
			ID:      10,
			NodeIDs: []model.ID{1, 2, 5, 1},
			Tags:    map[string]string{"highway": "residential"},
			Info:    &model.Info{Version: 2, UID: 7, Timestamp: ts("2020-05-05T05:05:05Z"), Changeset: 77, User: "bob", Visible: true},
		},
		&model.Way{
			ID:      11,
			NodeIDs: []model.ID{5, 2},
			Tags:    map[string]string{},
		},
		&model.Relation{
			ID: 20,
			Members: []model.Member{
				{ID: 10, Type: model.WAY, Role: "outer"},
				{ID: 1, Type: model.NODE, Role: ""},
				{ID: 21, Type: model.RELATION, Role: "subarea"},
			},
			Tags: map[string]string{"type": "multipolygon"},
		},
	}
}
