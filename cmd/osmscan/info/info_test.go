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

package info

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmscan"
	"m4o.io/osmscan/model"
)

var replicated = time.Date(2014, 3, 24, 21, 55, 2, 0, time.UTC)

func encode(t *testing.T) []byte {
	t.Helper()

	entities := []model.Entity{
		&model.Node{ID: 1, Lat: 51.28554, Lon: -0.511482},
		&model.Node{ID: 2, Lat: 51.69344, Lon: 0.335437},
		&model.Way{ID: 3, NodeIDs: []model.ID{1, 2}},
		&model.Way{ID: 4, NodeIDs: []model.ID{2, 1}},
		&model.Relation{ID: 5},
	}

	var buf bytes.Buffer

	enc, err := osmscan.NewEncoder(&buf,
		osmscan.WithStorePath(t.TempDir()),
		osmscan.WithWritingProgram("Osmium (http://wiki.openstreetmap.org/wiki/Osmium)"),
		osmscan.WithOsmosisReplicationTimestamp(replicated))
	require.NoError(t, err)
	require.NoError(t, enc.EncodeBatch(entities))
	require.NoError(t, enc.Close())

	return buf.Bytes()
}

func TestRunInfo(t *testing.T) {
	data := encode(t)
	bbox := &model.BoundingBox{Left: -0.511482, Right: 0.335437, Top: 51.69344, Bottom: 51.28554}

	for _, extended := range []bool{false, true} {
		info, err := runInfo(context.Background(), bytes.NewReader(data), extended, osmscan.WithNCpus(2))
		require.NoError(t, err)

		assert.True(t, info.BoundingBox.EqualWithin(bbox, model.E6))
		assert.Equal(t, []string{"OsmSchema-V0.6", "DenseNodes"}, info.RequiredFeatures)
		assert.Nil(t, info.OptionalFeatures)
		assert.Equal(t, "Osmium (http://wiki.openstreetmap.org/wiki/Osmium)", info.WritingProgram)
		assert.Equal(t, replicated, info.OsmosisReplicationTimestamp)

		if extended {
			assert.Equal(t, int64(2), info.NodeCount)
			assert.Equal(t, int64(2), info.WayCount)
			assert.Equal(t, int64(1), info.RelationCount)
		} else {
			assert.Zero(t, info.NodeCount)
		}
	}

	_, err := runInfo(context.Background(), bytes.NewReader(data[:3]), false)
	assert.Error(t, err)
}

func header() model.Header {
	return model.Header{
		BoundingBox:                 &model.BoundingBox{Left: -0.511482, Right: 0.335437, Top: 51.69344, Bottom: 51.28554},
		RequiredFeatures:            []string{"OsmSchema-V0.6", "DenseNodes"},
		OptionalFeatures:            []string{"Sort.Type_then_ID"},
		WritingProgram:              "Osmium (http://wiki.openstreetmap.org/wiki/Osmium)",
		Source:                      "planet",
		OsmosisReplicationTimestamp: replicated,
		OsmosisReplicationBaseURL:   "https://planet.openstreetmap.org/replication/minute",
	}
}

func TestRenderJSON(t *testing.T) {
	eh := &extendedHeader{
		Header:        header(),
		NodeCount:     2729006,
		WayCount:      459055,
		RelationCount: 12833,
	}

	var buf bytes.Buffer

	saved := out
	defer func() { out = saved }()

	out = &buf

	require.NoError(t, renderJSON(eh, true))

	info := &extendedHeader{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), info))

	assert.True(t, info.BoundingBox.EqualWithin(eh.BoundingBox, model.E9))
	assert.Equal(t, eh.RequiredFeatures, info.RequiredFeatures)
	assert.Equal(t, eh.OptionalFeatures, info.OptionalFeatures)
	assert.Equal(t, eh.WritingProgram, info.WritingProgram)
	assert.Equal(t, eh.Source, info.Source)
	assert.Equal(t, replicated, info.OsmosisReplicationTimestamp.UTC())
	assert.Equal(t, eh.OsmosisReplicationBaseURL, info.OsmosisReplicationBaseURL)
	assert.Equal(t, int64(2729006), info.NodeCount)
	assert.Equal(t, int64(459055), info.WayCount)
	assert.Equal(t, int64(12833), info.RelationCount)

	buf.Reset()
	require.NoError(t, renderJSON(eh, false))
	assert.NotContains(t, buf.String(), "node_count")
}

func TestRenderText(t *testing.T) {
	eh := &extendedHeader{
		Header:        header(),
		NodeCount:     2729006,
		WayCount:      459055,
		RelationCount: 12833,
	}

	var buf bytes.Buffer

	saved := out
	defer func() { out = saved }()

	out = &buf

	renderTxt(eh, true)

	assert.Equal(t, `BoundingBox: [(51.69344, -0.511482) (51.28554, 0.335437)]
BoundingBoxDMS: [(51° 41' 36.384", -0° 30' 41.3352") (51° 17' 7.944", 0° 20' 7.5732")]
RequiredFeatures: OsmSchema-V0.6, DenseNodes
OptionalFeatures: Sort.Type_then_ID
WritingProgram: Osmium (http://wiki.openstreetmap.org/wiki/Osmium)
Source: planet
OsmosisReplicationTimestamp: 2014-03-24T21:55:02Z
OsmosisReplicationSequenceNumber: 0
OsmosisReplicationBaseURL: https://planet.openstreetmap.org/replication/minute
NodeCount: 2,729,006
WayCount: 459,055
RelationCount: 12,833
`, buf.String())

	buf.Reset()
	renderTxt(&extendedHeader{}, false)
	assert.Equal(t, `BoundingBox: 
BoundingBoxDMS: 
RequiredFeatures: 
OptionalFeatures: 
WritingProgram: 
Source: 
OsmosisReplicationTimestamp: 
OsmosisReplicationSequenceNumber: 0
OsmosisReplicationBaseURL: 
`, buf.String())
}
