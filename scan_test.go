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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmscan/export"
	"m4o.io/osmscan/handler"
	"m4o.io/osmscan/model"
)

func writePBF(t *testing.T, entities []model.Entity, opts ...EncoderOption) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.osm.pbf")
	require.NoError(t, os.WriteFile(path, encodePBF(t, entities, opts...), 0o600))

	return path
}

func TestScanRestaurants(t *testing.T) {
	path := writePBF(t, []model.Entity{
		&model.Node{ID: 1, Lat: 35.0, Lon: 139.0, Tags: map[string]string{"amenity": "restaurant"}},
		&model.Node{ID: 2, Lat: 35.1, Lon: 139.1, Tags: map[string]string{}},
	})

	sink, err := FilterFile(context.Background(), path, handler.MatchTag("amenity", "restaurant"))
	require.NoError(t, err)

	acc := sink.Matches()
	assert.Equal(t, []model.Node{
		{ID: 1, Lat: 35.0, Lon: 139.0, Tags: map[string]string{"amenity": "restaurant"}},
	}, acc.Nodes)
	assert.Empty(t, acc.Ways)

	fc := export.FeatureCollection(acc)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, orb.Point{139.0, 35.0}, fc.Features[0].Geometry)
	assert.Equal(t, int64(1), fc.Features[0].ID)
}

func TestScanExcludesWayNodes(t *testing.T) {
	path := writePBF(t, []model.Entity{
		&model.Node{ID: 1, Lat: 1, Lon: 1, Tags: map[string]string{"shop": "bakery"}},
		&model.Node{ID: 2, Lat: 2, Lon: 2, Tags: map[string]string{"shop": "bakery"}},
		&model.Node{ID: 3, Lat: 3, Lon: 3, Tags: map[string]string{"shop": "bakery"}},
		&model.Node{ID: 4, Lat: 4, Lon: 4, Tags: map[string]string{"shop": "bakery"}},
		&model.Way{ID: 9, NodeIDs: []model.ID{1, 2, 3}, Tags: map[string]string{"shop": "mall"}},
	})

	sink, err := FilterFile(context.Background(), path, handler.MatchKey("shop"))
	require.NoError(t, err)
	assert.Equal(t, handler.Counts{Nodes: 4, Ways: 1, Total: 5}, sink.Counts())

	fc := export.FeatureCollection(sink.Matches())
	require.Len(t, fc.Features, 1)
	assert.Equal(t, int64(4), fc.Features[0].ID)
}

func TestCountFile(t *testing.T) {
	counts, err := CountFile(context.Background(), writePBF(t, sampleEntities()), WithNCpus(1))
	require.NoError(t, err)
	assert.Equal(t, handler.Counts{Nodes: 3, Ways: 2, Relations: 1, Total: 6}, counts)
}

func TestScanRelationsAreNotFiltered(t *testing.T) {
	sink := handler.NewTagFilterSink(handler.MatchTag("type", "multipolygon"))

	_, err := Scan(context.Background(), bytes.NewReader(encodePBF(t, sampleEntities())), sink)
	require.NoError(t, err)
	assert.Equal(t, handler.Counts{}, sink.Counts())
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := handler.NewCountingSink()

	hdr, err := Scan(ctx, bytes.NewReader(encodePBF(t, sampleEntities())), sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "osmscan", hdr.WritingProgram)
	assert.Equal(t, handler.Counts{}, sink.Counts())
}

func TestScanFileMissing(t *testing.T) {
	_, err := FilterFile(context.Background(), filepath.Join(t.TempDir(), "missing.pbf"), handler.MatchKey("a"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
