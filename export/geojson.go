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

// Package export turns accumulated scan results into files and console
// summaries.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"m4o.io/osmscan/handler"
)

// FeatureCollection builds one Point feature per accumulated node, in
// accumulation order, skipping nodes that are referenced by an accumulated
// way.
func FeatureCollection(acc handler.Accumulation) *geojson.FeatureCollection {
	inWays := roaring64.New()

	for _, w := range acc.Ways {
		for _, id := range w.NodeIDs {
			inWays.Add(uint64(id))
		}
	}

	fc := geojson.NewFeatureCollection()

	for _, n := range acc.Nodes {
		if inWays.Contains(uint64(n.ID)) {
			continue
		}

		f := geojson.NewFeature(orb.Point{float64(n.Lon), float64(n.Lat)})
		f.ID = int64(n.ID)

		for k, v := range n.Tags {
			f.Properties[k] = v
		}

		fc.Append(f)
	}

	return fc
}

// WriteJSON writes v as JSON indented by two spaces.  Non-ASCII text is
// written as is.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

type featureDoc struct {
	ID         any               `json:"id,omitempty"`
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

type featureCollectionDoc struct {
	Type     string       `json:"type"`
	Features []featureDoc `json:"features"`
}

// WriteGeoJSON writes fc to w.  Features without properties carry an empty
// properties object, and property values are written without HTML escaping.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	doc := featureCollectionDoc{
		Type:     "FeatureCollection",
		Features: make([]featureDoc, 0, len(fc.Features)),
	}

	for _, f := range fc.Features {
		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}

		doc.Features = append(doc.Features, featureDoc{
			ID:         f.ID,
			Type:       "Feature",
			Geometry:   geojson.NewGeometry(f.Geometry),
			Properties: props,
		})
	}

	return WriteJSON(w, doc)
}

// SaveGeoJSON writes the feature collection of acc to path.  Nothing is
// written when no nodes were matched.  Failures are logged and reported by
// returning false.
func SaveGeoJSON(path string, acc handler.Accumulation) bool {
	if len(acc.Nodes) == 0 {
		slog.Warn("no matching nodes, GeoJSON not written", "path", path)

		return false
	}

	fc := FeatureCollection(acc)

	if err := writeFile(path, func(w io.Writer) error { return WriteGeoJSON(w, fc) }); err != nil {
		slog.Warn("unable to write GeoJSON", "path", path, "error", err)

		return false
	}

	slog.Info("saved GeoJSON", "path", path, "features", len(fc.Features))

	return true
}

// SaveJSON writes v to path.  Failures are logged and reported by returning
// false.
func SaveJSON(path string, v any) bool {
	if err := writeFile(path, func(w io.Writer) error { return WriteJSON(w, v) }); err != nil {
		slog.Warn("unable to write JSON", "path", path, "error", err)

		return false
	}

	slog.Info("saved JSON", "path", path)

	return true
}

// GeoJSONFileName names the GeoJSON file of a filter run, e.g.
// results/amenity_restaurant.geojson.
func GeoJSONFileName(dir string, p handler.Predicate) string {
	value := "any"
	if p.Value != nil {
		value = *p.Value
	}

	return filepath.Join(dir, fmt.Sprintf("%s_%s.geojson", p.Key, value))
}

// writeFile creates path, and any missing parent directories, and fills it
// with fn.
func writeFile(path string, fn func(w io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return fn(f)
}
