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
	"fmt"
	"slices"
	"time"

	"golang.org/x/exp/constraints"
	"google.golang.org/protobuf/encoding/protowire"

	"m4o.io/osmscan/model"
)

const (
	DateGranularityMs = 1000
	Granularity       = 100
	LatOffset         = 0
	LonOffset         = 0

	// EntityLimit is the max number of entities in a PrimitiveBlock.
	// Certain programs (e.g. osmosis 0.38) limit the number of entities in
	// each block to 8000 when writing PBF format.
	EntityLimit = 8000
)

// BlockConfig controls the fixed-point layout of encoded blocks.
type BlockConfig struct {
	Granularity     int32
	LatOffset       int64
	LonOffset       int64
	DateGranularity int32

	// PlainNodes writes Node records instead of a DenseNodes group.
	PlainNodes bool
}

// DefaultBlockConfig is the layout written by osmosis and osmium.
var DefaultBlockConfig = BlockConfig{
	Granularity:     Granularity,
	LatOffset:       LatOffset,
	LonOffset:       LonOffset,
	DateGranularity: DateGranularityMs,
}

type blockContext struct {
	cfg      BlockConfig
	table    *Table
	entities []model.Entity
}

func newBlockContext(cfg BlockConfig, entities []model.Entity) *blockContext {
	strings := NewStrings()

	for _, e := range entities {
		extractTagsAndInfo(strings, e)

		if model.TypeOf(e) == model.RELATION {
			extractMemberRoles(strings, asRelation(e))
		}
	}

	return &blockContext{
		cfg:      cfg,
		table:    strings.CalcTable(),
		entities: entities,
	}
}

// EncodeBlock marshals a batch of entities of a single kind into a
// PrimitiveBlock holding one PrimitiveGroup.
func EncodeBlock(cfg BlockConfig, entities []model.Entity) ([]byte, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("cannot encode an empty block")
	}

	kind := model.TypeOf(entities[0])
	for _, e := range entities {
		if model.TypeOf(e) != kind {
			return nil, fmt.Errorf("cannot encode %v with %v in one block", model.TypeOf(e), kind)
		}
	}

	return newBlockContext(cfg, entities).extractPrimitiveBlock(kind), nil
}

func (bc *blockContext) extractPrimitiveBlock(kind model.EntityType) []byte {
	var st []byte
	for _, s := range bc.table.AsArray() {
		st = appendString(st, 1, s)
	}

	var pg []byte

	switch {
	case kind == model.NODE && bc.cfg.PlainNodes:
		pg = bc.extractNodes()
	case kind == model.NODE:
		pg = appendMessage(pg, 2, bc.extractDenseNodes())
	case kind == model.WAY:
		pg = bc.extractWays()
	default:
		pg = bc.extractRelations()
	}

	var b []byte
	b = appendMessage(b, 1, st)
	b = appendMessage(b, 2, pg)
	b = appendVarint(b, 17, uint64(bc.cfg.Granularity))
	b = appendVarint(b, 18, uint64(bc.cfg.DateGranularity))
	b = appendVarint(b, 19, uint64(bc.cfg.LatOffset))
	b = appendVarint(b, 20, uint64(bc.cfg.LonOffset))

	return b
}

func (bc *blockContext) extractNodes() []byte {
	var pg []byte

	for _, e := range bc.entities {
		n := asNode(e)
		keyIDs, valIDs := calcTagIDs(n.Tags, bc.table)

		var b []byte
		b = appendSint64(b, 1, int64(n.ID))
		b = appendPacked(b, 2, keyIDs, unsigned[uint32])
		b = appendPacked(b, 3, valIDs, unsigned[uint32])

		if n.Info != nil {
			b = appendMessage(b, 4, bc.toInfo(n.Info))
		}

		b = appendSint64(b, 8, model.ToCoordinate(bc.cfg.LatOffset, bc.cfg.Granularity, n.Lat))
		b = appendSint64(b, 9, model.ToCoordinate(bc.cfg.LonOffset, bc.cfg.Granularity, n.Lon))

		pg = appendMessage(pg, 1, b)
	}

	return pg
}

func (bc *blockContext) extractDenseNodes() []byte {
	n := len(bc.entities)

	ids := make([]int64, 0, n)
	lats := make([]int64, 0, n)
	lons := make([]int64, 0, n)

	versions := make([]int32, 0, n)
	uids := make([]int32, 0, n)
	ts := make([]int64, 0, n)
	cs := make([]int64, 0, n)
	usids := make([]int32, 0, n)
	visible := make([]bool, 0, n)

	var hasInfo, hidden bool

	keyValIDs := make([]int32, 0)

	for _, e := range bc.entities {
		node := asNode(e)

		ids = append(ids, int64(node.ID))
		lats = append(lats, model.ToCoordinate(bc.cfg.LatOffset, bc.cfg.Granularity, node.Lat))
		lons = append(lons, model.ToCoordinate(bc.cfg.LonOffset, bc.cfg.Granularity, node.Lon))

		info := node.Info
		if info == nil {
			info = &model.Info{Visible: true}
		} else {
			hasInfo = true
		}

		hidden = hidden || !info.Visible

		versions = append(versions, info.Version)
		uids = append(uids, int32(info.UID))
		ts = append(ts, fromTimestamp(bc.cfg.DateGranularity, info.Timestamp))
		cs = append(cs, info.Changeset)
		usids = append(usids, bc.table.IndexOf(info.User))
		visible = append(visible, info.Visible)

		kIDs, vIDs := calcTagIDs(node.Tags, bc.table)
		for i, k := range kIDs {
			keyValIDs = append(keyValIDs, int32(k), int32(vIDs[i]))
		}

		keyValIDs = append(keyValIDs, 0)
	}

	var dn []byte
	dn = appendPacked(dn, 1, calcDeltas(ids), zigzag[int64])

	if hasInfo {
		var di []byte
		di = appendPacked(di, 1, versions, signed[int32])
		di = appendPacked(di, 2, calcDeltas(ts), zigzag[int64])
		di = appendPacked(di, 3, calcDeltas(cs), zigzag[int64])
		di = appendPacked(di, 4, calcDeltas(uids), zigzag[int32])
		di = appendPacked(di, 5, calcDeltas(usids), zigzag[int32])

		if hidden {
			var packed []byte
			for _, v := range visible {
				packed = protowire.AppendVarint(packed, protowire.EncodeBool(v))
			}

			di = appendMessage(di, 6, packed)
		}

		dn = appendMessage(dn, 5, di)
	}

	dn = appendPacked(dn, 8, calcDeltas(lats), zigzag[int64])
	dn = appendPacked(dn, 9, calcDeltas(lons), zigzag[int64])

	// a block without any tags omits keys_vals entirely
	if slices.ContainsFunc(keyValIDs, func(id int32) bool { return id != 0 }) {
		dn = appendPacked(dn, 10, keyValIDs, signed[int32])
	}

	return dn
}

func (bc *blockContext) extractWays() []byte {
	var pg []byte

	for _, e := range bc.entities {
		w := asWay(e)

		refs := make([]int64, len(w.NodeIDs))
		for i, r := range w.NodeIDs {
			refs[i] = int64(r)
		}

		keyIDs, valIDs := calcTagIDs(w.Tags, bc.table)

		var b []byte
		b = appendVarint(b, 1, uint64(w.ID))
		b = appendPacked(b, 2, keyIDs, unsigned[uint32])
		b = appendPacked(b, 3, valIDs, unsigned[uint32])

		if w.Info != nil {
			b = appendMessage(b, 4, bc.toInfo(w.Info))
		}

		b = appendPacked(b, 8, calcDeltas(refs), zigzag[int64])

		pg = appendMessage(pg, 3, b)
	}

	return pg
}

func (bc *blockContext) extractRelations() []byte {
	var pg []byte

	for _, e := range bc.entities {
		r := asRelation(e)
		keyIDs, valIDs := calcTagIDs(r.Tags, bc.table)
		memids := make([]int64, len(r.Members))
		roleids := make([]int32, len(r.Members))
		types := make([]int32, len(r.Members))

		for i, m := range r.Members {
			memids[i] = int64(m.ID)
			roleids[i] = bc.table.IndexOf(m.Role)
			types[i] = int32(m.Type)
		}

		var b []byte
		b = appendVarint(b, 1, uint64(r.ID))
		b = appendPacked(b, 2, keyIDs, unsigned[uint32])
		b = appendPacked(b, 3, valIDs, unsigned[uint32])

		if r.Info != nil {
			b = appendMessage(b, 4, bc.toInfo(r.Info))
		}

		b = appendPacked(b, 8, roleids, signed[int32])
		b = appendPacked(b, 9, calcDeltas(memids), zigzag[int64])
		b = appendPacked(b, 10, types, signed[int32])

		pg = appendMessage(pg, 4, b)
	}

	return pg
}

func (bc *blockContext) toInfo(info *model.Info) []byte {
	var b []byte
	b = appendVarint(b, 1, signed(info.Version))
	b = appendVarint(b, 2, uint64(fromTimestamp(bc.cfg.DateGranularity, info.Timestamp)))
	b = appendVarint(b, 3, uint64(info.Changeset))
	b = appendVarint(b, 4, signed(int32(info.UID)))
	b = appendVarint(b, 5, uint64(bc.table.IndexOf(info.User)))
	b = appendVarint(b, 6, protowire.EncodeBool(info.Visible))

	return b
}

func extractMemberRoles(strings *Strings, r *model.Relation) {
	for _, m := range r.Members {
		strings.Add(m.Role)
	}
}

func extractTagsAndInfo(strings *Strings, e model.Entity) {
	for k, v := range e.GetTags() {
		strings.Add(k)
		strings.Add(v)
	}

	if info := e.GetInfo(); info != nil {
		strings.Add(info.User)
	}
}

// calcDeltas calculates the delta-encoding of the values.
func calcDeltas[T interface {
	constraints.Integer | constraints.Float
}](values []T) []T {
	prev := T(0)
	deltas := make([]T, len(values))

	for i, id := range values {
		deltas[i] = id - prev
		prev = id
	}

	return deltas
}

// calcTagIDs returns the string table indexes of the tags, ordered by key.
func calcTagIDs(tags map[string]string, table *Table) (keyIDs []uint32, valIDs []uint32) {
	keys := make([]string, 0, len(tags))

	for k := range tags {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for _, k := range keys {
		keyIDs = append(keyIDs, uint32(table.IndexOf(k)))
		valIDs = append(valIDs, uint32(table.IndexOf(tags[k])))
	}

	return keyIDs, valIDs
}

// fromTimestamp converts a UTC timestamp of type Time to a timestamp with a
// specific granularity, in units of milliseconds.
func fromTimestamp(granularity int32, timestamp time.Time) int64 {
	millis := timestamp.UnixMilli()

	return millis / int64(granularity)
}

func asNode(e model.Entity) *model.Node {
	if n, ok := e.(*model.Node); ok {
		return n
	}

	n := e.(model.Node) //nolint:forcetypeassert

	return &n
}

func asWay(e model.Entity) *model.Way {
	if w, ok := e.(*model.Way); ok {
		return w
	}

	w := e.(model.Way) //nolint:forcetypeassert

	return &w
}

func asRelation(e model.Entity) *model.Relation {
	if r, ok := e.(*model.Relation); ok {
		return r
	}

	r := e.(model.Relation) //nolint:forcetypeassert

	return &r
}
