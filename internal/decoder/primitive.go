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
	"fmt"

	"m4o.io/osmscan/internal/wire"
)

const (
	defaultGranularity     = 100
	defaultDateGranularity = 1000
)

// primitiveBlock is a decoded PrimitiveBlock whose values are still delta
// encoded and reference the string table by index.
type primitiveBlock struct {
	strings         []string
	granularity     int32
	latOffset       int64
	lonOffset       int64
	dateGranularity int32
	groups          []primitiveGroup
}

// primitiveGroup holds at most one kind of entity.
type primitiveGroup struct {
	nodes     []rawNode
	dense     *denseNodes
	ways      []rawWay
	relations []rawRelation
}

type rawInfo struct {
	version   int32
	timestamp int64
	changeset int64
	uid       int32
	userSid   uint32
	visible   *bool
}

type rawNode struct {
	id   int64
	keys []uint32
	vals []uint32
	info *rawInfo
	lat  int64
	lon  int64
}

type denseNodes struct {
	ids      []int64
	lats     []int64
	lons     []int64
	keysVals []int32
	info     *denseInfo
}

type denseInfo struct {
	versions   []int32
	timestamps []int64
	changesets []int64
	uids       []int32
	userSids   []int32
	visible    []bool
}

type rawWay struct {
	id   int64
	keys []uint32
	vals []uint32
	info *rawInfo
	refs []int64
}

type rawRelation struct {
	id     int64
	keys   []uint32
	vals   []uint32
	info   *rawInfo
	roles  []int32
	memids []int64
	types  []int32
}

// decodePrimitiveBlock decodes the wire format of one OSMData payload.
func decodePrimitiveBlock(buf []byte) (*primitiveBlock, error) {
	blk := &primitiveBlock{
		granularity:     defaultGranularity,
		dateGranularity: defaultDateGranularity,
	}

	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			strings, err := decodeStringTable(r.Bytes())
			if err != nil {
				return nil, fmt.Errorf("unable to decode string table: %w", err)
			}

			blk.strings = strings
		case 2:
			pg, err := decodePrimitiveGroup(r.Bytes())
			if err != nil {
				return nil, err
			}

			blk.groups = append(blk.groups, pg)
		case 17:
			blk.granularity = r.Int32()
		case 18:
			blk.dateGranularity = r.Int32()
		case 19:
			blk.latOffset = r.Int64()
		case 20:
			blk.lonOffset = r.Int64()
		default:
			r.Skip()
		}
	}

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("unable to decode primitive block: %w", err)
	}

	return blk, nil
}

func decodeStringTable(buf []byte) ([]string, error) {
	var strings []string

	r := wire.NewReader(buf)
	for r.Next() {
		if r.Field() == 1 {
			strings = append(strings, r.Text())
		} else {
			r.Skip()
		}
	}

	return strings, r.Err()
}

func decodePrimitiveGroup(buf []byte) (primitiveGroup, error) {
	var pg primitiveGroup

	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			n, err := decodeNode(r.Bytes())
			if err != nil {
				return pg, fmt.Errorf("unable to decode node: %w", err)
			}

			pg.nodes = append(pg.nodes, n)
		case 2:
			dn, err := decodeDenseNodes(r.Bytes())
			if err != nil {
				return pg, fmt.Errorf("unable to decode dense nodes: %w", err)
			}

			pg.dense = dn
		case 3:
			w, err := decodeWay(r.Bytes())
			if err != nil {
				return pg, fmt.Errorf("unable to decode way: %w", err)
			}

			pg.ways = append(pg.ways, w)
		case 4:
			rel, err := decodeRelation(r.Bytes())
			if err != nil {
				return pg, fmt.Errorf("unable to decode relation: %w", err)
			}

			pg.relations = append(pg.relations, rel)
		default:
			// changesets are not entities
			r.Skip()
		}
	}

	if err := r.Err(); err != nil {
		return pg, fmt.Errorf("unable to decode primitive group: %w", err)
	}

	if kinds := pg.kinds(); len(kinds) > 1 {
		return pg, &MixedGroupError{Kinds: kinds}
	}

	return pg, nil
}

// kinds lists the entity kinds present in the group.
func (pg primitiveGroup) kinds() []string {
	var kinds []string

	if len(pg.nodes) > 0 {
		kinds = append(kinds, "nodes")
	}

	if pg.dense != nil {
		kinds = append(kinds, "dense nodes")
	}

	if len(pg.ways) > 0 {
		kinds = append(kinds, "ways")
	}

	if len(pg.relations) > 0 {
		kinds = append(kinds, "relations")
	}

	return kinds
}

func decodeNode(buf []byte) (n rawNode, err error) {
	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			n.id = r.Sint64()
		case 2:
			n.keys = r.Uint32s(n.keys)
		case 3:
			n.vals = r.Uint32s(n.vals)
		case 4:
			if n.info, err = decodeInfo(r.Bytes()); err != nil {
				return n, err
			}
		case 8:
			n.lat = r.Sint64()
		case 9:
			n.lon = r.Sint64()
		default:
			r.Skip()
		}
	}

	return n, r.Err()
}

func decodeDenseNodes(buf []byte) (*denseNodes, error) {
	dn := &denseNodes{}

	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			dn.ids = r.Sint64s(dn.ids)
		case 5:
			info, err := decodeDenseInfo(r.Bytes())
			if err != nil {
				return nil, err
			}

			dn.info = info
		case 8:
			dn.lats = r.Sint64s(dn.lats)
		case 9:
			dn.lons = r.Sint64s(dn.lons)
		case 10:
			dn.keysVals = r.Int32s(dn.keysVals)
		default:
			r.Skip()
		}
	}

	if err := r.Err(); err != nil {
		return nil, err
	}

	return dn, nil
}

func decodeDenseInfo(buf []byte) (*denseInfo, error) {
	di := &denseInfo{}

	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			di.versions = r.Int32s(di.versions)
		case 2:
			di.timestamps = r.Sint64s(di.timestamps)
		case 3:
			di.changesets = r.Sint64s(di.changesets)
		case 4:
			di.uids = r.Sint32s(di.uids)
		case 5:
			di.userSids = r.Sint32s(di.userSids)
		case 6:
			di.visible = r.Bools(di.visible)
		default:
			r.Skip()
		}
	}

	if err := r.Err(); err != nil {
		return nil, err
	}

	return di, nil
}

func decodeInfo(buf []byte) (*rawInfo, error) {
	info := &rawInfo{}

	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			info.version = r.Int32()
		case 2:
			info.timestamp = r.Int64()
		case 3:
			info.changeset = r.Int64()
		case 4:
			info.uid = r.Int32()
		case 5:
			info.userSid = r.Uint32()
		case 6:
			visible := r.Bool()
			info.visible = &visible
		default:
			r.Skip()
		}
	}

	if err := r.Err(); err != nil {
		return nil, err
	}

	return info, nil
}

func decodeWay(buf []byte) (w rawWay, err error) {
	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			w.id = r.Int64()
		case 2:
			w.keys = r.Uint32s(w.keys)
		case 3:
			w.vals = r.Uint32s(w.vals)
		case 4:
			if w.info, err = decodeInfo(r.Bytes()); err != nil {
				return w, err
			}
		case 8:
			w.refs = r.Sint64s(w.refs)
		default:
			r.Skip()
		}
	}

	return w, r.Err()
}

func decodeRelation(buf []byte) (rel rawRelation, err error) {
	r := wire.NewReader(buf)
	for r.Next() {
		switch r.Field() {
		case 1:
			rel.id = r.Int64()
		case 2:
			rel.keys = r.Uint32s(rel.keys)
		case 3:
			rel.vals = r.Uint32s(rel.vals)
		case 4:
			if rel.info, err = decodeInfo(r.Bytes()); err != nil {
				return rel, err
			}
		case 8:
			rel.roles = r.Int32s(rel.roles)
		case 9:
			rel.memids = r.Sint64s(rel.memids)
		case 10:
			rel.types = r.Int32s(rel.types)
		default:
			r.Skip()
		}
	}

	return rel, r.Err()
}
