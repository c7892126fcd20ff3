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
	"time"

	"m4o.io/osmscan/model"
)

// parsePrimitiveBlock decodes one OSMData payload into entities with
// resolved strings and absolute ids and coordinates, in block order.
func parsePrimitiveBlock(buf []byte) ([]model.Entity, error) {
	blk, err := decodePrimitiveBlock(buf)
	if err != nil {
		return nil, err
	}

	c := newBlockContext(blk)

	entities := make([]model.Entity, 0)

	for _, pg := range blk.groups {
		var decoded []model.Entity

		switch {
		case pg.dense != nil:
			decoded, err = c.decodeDenseNodes(pg.dense)
		case len(pg.nodes) > 0:
			decoded, err = c.decodeNodes(pg.nodes)
		case len(pg.ways) > 0:
			decoded, err = c.decodeWays(pg.ways)
		case len(pg.relations) > 0:
			decoded, err = c.decodeRelations(pg.relations)
		}

		if err != nil {
			return nil, err
		}

		entities = append(entities, decoded...)
	}

	return entities, nil
}

type blockContext struct {
	strings         []string
	granularity     int32
	latOffset       int64
	lonOffset       int64
	dateGranularity int32
}

func newBlockContext(blk *primitiveBlock) *blockContext {
	return &blockContext{
		strings:         blk.strings,
		granularity:     blk.granularity,
		latOffset:       blk.latOffset,
		lonOffset:       blk.lonOffset,
		dateGranularity: blk.dateGranularity,
	}
}

// str resolves a string table index.
func (c *blockContext) str(i int64) (string, error) {
	if i < 0 || i >= int64(len(c.strings)) {
		return "", fmt.Errorf("%w: string index %d out of range [0, %d)", ErrMalformedBlock, i, len(c.strings))
	}

	return c.strings[i], nil
}

func (c *blockContext) decodeNodes(nodes []rawNode) ([]model.Entity, error) {
	entities := make([]model.Entity, len(nodes))

	for i, node := range nodes {
		tags, err := c.decodeTags(node.keys, node.vals)
		if err != nil {
			return nil, err
		}

		info, err := c.decodeInfo(node.info)
		if err != nil {
			return nil, err
		}

		entities[i] = &model.Node{
			ID:   model.ID(node.id),
			Tags: tags,
			Info: info,
			Lat:  model.ToDegrees(c.latOffset, c.granularity, node.lat),
			Lon:  model.ToDegrees(c.lonOffset, c.granularity, node.lon),
		}
	}

	return entities, nil
}

func (c *blockContext) decodeDenseNodes(nodes *denseNodes) ([]model.Entity, error) {
	ids := nodes.ids
	if len(nodes.lats) != len(ids) || len(nodes.lons) != len(ids) {
		return nil, fmt.Errorf("%w: dense nodes have %d ids, %d lats and %d lons",
			ErrMalformedBlock, len(ids), len(nodes.lats), len(nodes.lons))
	}

	dic, err := c.newDenseInfoContext(nodes.info, len(ids))
	if err != nil {
		return nil, err
	}

	tic := c.newTagsContext(nodes.keysVals)
	entities := make([]model.Entity, len(ids))

	var id, lat, lon int64
	for i := range ids {
		id += ids[i]
		lat += nodes.lats[i]
		lon += nodes.lons[i]

		tags, err := tic.decodeTags()
		if err != nil {
			return nil, err
		}

		info, err := dic.decodeInfo(i)
		if err != nil {
			return nil, err
		}

		entities[i] = &model.Node{
			ID:   model.ID(id),
			Tags: tags,
			Info: info,
			Lat:  model.ToDegrees(c.latOffset, c.granularity, lat),
			Lon:  model.ToDegrees(c.lonOffset, c.granularity, lon),
		}
	}

	return entities, nil
}

func (c *blockContext) decodeWays(ways []rawWay) ([]model.Entity, error) {
	entities := make([]model.Entity, len(ways))

	for i, way := range ways {
		nodeIDs := make([]model.ID, len(way.refs))

		var nodeID int64

		for j, delta := range way.refs {
			nodeID = delta + nodeID
			nodeIDs[j] = model.ID(nodeID)
		}

		tags, err := c.decodeTags(way.keys, way.vals)
		if err != nil {
			return nil, err
		}

		info, err := c.decodeInfo(way.info)
		if err != nil {
			return nil, err
		}

		entities[i] = &model.Way{
			ID:      model.ID(way.id),
			Tags:    tags,
			NodeIDs: nodeIDs,
			Info:    info,
		}
	}

	return entities, nil
}

func (c *blockContext) decodeRelations(relations []rawRelation) ([]model.Entity, error) {
	entities := make([]model.Entity, len(relations))

	for i, relation := range relations {
		members, err := c.decodeMembers(relation)
		if err != nil {
			return nil, err
		}

		tags, err := c.decodeTags(relation.keys, relation.vals)
		if err != nil {
			return nil, err
		}

		info, err := c.decodeInfo(relation.info)
		if err != nil {
			return nil, err
		}

		entities[i] = &model.Relation{
			ID:      model.ID(relation.id),
			Tags:    tags,
			Info:    info,
			Members: members,
		}
	}

	return entities, nil
}

func (c *blockContext) decodeMembers(relation rawRelation) ([]model.Member, error) {
	memids := relation.memids
	if len(relation.types) != len(memids) || len(relation.roles) != len(memids) {
		return nil, fmt.Errorf("%w: relation %d has %d members, %d types and %d roles",
			ErrMalformedBlock, relation.id, len(memids), len(relation.types), len(relation.roles))
	}

	members := make([]model.Member, len(memids))

	var memid int64

	for i := range memids {
		memid = memids[i] + memid

		mt, err := decodeMemberType(relation.types[i])
		if err != nil {
			return nil, err
		}

		role, err := c.str(int64(relation.roles[i]))
		if err != nil {
			return nil, err
		}

		members[i] = model.Member{
			ID:   model.ID(memid),
			Type: mt,
			Role: role,
		}
	}

	return members, nil
}

func (c *blockContext) decodeTags(keyIDs, valIDs []uint32) (map[string]string, error) {
	if len(keyIDs) != len(valIDs) {
		return nil, fmt.Errorf("%w: %d keys but %d values", ErrMalformedBlock, len(keyIDs), len(valIDs))
	}

	tags := make(map[string]string, len(keyIDs))

	for i, keyID := range keyIDs {
		k, err := c.str(int64(keyID))
		if err != nil {
			return nil, err
		}

		v, err := c.str(int64(valIDs[i]))
		if err != nil {
			return nil, err
		}

		tags[k] = v
	}

	return tags, nil
}

func (c *blockContext) decodeInfo(info *rawInfo) (*model.Info, error) {
	if info == nil {
		return nil, nil //nolint:nilnil
	}

	user, err := c.str(int64(info.userSid))
	if err != nil {
		return nil, err
	}

	i := &model.Info{
		Version:   info.version,
		Timestamp: toTimestamp(c.dateGranularity, info.timestamp),
		Changeset: info.changeset,
		UID:       model.UID(info.uid),
		User:      user,
		Visible:   true,
	}

	if info.visible != nil {
		i.Visible = *info.visible
	}

	return i, nil
}

func (c *blockContext) newDenseInfoContext(di *denseInfo, n int) (*denseInfoContext, error) {
	dic := &denseInfoContext{
		dateGranularity: c.dateGranularity,
		block:           c,
	}

	if di == nil {
		return dic, nil
	}

	for name, l := range map[string]int{
		"versions":   len(di.versions),
		"timestamps": len(di.timestamps),
		"changesets": len(di.changesets),
		"uids":       len(di.uids),
		"user sids":  len(di.userSids),
		"visible":    len(di.visible),
	} {
		if l != 0 && l != n {
			return nil, fmt.Errorf("%w: dense info has %d %s for %d nodes", ErrMalformedBlock, l, name, n)
		}
	}

	dic.info = di

	return dic, nil
}

// denseInfoContext accumulates the delta coded fields of DenseInfo.
type denseInfoContext struct {
	version   int32
	timestamp int64
	changeset int64
	uid       int32
	userSid   int32

	dateGranularity int32
	block           *blockContext
	info            *denseInfo
}

func (dic *denseInfoContext) decodeInfo(i int) (*model.Info, error) {
	di := dic.info
	if di == nil {
		return nil, nil //nolint:nilnil
	}

	// version is not delta coded
	if len(di.versions) > 0 {
		dic.version = di.versions[i]
	}

	if len(di.timestamps) > 0 {
		dic.timestamp += di.timestamps[i]
	}

	if len(di.changesets) > 0 {
		dic.changeset += di.changesets[i]
	}

	if len(di.uids) > 0 {
		dic.uid += di.uids[i]
	}

	if len(di.userSids) > 0 {
		dic.userSid += di.userSids[i]
	}

	user, err := dic.block.str(int64(dic.userSid))
	if err != nil {
		return nil, err
	}

	info := &model.Info{
		Version:   dic.version,
		UID:       model.UID(dic.uid),
		Timestamp: toTimestamp(dic.dateGranularity, dic.timestamp),
		Changeset: dic.changeset,
		User:      user,
		Visible:   true,
	}

	if len(di.visible) > 0 {
		info.Visible = di.visible[i]
	}

	return info, nil
}

type tagsContext struct {
	block   *blockContext
	i       int
	keyVals []int32
}

func (c *blockContext) newTagsContext(keyVals []int32) *tagsContext {
	tc := &tagsContext{block: c}

	if len(keyVals) != 0 {
		tc.keyVals = keyVals
	}

	return tc
}

// decodeTags reads the next run of key/value indexes, terminated by 0.
func (tic *tagsContext) decodeTags() (map[string]string, error) {
	tags := make(map[string]string)

	if tic.keyVals == nil {
		return tags, nil
	}

	i := tic.i

	for {
		if i >= len(tic.keyVals) {
			return nil, fmt.Errorf("%w: unterminated dense keys_vals", ErrMalformedBlock)
		}

		if tic.keyVals[i] == 0 {
			break
		}

		if i+1 >= len(tic.keyVals) {
			return nil, fmt.Errorf("%w: dense key without value", ErrMalformedBlock)
		}

		k, err := tic.block.str(int64(tic.keyVals[i]))
		if err != nil {
			return nil, err
		}

		v, err := tic.block.str(int64(tic.keyVals[i+1]))
		if err != nil {
			return nil, err
		}

		tags[k] = v
		i += 2
	}

	tic.i = i + 1

	return tags, nil
}

// decodeMemberType converts a Relation.MemberType to an EntityType.
func decodeMemberType(mt int32) (model.EntityType, error) {
	switch model.EntityType(mt) {
	case model.NODE:
		return model.NODE, nil
	case model.WAY:
		return model.WAY, nil
	case model.RELATION:
		return model.RELATION, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized member type %d", ErrMalformedBlock, mt)
	}
}

// toTimestamp converts a timestamp with a specific granularity, in units of
// milliseconds, to a UTC timestamp of type Time.
func toTimestamp(granularity int32, timestamp int64) time.Time {
	return time.UnixMilli(timestamp * int64(granularity)).UTC()
}
