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

// Package model contains the entities produced by the OpenStreetMap PBF
// decoder and consumed by sinks and exporters.
package model

//go:generate stringer -type=EntityType

import (
	"time"
)

// UID is the primary key for a user.
type UID int32

// Info represents information common to Node, Way, and Relation entities.
type Info struct {
	Version   int32     `json:"version"`
	UID       UID       `json:"uid"`
	Timestamp time.Time `json:"timestamp"`
	Changeset int64     `json:"changeset"`
	User      string    `json:"user"`
	Visible   bool      `json:"visible"`
}

// Entity is the tagged variant over Node, Way and Relation.  Decoders hand out
// pointers; a type switch on *Node, *Way and *Relation is exhaustive.
type Entity interface {
	isEntity() // prevents extensions

	GetID() ID

	GetTags() map[string]string

	GetInfo() *Info
}

// ID is the primary key of an entity.
type ID int64

// Node represents a specific point on the earth's surface defined by its
// latitude and longitude. Each node comprises at least an id number and a
// pair of coordinates.
type Node struct {
	ID   ID                `json:"id"`
	Lat  Degrees           `json:"lat"`
	Lon  Degrees           `json:"lon"`
	Tags map[string]string `json:"tags"`
	Info *Info             `json:"info,omitempty"`
}

var _ Entity = Node{}

func (n Node) isEntity() {}

func (n Node) GetID() ID {
	return n.ID
}

func (n Node) GetTags() map[string]string {
	return n.Tags
}

func (n Node) GetInfo() *Info {
	return n.Info
}

// Way is an ordered list of between 2 and 2,000 nodes that define a polyline.
// Node ids may repeat, e.g. for closed ways.
type Way struct {
	ID      ID                `json:"id"`
	NodeIDs []ID              `json:"nodes"`
	Tags    map[string]string `json:"tags"`
	Info    *Info             `json:"info,omitempty"`
}

var _ Entity = Way{}

func (w Way) isEntity() {}

func (w Way) GetID() ID {
	return w.ID
}

func (w Way) GetTags() map[string]string {
	return w.Tags
}

func (w Way) GetInfo() *Info {
	return w.Info
}

// EntityType is an enumeration of PBF entity types.
type EntityType int32

const (
	// NODE denotes that the member is a node.
	NODE EntityType = iota

	// WAY denotes that the member is a way.
	WAY

	// RELATION denotes that the member is a relation.
	RELATION
)

// Member is a typed reference from a relation to another entity.
type Member struct {
	ID   ID         `json:"ref"`
	Type EntityType `json:"type"`
	Role string     `json:"role"`
}

// Relation is a multipurpose data structure that documents a relationship
// between two or more data entities (nodes, ways, and/or other relations).
type Relation struct {
	ID      ID                `json:"id"`
	Members []Member          `json:"members"`
	Tags    map[string]string `json:"tags"`
	Info    *Info             `json:"info,omitempty"`
}

var _ Entity = Relation{}

func (r Relation) isEntity() {}

func (r Relation) GetID() ID {
	return r.ID
}

func (r Relation) GetTags() map[string]string {
	return r.Tags
}

func (r Relation) GetInfo() *Info {
	return r.Info
}

// TypeOf returns the EntityType of e.
func TypeOf(e Entity) EntityType {
	switch e.(type) {
	case *Way, Way:
		return WAY
	case *Relation, Relation:
		return RELATION
	default:
		return NODE
	}
}
