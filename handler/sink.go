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

// Package handler holds the entity sinks that a scan feeds: a counting sink
// and a tag filter that accumulates matching nodes and ways.
package handler

import (
	"m4o.io/osmscan/model"
)

// Sink observes every entity of a scan exactly once, in stream order.
type Sink interface {
	ObserveNode(n *model.Node)
	ObserveWay(w *model.Way)
	ObserveRelation(r *model.Relation)

	// Counts reports what the sink has accumulated so far.
	Counts() Counts
}

// Observe dispatches e to the sink method for its kind.
func Observe(s Sink, e model.Entity) {
	switch v := e.(type) {
	case *model.Node:
		s.ObserveNode(v)
	case model.Node:
		s.ObserveNode(&v)
	case *model.Way:
		s.ObserveWay(v)
	case model.Way:
		s.ObserveWay(&v)
	case *model.Relation:
		s.ObserveRelation(v)
	case model.Relation:
		s.ObserveRelation(&v)
	}
}

// Counts holds per kind entity counts.  Total is always the sum of the
// other three.
type Counts struct {
	Nodes     int64 `json:"nodes"`
	Ways      int64 `json:"ways"`
	Relations int64 `json:"relations"`
	Total     int64 `json:"total"`
}

func (c *Counts) add(t model.EntityType) {
	switch t {
	case model.NODE:
		c.Nodes++
	case model.WAY:
		c.Ways++
	case model.RELATION:
		c.Relations++
	}

	c.Total++
}

// CountingSink counts every entity it observes.
type CountingSink struct {
	counts Counts
}

var _ Sink = (*CountingSink)(nil)

// NewCountingSink creates a sink with zero counts.
func NewCountingSink() *CountingSink {
	return &CountingSink{}
}

func (s *CountingSink) ObserveNode(*model.Node) { s.counts.add(model.NODE) }

func (s *CountingSink) ObserveWay(*model.Way) { s.counts.add(model.WAY) }

func (s *CountingSink) ObserveRelation(*model.Relation) { s.counts.add(model.RELATION) }

func (s *CountingSink) Counts() Counts {
	return s.counts
}
