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

package handler

import (
	"maps"
	"slices"

	"m4o.io/osmscan/model"
)

// Accumulation holds the matched nodes and ways in the order they were
// observed.
type Accumulation struct {
	Nodes []model.Node `json:"nodes"`
	Ways  []model.Way  `json:"ways"`
}

// Results is the document describing one filter run.
type Results struct {
	Filter Predicate    `json:"filter"`
	Nodes  []model.Node `json:"nodes"`
	Ways   []model.Way  `json:"ways"`
	Counts Counts       `json:"counts"`
}

// TagFilterSink accumulates snapshots of the nodes and ways whose tags match
// its predicate.  Relations are never matched.
type TagFilterSink struct {
	predicate Predicate
	acc       Accumulation
	counts    Counts
}

var _ Sink = (*TagFilterSink)(nil)

// NewTagFilterSink creates a filtering sink for p.
func NewTagFilterSink(p Predicate) *TagFilterSink {
	return &TagFilterSink{predicate: p}
}

// Predicate returns the filter the sink was created with.
func (s *TagFilterSink) Predicate() Predicate {
	return s.predicate
}

func (s *TagFilterSink) ObserveNode(n *model.Node) {
	if !s.predicate.Matches(n.Tags) {
		return
	}

	s.acc.Nodes = append(s.acc.Nodes, model.Node{
		ID:   n.ID,
		Lat:  n.Lat,
		Lon:  n.Lon,
		Tags: cloneTags(n.Tags),
	})
	s.counts.add(model.NODE)
}

func (s *TagFilterSink) ObserveWay(w *model.Way) {
	if !s.predicate.Matches(w.Tags) {
		return
	}

	s.acc.Ways = append(s.acc.Ways, model.Way{
		ID:      w.ID,
		NodeIDs: slices.Clone(w.NodeIDs),
		Tags:    cloneTags(w.Tags),
	})
	s.counts.add(model.WAY)
}

func (s *TagFilterSink) ObserveRelation(*model.Relation) {}

// Counts reports the number of matched nodes and ways.
func (s *TagFilterSink) Counts() Counts {
	return s.counts
}

// Matches returns the accumulated entities.  The sink must not be fed
// afterwards.
func (s *TagFilterSink) Matches() Accumulation {
	return s.acc
}

// Results returns the filter, the matches and their counts as one document.
func (s *TagFilterSink) Results() Results {
	return Results{
		Filter: s.predicate,
		Nodes:  s.acc.Nodes,
		Ways:   s.acc.Ways,
		Counts: s.counts,
	}
}

func cloneTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}

	return maps.Clone(tags)
}
