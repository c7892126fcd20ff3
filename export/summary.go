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

package export

import (
	"fmt"
	"io"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"m4o.io/osmscan/handler"
)

const ruleWidth = 50

var (
	doubleRule = strings.Repeat("=", ruleWidth)
	singleRule = strings.Repeat("-", ruleWidth)
)

type summary struct {
	strings.Builder
}

func (s *summary) line(text string) {
	s.WriteString(text)
	s.WriteByte('\n')
}

func (s *summary) count(label string, n int64) {
	fmt.Fprintf(s, "%-22s%s\n", label+":", humanize.Comma(n))
}

func (s *summary) title(title string) {
	s.line(doubleRule)
	s.line(title)
	s.line(doubleRule)
}

// WriteCounts renders the per kind entity counts of a scan.
func WriteCounts(w io.Writer, c handler.Counts) error {
	var s summary

	s.title("OSM data summary")
	s.count("Nodes (points)", c.Nodes)
	s.count("Ways (lines, areas)", c.Ways)
	s.count("Relations", c.Relations)
	s.line(singleRule)
	s.count("Total", c.Total)
	s.line(doubleRule)

	_, err := io.WriteString(w, s.String())

	return err
}

// WriteFilterSummary renders the matched node and way counts of a filter run.
func WriteFilterSummary(w io.Writer, p handler.Predicate, c handler.Counts) error {
	var s summary

	s.title("Tag filter results")

	if p.Value != nil {
		s.line(fmt.Sprintf("Filter: %s=%s", p.Key, *p.Value))
	} else {
		s.line(fmt.Sprintf("Filter: %s (any value)", p.Key))
	}

	s.line(singleRule)
	s.count("Matched nodes", c.Nodes)
	s.count("Matched ways", c.Ways)
	s.line(singleRule)
	s.count("Total", c.Nodes+c.Ways)
	s.line(doubleRule)

	_, err := io.WriteString(w, s.String())

	return err
}
