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
)

// notUsed is the string at index 0.  Dense nodes use index 0 to terminate a
// node's run of tags, so it never names a key.
const notUsed = ""

// Strings collects the distinct strings of one PrimitiveBlock.
type Strings struct {
	tbl map[string]struct{}
}

// Table is the frozen, sorted string table of one PrimitiveBlock.
type Table struct {
	tbl     map[string]int32
	strings []string
}

func NewStrings() *Strings {
	return &Strings{tbl: make(map[string]struct{})}
}

func (s *Strings) Add(value string) {
	if value == notUsed {
		return
	}

	s.tbl[value] = struct{}{}
}

// CalcTable sorts the collected strings and assigns their indexes.
func (s *Strings) CalcTable() *Table {
	strings := make([]string, 0, len(s.tbl))

	for k := range s.tbl {
		strings = append(strings, k)
	}

	slices.Sort(strings)

	// index 0 is reserved
	strings = slices.Insert(strings, 0, notUsed)

	tbl := make(map[string]int32, len(strings))
	for i, k := range strings {
		tbl[k] = int32(i)
	}

	return &Table{
		tbl:     tbl,
		strings: strings,
	}
}

// IndexOf returns the index of value.  The value must have been added to the
// Strings the table was calculated from.
func (t *Table) IndexOf(value string) int32 {
	index, ok := t.tbl[value]
	if !ok {
		panic(fmt.Sprintf("string %q is not in the table", value))
	}

	return index
}

func (t *Table) AsArray() []string {
	return t.strings
}
