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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"m4o.io/osmscan/model"
)

// ErrUnknownField is returned when a record holds a column missing from
// the header.
var ErrUnknownField = errors.New("record field not in header")

// Row is one flat record of a tabular export.
type Row map[string]string

// WriteCSV writes rows to path.  The header is fieldnames or, if none are
// given, the sorted keys of the first row.  Empty data and write failures are
// logged and reported by returning false.
func WriteCSV(path string, rows []Row, fieldnames ...string) bool {
	if len(rows) == 0 {
		slog.Warn("no data, CSV not written", "path", path)

		return false
	}

	if err := writeFile(path, func(w io.Writer) error { return EncodeCSV(w, rows, fieldnames...) }); err != nil {
		slog.Warn("unable to write CSV", "path", path, "error", err)

		return false
	}

	slog.Info("saved CSV", "path", path, "rows", len(rows))

	return true
}

// EncodeCSV writes a header and one line per row to w.  Fields absent from a
// row are left empty.
func EncodeCSV(w io.Writer, rows []Row, fieldnames ...string) error {
	if len(fieldnames) == 0 && len(rows) > 0 {
		fieldnames = slices.Sorted(maps.Keys(rows[0]))
	}

	known := make(map[string]bool, len(fieldnames))
	for _, f := range fieldnames {
		known[f] = true
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(fieldnames); err != nil {
		return err
	}

	record := make([]string, len(fieldnames))

	for i, row := range rows {
		for k := range row {
			if !known[k] {
				return fmt.Errorf("%w: row %d has %q", ErrUnknownField, i, k)
			}
		}

		for j, f := range fieldnames {
			record[j] = row[f]
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// NodeRows flattens nodes into id, lat and lon columns followed by one column
// per tag key.  The returned fieldnames cover every row.
func NodeRows(nodes []model.Node) (rows []Row, fieldnames []string) {
	keys := make(map[string]bool)

	for _, n := range nodes {
		row := Row{
			"id":  strconv.FormatInt(int64(n.ID), 10),
			"lat": n.Lat.Decimal(),
			"lon": n.Lon.Decimal(),
		}

		for k, v := range n.Tags {
			if _, reserved := row[k]; reserved {
				continue
			}

			row[k] = v
			keys[k] = true
		}

		rows = append(rows, row)
	}

	fieldnames = append([]string{"id", "lat", "lon"}, slices.Sorted(maps.Keys(keys))...)

	return rows, fieldnames
}
