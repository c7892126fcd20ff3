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

package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"m4o.io/osmscan"
	"m4o.io/osmscan/cmd/osmscan/cli"
	"m4o.io/osmscan/export"
	"m4o.io/osmscan/handler"
	"m4o.io/osmscan/model"
)

var out io.Writer = os.Stdout

// artifacts names the files written for a filter run.  Empty paths are
// skipped.
type artifacts struct {
	geojson     string
	json        string
	csv         string
	pbf         string
	compression osmscan.BlobCompression
}

func init() {
	cli.RootCmd.AddCommand(filterCmd)

	addFlags(filterCmd.Flags())

	_ = filterCmd.MarkFlagRequired("key")
}

func addFlags(flags *pflag.FlagSet) {
	flags.StringP("key", "k", "", "tag key to match")
	flags.StringP("value", "v", "", "tag value to match; any value matches when absent")
	flags.StringP("dir", "d", "results", "directory of the default GeoJSON file")
	flags.String("geojson", "", "GeoJSON file of the matched nodes (default <dir>/<key>_<value>.geojson)")
	flags.String("json", "", "JSON file of the matched nodes and ways")
	flags.String("csv", "", "CSV file of the matched nodes")
	flags.String("pbf", "", "PBF file of the matched nodes and ways")
	flags.String("compression", osmscan.DefaultBlobCompression.String(), "blob compression of the PBF file")
}

var filterCmd = &cobra.Command{
	Use:   "filter [<OSM file>] --key <key> [--value <value>]",
	Short: "Collect the nodes and ways of an OSM file that carry a tag",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cli.DecoderOptions(cmd)
		if err != nil {
			return err
		}

		p, err := predicate(cmd)
		if err != nil {
			return err
		}

		a, err := outputs(cmd, p)
		if err != nil {
			return err
		}

		in, err := cli.OpenInput(cmd, args)
		if err != nil {
			return err
		}

		sink, err := runFilter(cmd.Context(), in, p, opts...)
		if cerr := in.Close(); err == nil {
			err = cerr
		}

		if err != nil {
			return err
		}

		if err := export.WriteFilterSummary(out, p, sink.Counts()); err != nil {
			return err
		}

		return save(sink, a)
	},
}

// predicate builds the tag predicate.  An explicitly empty --value matches
// the empty string, unlike an absent one.
func predicate(cmd *cobra.Command) (handler.Predicate, error) {
	flags := cmd.Flags()

	key, err := flags.GetString("key")
	if err != nil {
		return handler.Predicate{}, err
	}

	if key == "" {
		return handler.Predicate{}, errors.New("a non empty --key is required")
	}

	if !flags.Changed("value") {
		return handler.MatchKey(key), nil
	}

	value, err := flags.GetString("value")
	if err != nil {
		return handler.Predicate{}, err
	}

	return handler.MatchTag(key, value), nil
}

func outputs(cmd *cobra.Command, p handler.Predicate) (artifacts, error) {
	flags := cmd.Flags()

	var a artifacts

	for name, dst := range map[string]*string{
		"geojson": &a.geojson,
		"json":    &a.json,
		"csv":     &a.csv,
		"pbf":     &a.pbf,
	} {
		v, err := flags.GetString(name)
		if err != nil {
			return a, err
		}

		*dst = v
	}

	if a.geojson == "" {
		dir, err := flags.GetString("dir")
		if err != nil {
			return a, err
		}

		a.geojson = export.GeoJSONFileName(dir, p)
	}

	c, err := flags.GetString("compression")
	if err != nil {
		return a, err
	}

	if a.compression, err = osmscan.ParseCompression(c); err != nil {
		return a, err
	}

	return a, nil
}

func runFilter(ctx context.Context, in io.Reader, p handler.Predicate, opts ...osmscan.DecoderOption) (*handler.TagFilterSink, error) {
	sink := handler.NewTagFilterSink(p)

	if _, err := osmscan.Scan(ctx, in, sink, opts...); err != nil {
		return nil, err
	}

	return sink, nil
}

// save writes the requested artifacts.  The GeoJSON, JSON and CSV writers log
// their own failures; only the PBF export is fatal.
func save(sink *handler.TagFilterSink, a artifacts) error {
	acc := sink.Matches()

	if a.geojson != "" {
		export.SaveGeoJSON(a.geojson, acc)
	}

	if a.json != "" {
		export.SaveJSON(a.json, sink.Results())
	}

	if a.csv != "" {
		rows, fieldnames := export.NodeRows(acc.Nodes)
		export.WriteCSV(a.csv, rows, fieldnames...)
	}

	if a.pbf != "" {
		if err := savePBF(a.pbf, acc, osmscan.WithCompression(a.compression)); err != nil {
			return fmt.Errorf("unable to write %s: %w", a.pbf, err)
		}

		slog.Info("saved PBF", "path", a.pbf, "nodes", len(acc.Nodes), "ways", len(acc.Ways))
	}

	return nil
}

// savePBF re-encodes the matched nodes and ways, nodes first.
func savePBF(path string, acc handler.Accumulation, opts ...osmscan.EncoderOption) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
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

	opts = append(opts, osmscan.WithStorePath(filepath.Dir(path)))

	enc, err := osmscan.NewEncoder(f, opts...)
	if err != nil {
		return err
	}

	entities := make([]model.Entity, 0, len(acc.Nodes)+len(acc.Ways))
	for _, n := range acc.Nodes {
		entities = append(entities, n)
	}

	for _, w := range acc.Ways {
		entities = append(entities, w)
	}

	if err := enc.EncodeBatch(entities); err != nil {
		enc.Close()

		return err
	}

	return enc.Close()
}
