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

package count

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"m4o.io/osmscan"
	"m4o.io/osmscan/cmd/osmscan/cli"
	"m4o.io/osmscan/export"
	"m4o.io/osmscan/handler"
)

var out io.Writer = os.Stdout

func init() {
	cli.RootCmd.AddCommand(countCmd)

	countCmd.Flags().BoolP("json", "j", false, "format counts in JSON")
}

var countCmd = &cobra.Command{
	Use:   "count [<OSM file>]",
	Short: "Count the nodes, ways and relations of an OSM file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cli.DecoderOptions(cmd)
		if err != nil {
			return err
		}

		jsonfmt, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}

		in, err := cli.OpenInput(cmd, args)
		if err != nil {
			return err
		}

		counts, err := runCount(cmd.Context(), in, opts...)
		if cerr := in.Close(); err == nil {
			err = cerr
		}

		if err != nil {
			return err
		}

		if jsonfmt {
			return export.WriteJSON(out, counts)
		}

		return export.WriteCounts(out, counts)
	},
}

func runCount(ctx context.Context, in io.Reader, opts ...osmscan.DecoderOption) (handler.Counts, error) {
	sink := handler.NewCountingSink()

	if _, err := osmscan.Scan(ctx, in, sink, opts...); err != nil {
		return handler.Counts{}, err
	}

	return sink.Counts(), nil
}
