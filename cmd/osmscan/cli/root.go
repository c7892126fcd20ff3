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

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"m4o.io/osmscan"
)

// RootCmd is the osmscan command that the sub commands attach themselves to.
var RootCmd = &cobra.Command{
	Use:   "osmscan",
	Short: "Scan, filter and export OpenStreetMap PBF files",
	Long: `osmscan streams the nodes, ways and relations of an OpenStreetMap PBF
file through counting and tag filtering sinks and exports the results.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

var input *os.File

func init() {
	flags := RootCmd.PersistentFlags()
	flags.Uint16P("cpu", "c", osmscan.DefaultNCpu(), "number of CPUs to use for scanning")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("no-progress", false, "do not show a progress bar while reading")
	flags.VarP(NewReaderValue(os.Stdin, &input, "file"), "input", "i", "OSM PBF file to read (default stdin)")
}

// Execute runs the root command until it completes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	s, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}

	level, err := ParseLevel(s)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return nil
}

// ParseLevel converts a level name such as "warn" into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}

	return level, nil
}

// DecoderOptions returns the decoder options selected by the global flags.
func DecoderOptions(cmd *cobra.Command) ([]osmscan.DecoderOption, error) {
	ncpu, err := cmd.Flags().GetUint16("cpu")
	if err != nil {
		return nil, err
	}

	return []osmscan.DecoderOption{osmscan.WithNCpus(ncpu)}, nil
}
