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
	"io"
	"os"

	"github.com/spf13/cobra"
)

// OpenInput opens the PBF file named by the first argument or, without one,
// the --input flag.  A file opened by --input is closed when an argument
// supersedes it.  Regular files are wrapped in a progress bar unless
// --no-progress is given.
func OpenInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	f := input
	if len(args) > 0 {
		if input != nil && input != os.Stdin {
			_ = input.Close()
			input = nil
		}

		var err error
		if f, err = os.Open(args[0]); err != nil {
			return nil, err
		}
	}

	if f == nil {
		f = os.Stdin
	}

	quiet, err := cmd.Flags().GetBool("no-progress")
	if err != nil {
		return nil, err
	}

	if quiet {
		return f, nil
	}

	return WrapInputFile(f)
}
