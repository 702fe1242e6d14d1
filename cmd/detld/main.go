// Copyright 2025 detvm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Luks-kit/detvm/asm"
	"github.com/Luks-kit/detvm/linker"
)

var verbose bool

var command = &cobra.Command{
	Use:   "detld <input.dto> [<input.dto>...] <output.dtvm>",
	Short: "Link object files into an executable program image",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		inputs, output := args[:len(args)-1], args[len(args)-1]

		objects := make([]*asm.Result, 0, len(inputs))
		for _, path := range inputs {
			object, err := asm.ReadObjectFile(path)
			if err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "linking failed: %v\n", err)
				os.Exit(1)
			}
			objects = append(objects, object)
		}

		linked, err := linker.Link(objects)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "linking failed: %v\n", err)
			os.Exit(1)
		}
		if err := linker.ResolveReferences(linked); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "linking failed: %v\n", err)
			os.Exit(1)
		}
		if err := linker.WriteProgramFile(output, linked); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if verbose {
			_, _ = fmt.Fprintf(os.Stderr, "linked %d object(s) -> %s\n", len(inputs), output)
		}
	},
}

func init() {
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "if set, increase verbosity level")
}

func main() {
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
