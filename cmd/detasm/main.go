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
	"strings"

	"github.com/spf13/cobra"

	"github.com/Luks-kit/detvm/asm"
	"github.com/Luks-kit/detvm/linker"
)

var verbose bool

var command = &cobra.Command{
	Use:   "detasm <input.detasm> [output]",
	Short: "Assemble detvm assembly into a relocatable object file",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		input := args[0]
		link, _ := cmd.PersistentFlags().GetBool("link")

		output := defaultOutput(input, link)
		if len(args) == 2 {
			output = args[1]
		}

		data, err := os.ReadFile(input)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		result, err := asm.Assemble(strings.Split(string(data), "\n"))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
			os.Exit(1)
		}

		if link {
			// Single-file fast path: resolve in-object and emit a
			// runnable program image directly.
			if err := linker.ResolveReferences(result); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
				os.Exit(1)
			}
			err = linker.WriteProgramFile(output, result)
		} else {
			err = asm.WriteObjectFile(output, result)
		}
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if verbose {
			_, _ = fmt.Fprintf(os.Stderr, "assembled %d instruction(s): %s -> %s\n",
				len(result.Code), input, output)
		}
	},
}

// defaultOutput derives the output name from the input: .dto for objects,
// .dtvm for directly linked images.
func defaultOutput(input string, link bool) string {
	base := strings.TrimSuffix(input, ".detasm")
	if link {
		return base + ".dtvm"
	}
	return base + ".dto"
}

func init() {
	command.PersistentFlags().BoolP("link", "l", false, "resolve labels and write a program image instead of an object file")
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "if set, increase verbosity level")
}

func main() {
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
