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

	"github.com/Luks-kit/detvm/vm"
)

var command = &cobra.Command{
	Use:   "detvm <program.dtvm>",
	Short: "Execute a detvm program image",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		registers, _ := cmd.PersistentFlags().GetInt("registers")
		opts := []vm.Option{vm.Registers(registers)}
		if trace, _ := cmd.PersistentFlags().GetBool("trace"); trace {
			opts = append(opts, vm.Trace(os.Stderr))
		}

		machine, err := vm.New(opts...)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := machine.LoadProgram(data); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "load failed: %v\n", err)
			os.Exit(1)
		}
		if err := machine.Run(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	command.PersistentFlags().Int("registers", 8, "global register file size")
	command.PersistentFlags().Bool("trace", false, "print each executed instruction and the register file to stderr")
}

func main() {
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
