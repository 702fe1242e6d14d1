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
	Use:   "detdis <program.dtvm>",
	Short: "Disassemble a detvm program image",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		program, err := vm.ReadImage(data)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "disasm error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Header: %s (version %d)\n", vm.ImageMagic, vm.ImageVersion)

		fmt.Printf("\n[Constant Pool] (%d entries)\n", len(program.Pool))
		for i, val := range program.Pool {
			tag := program.Tags[i]
			switch tag {
			case vm.ConstString:
				fmt.Printf("  #%d %s %q\n", i, tag, val.String())
			default:
				fmt.Printf("  #%d %s %s\n", i, tag, val.String())
			}
		}

		fmt.Printf("\n[Text Section] (%d instructions)\n", len(program.Code))
		for pc, inst := range program.Code {
			fmt.Printf("%4d: %s  a=%d  b=%d  c=%d\n", pc, inst.Op, inst.A, inst.B, inst.C)
		}
	},
}

func main() {
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
