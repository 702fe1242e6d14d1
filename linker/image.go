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

package linker

import (
	"os"

	"github.com/pkg/errors"

	"github.com/Luks-kit/detvm/asm"
	"github.com/Luks-kit/detvm/internal/bin"
	"github.com/Luks-kit/detvm/vm"
)

// WriteProgram serialises a fully linked result into the executable
// program image. Each pool entry carries a payload size prefix so loaders
// can skip entries they do not understand.
func WriteProgram(result *asm.Result) []byte {
	w := bin.NewWriter()
	w.Tag(vm.ImageMagic)
	w.U64(vm.ImageVersion)

	w.Tag("POOL")
	w.U64(uint64(result.Pool.Size()))
	for _, entry := range result.Pool.Entries {
		w.U8(uint8(entry.Tag))
		switch entry.Tag {
		case vm.ConstInt:
			w.U64(8)
			w.I64(entry.Int)
		case vm.ConstDouble:
			w.U64(8)
			w.F64(entry.Float)
		case vm.ConstString:
			w.U64(uint64(len(entry.Str)))
			w.String(entry.Str)
		case vm.ConstChar:
			w.U64(1)
			w.U8(uint8(entry.Int))
		}
	}

	w.Tag("TEXT")
	w.U64(uint64(len(result.Code)))
	for _, inst := range result.Code {
		w.U8(uint8(inst.Op))
		w.U16(inst.A)
		w.U16(inst.B)
		w.U16(inst.C)
	}

	return w.Bytes()
}

// WriteProgramFile writes the encoded program image to path.
func WriteProgramFile(path string, result *asm.Result) error {
	if err := os.WriteFile(path, WriteProgram(result), 0o644); err != nil {
		return errors.Wrapf(err, "writing program image %s", path)
	}
	return nil
}
