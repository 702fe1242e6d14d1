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

package vm

import (
	"github.com/pkg/errors"

	"github.com/Luks-kit/detvm/internal/bin"
)

// Program image framing.
const (
	ImageMagic   = "DTVM"
	ImageVersion = 1

	tagPool = "POOL"
	tagText = "TEXT"
)

// ConstTag is the on-disk type tag of a constant pool entry. The values are
// shared between object files and program images.
type ConstTag uint8

const (
	ConstInt    ConstTag = 1
	ConstFloat  ConstTag = 2 // reserved
	ConstDouble ConstTag = 3
	ConstChar   ConstTag = 4
	ConstString ConstTag = 5
)

func (t ConstTag) String() string {
	switch t {
	case ConstInt:
		return "INT"
	case ConstFloat:
		return "FLOAT"
	case ConstDouble:
		return "DOUBLE"
	case ConstChar:
		return "CHAR"
	case ConstString:
		return "STRING"
	}
	return "???"
}

// Program is a decoded program image: the constant pool as runtime Values
// plus the code vector. Tags preserves the on-disk type of each pool entry
// for tooling that re-prints the image.
type Program struct {
	Pool []Value
	Tags []ConstTag
	Code []Instruction
}

// ReadImage decodes a program image. Pool entries become runtime Values:
// INT narrows to int32, CHAR loads as the character's code point.
func ReadImage(data []byte) (*Program, error) {
	r := bin.NewReader(data)
	r.Expect(ImageMagic)
	version := r.U64()
	if r.Err() == nil && version > ImageVersion {
		return nil, errors.Errorf("unsupported program image version %d", version)
	}

	r.Expect(tagPool)
	poolCount := int(r.U64())
	p := &Program{}
	for n := 0; n < poolCount && r.Err() == nil; n++ {
		tag := ConstTag(r.U8())
		size := int(r.U64())
		switch tag {
		case ConstInt:
			p.Pool = append(p.Pool, IntValue(int32(r.I64())))
		case ConstDouble, ConstFloat:
			p.Pool = append(p.Pool, DoubleValue(r.F64()))
		case ConstString:
			p.Pool = append(p.Pool, StringValue(r.String(size)))
		case ConstChar:
			p.Pool = append(p.Pool, IntValue(int32(r.U8())))
		default:
			return nil, errors.Errorf("unknown constant type %d in pool entry %d", tag, n)
		}
		p.Tags = append(p.Tags, tag)
	}

	r.Expect(tagText)
	textCount := int(r.U64())
	for n := 0; n < textCount && r.Err() == nil; n++ {
		p.Code = append(p.Code, Instruction{
			Op: Opcode(r.U8()),
			A:  r.U16(),
			B:  r.U16(),
			C:  r.U16(),
		})
	}

	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "truncated program image")
	}
	return p, nil
}

// LoadProgram decodes the image and installs its pool and code into the VM.
func (v *VM) LoadProgram(data []byte) error {
	p, err := ReadImage(data)
	if err != nil {
		return err
	}
	v.pool = p.Pool
	v.code = p.Code
	return nil
}
