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

package asm

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/Luks-kit/detvm/internal/bin"
	"github.com/Luks-kit/detvm/vm"
)

// Object file framing.
const (
	ObjectMagic   = "DTOB"
	ObjectVersion = 1
)

const (
	tagPool       = "POOL"
	tagFuncs      = "FUNC"
	tagUnresolved = "UNRS"
	tagLabels     = "LBLS"
	tagCode       = "CODE"
)

// WriteObject serialises an assembler result into the relocatable object
// format. Map-backed sections are emitted in sorted name order so the same
// result always encodes to the same bytes.
func WriteObject(result *Result) []byte {
	w := bin.NewWriter()
	w.Tag(ObjectMagic)
	w.U16(ObjectVersion)

	w.Tag(tagPool)
	w.U32(uint32(result.Pool.Size()))
	for _, entry := range result.Pool.Entries {
		w.U8(uint8(entry.Tag))
		switch entry.Tag {
		case vm.ConstInt:
			w.I64(entry.Int)
		case vm.ConstDouble:
			w.F64(entry.Float)
		case vm.ConstString:
			w.U32(uint32(len(entry.Str)))
			w.String(entry.Str)
		case vm.ConstChar:
			w.U8(uint8(entry.Int))
		}
	}

	w.Tag(tagFuncs)
	w.U32(uint32(len(result.Funcs)))
	names := lo.Keys(result.Funcs)
	sort.Strings(names)
	for _, name := range names {
		fn := result.Funcs[name]
		w.U32(uint32(len(name)))
		w.String(name)
		w.U16(fn.Params)
		w.U16(fn.Locals)
		w.U32(uint32(fn.PCStart))
		w.U32(uint32(fn.PCEnd - fn.PCStart))
	}

	w.Tag(tagUnresolved)
	w.U32(uint32(len(result.Unresolved)))
	for _, u := range result.Unresolved {
		w.U32(uint32(u.InstIndex))
		w.U8(uint8(u.Op))
		if u.TargetInB {
			w.U8(1)
		} else {
			w.U8(0)
		}
		w.U32(uint32(len(u.Symbol)))
		w.String(u.Symbol)
	}

	w.Tag(tagLabels)
	w.U32(uint32(len(result.Labels)))
	labels := lo.Keys(result.Labels)
	sort.Strings(labels)
	for _, label := range labels {
		w.U32(uint32(len(label)))
		w.String(label)
		w.U32(uint32(result.Labels[label]))
	}

	w.Tag(tagCode)
	w.U32(uint32(len(result.Code)))
	for _, inst := range result.Code {
		w.U8(uint8(inst.Op))
		w.U16(inst.A)
		w.U16(inst.B)
		w.U16(inst.C)
	}

	return w.Bytes()
}

// ReadObject decodes an object file back into an assembler result. The
// named-slot maps of functions are an assembly-time aid and are not part of
// the format; they come back empty.
func ReadObject(data []byte) (*Result, error) {
	r := bin.NewReader(data)
	r.Expect(ObjectMagic)
	if r.Err() != nil {
		return nil, errors.Wrap(r.Err(), "invalid object file")
	}
	version := r.U16()
	if r.Err() == nil && version != ObjectVersion {
		return nil, errors.Errorf("unsupported object file version %d", version)
	}

	result := &Result{
		Labels: make(map[string]int),
		Funcs:  make(map[string]*Function),
	}

	r.Expect(tagPool)
	poolCount := int(r.U32())
	for n := 0; n < poolCount && r.Err() == nil; n++ {
		tag := vm.ConstTag(r.U8())
		switch tag {
		case vm.ConstInt:
			result.Pool.AddInt(r.I64())
		case vm.ConstDouble:
			result.Pool.AddDouble(r.F64())
		case vm.ConstString:
			result.Pool.AddString(r.String(int(r.U32())))
		case vm.ConstChar:
			result.Pool.AddChar(r.U8())
		default:
			return nil, errors.Errorf("unknown constant type %d in pool entry %d", tag, n)
		}
	}

	r.Expect(tagFuncs)
	funcCount := int(r.U32())
	for n := 0; n < funcCount && r.Err() == nil; n++ {
		name := r.String(int(r.U32()))
		fn := &Function{Name: name}
		fn.Params = r.U16()
		fn.Locals = r.U16()
		fn.PCStart = int(r.U32())
		fn.PCEnd = fn.PCStart + int(r.U32())
		result.Funcs[name] = fn
	}

	r.Expect(tagUnresolved)
	unresolvedCount := int(r.U32())
	for n := 0; n < unresolvedCount && r.Err() == nil; n++ {
		var u UnresolvedReference
		u.InstIndex = int(r.U32())
		u.Op = vm.Opcode(r.U8())
		u.TargetInB = r.U8() != 0
		u.Symbol = r.String(int(r.U32()))
		result.Unresolved = append(result.Unresolved, u)
	}

	r.Expect(tagLabels)
	labelCount := int(r.U32())
	for n := 0; n < labelCount && r.Err() == nil; n++ {
		label := r.String(int(r.U32()))
		result.Labels[label] = int(r.U32())
	}

	r.Expect(tagCode)
	codeCount := int(r.U32())
	for n := 0; n < codeCount && r.Err() == nil; n++ {
		result.Code = append(result.Code, vm.Instruction{
			Op: vm.Opcode(r.U8()),
			A:  r.U16(),
			B:  r.U16(),
			C:  r.U16(),
		})
	}

	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "corrupt object file")
	}
	return result, nil
}

// WriteObjectFile writes the encoded object to path.
func WriteObjectFile(path string, result *Result) error {
	if err := os.WriteFile(path, WriteObject(result), 0o644); err != nil {
		return errors.Wrapf(err, "writing object file %s", path)
	}
	return nil
}

// ReadObjectFile reads and decodes the object file at path.
func ReadObjectFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading object file %s", path)
	}
	result, err := ReadObject(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding object file %s", path)
	}
	return result, nil
}
