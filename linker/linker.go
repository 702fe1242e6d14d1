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

// Package linker merges assembled objects into a single program: constant
// pools are deduplicated, code and symbol tables are rebased, and every
// unresolved jump or call is bound to a concrete program counter.
package linker

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/Luks-kit/detvm/asm"
	"github.com/Luks-kit/detvm/vm"
)

// Link merges the objects in input order. Each object's constants are
// re-interned into the output pool (building an old-to-new index remap),
// its code is appended with LOADC/LOADCL pool operands remapped, and its
// function and label tables are shifted by the running code offset.
// Jump references whose target label is now known are patched in place;
// calls and the rest stay on the unresolved list for ResolveReferences.
func Link(objects []*asm.Result) (*asm.Result, error) {
	out := &asm.Result{
		Labels: make(map[string]int),
		Funcs:  make(map[string]*asm.Function),
		Code:   make([]vm.Instruction, 0, lo.SumBy(objects, func(o *asm.Result) int { return len(o.Code) })),
	}

	offset := 0
	for _, obj := range objects {
		remap := make([]int, obj.Pool.Size())
		for i, entry := range obj.Pool.Entries {
			remap[i] = out.Pool.Add(entry)
		}

		for name, fn := range obj.Funcs {
			if _, exists := out.Funcs[name]; exists {
				return nil, errors.Errorf("duplicate function %q", name)
			}
			shifted := *fn
			shifted.PCStart += offset
			shifted.PCEnd += offset
			out.Funcs[name] = &shifted
		}

		for name, pc := range obj.Labels {
			if _, exists := out.Labels[name]; exists {
				return nil, errors.Errorf("duplicate label %q", name)
			}
			out.Labels[name] = pc + offset
		}

		for _, inst := range obj.Code {
			if inst.Op == vm.OpLoadC || inst.Op == vm.OpLoadCL {
				inst.B = uint16(remap[inst.B])
			}
			out.Code = append(out.Code, inst)
		}

		for _, u := range obj.Unresolved {
			u.InstIndex += offset
			out.Unresolved = append(out.Unresolved, u)
		}

		offset += len(obj.Code)
	}

	// Patch plain jumps whose target is already known. Calls always wait
	// for ResolveReferences, which fills argument and local counts from
	// the function table.
	var remaining []asm.UnresolvedReference
	for _, u := range out.Unresolved {
		if pc, ok := out.Labels[u.Symbol]; ok && u.Op != vm.OpCall {
			patch(&out.Code[u.InstIndex], u, pc)
			continue
		}
		remaining = append(remaining, u)
	}
	out.Unresolved = remaining

	return out, nil
}

// ResolveReferences performs final symbol resolution. A symbol naming a
// function resolves to its entry pc; for CALL instructions the argument
// and local counts are filled from the function record. Any symbol that
// resolves to neither a function nor a label is fatal.
func ResolveReferences(result *asm.Result) error {
	for _, u := range result.Unresolved {
		inst := &result.Code[u.InstIndex]
		if fn, ok := result.Funcs[u.Symbol]; ok {
			patch(inst, u, fn.PCStart)
			if u.Op == vm.OpCall {
				inst.B = fn.Params
				inst.C = fn.Locals
			}
			continue
		}
		if pc, ok := result.Labels[u.Symbol]; ok {
			patch(inst, u, pc)
			continue
		}
		return errors.Errorf("undefined label or function: %s", u.Symbol)
	}
	result.Unresolved = nil
	return nil
}

func patch(inst *vm.Instruction, u asm.UnresolvedReference, pc int) {
	if u.TargetInB {
		inst.B = uint16(pc)
	} else {
		inst.A = uint16(pc)
	}
}
