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
	"strings"
	"testing"

	"github.com/Luks-kit/detvm/asm"
	"github.com/Luks-kit/detvm/vm"
)

func assemble(t *testing.T, lines ...string) *asm.Result {
	t.Helper()
	result, err := asm.Assemble(lines)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	return result
}

// Constants equal across objects collapse to one pool slot and every
// LOADC operand is rewritten through the remap.
func TestLink_PoolDedupAcrossObjects(t *testing.T) {
	objA := assemble(t,
		`LOADC "hi" -> %r1`,
		"HALT",
	)
	objB := assemble(t,
		`LOADC "world" -> %r1`,
		`LOADC "hi" -> %r2`,
		"HALT",
	)

	linked, err := Link([]*asm.Result{objA, objB})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	if linked.Pool.Size() != 2 {
		t.Fatalf("merged pool size = %d, want 2", linked.Pool.Size())
	}
	if linked.Pool.Entries[0].Str != "hi" || linked.Pool.Entries[1].Str != "world" {
		t.Errorf("merged pool = %+v, want [hi world]", linked.Pool.Entries)
	}

	// object B's code sits at offset 2; its "world" load points at 1, its
	// "hi" load was rewritten to 0
	if got := linked.Code[2].B; got != 1 {
		t.Errorf(`B's LOADC "world" pool index = %d, want 1`, got)
	}
	if got := linked.Code[3].B; got != 0 {
		t.Errorf(`B's LOADC "hi" pool index = %d, want 0`, got)
	}
}

// Rebase: object O at code offset K lands each instruction i at i+K, with
// LOADC/LOADCL B-fields remapped and jump targets patched against the
// shifted labels.
func TestLink_Rebase(t *testing.T) {
	objA := assemble(t,
		"LOADC 1 -> %r1",
		"LOADC 2 -> %r2",
		"HALT",
	)
	objB := assemble(t,
		"LOADC 2 -> %r1", // dedups against A's 2
		"MOV %r1 -> %r3",
		".label spin",
		"JMP spin",
	)

	linked, err := Link([]*asm.Result{objA, objB})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	offset := len(objA.Code)
	for i, inst := range objB.Code {
		got := linked.Code[offset+i]
		want := inst
		if want.Op == vm.OpLoadC {
			want.B = 1 // pool index of the deduplicated 2
		}
		if want.Op == vm.OpJmp {
			want.A = uint16(offset + 2) // patched against the shifted label
		}
		if got != want {
			t.Errorf("linked.Code[%d] = %+v, want %+v", offset+i, got, want)
		}
	}

	if pc, ok := linked.Labels["spin"]; !ok || pc != offset+2 {
		t.Errorf("label spin = %d (%v), want %d", pc, ok, offset+2)
	}
}

func TestLink_DuplicateFunction(t *testing.T) {
	objA := assemble(t, ".func f", ".code", "RET", ".end")
	objB := assemble(t, ".func f", ".code", "RET", ".end")
	_, err := Link([]*asm.Result{objA, objB})
	if err == nil || !strings.Contains(err.Error(), `duplicate function "f"`) {
		t.Fatalf("Link() error = %v, want duplicate function", err)
	}
}

func TestResolveReferences_CallFillsCounts(t *testing.T) {
	obj := assemble(t,
		"CALL fib",
		"HALT",
		".func fib",
		".params 1",
		".locals 2",
		".code",
		"RET %l0",
		".end",
	)
	linked, err := Link([]*asm.Result{obj})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	if err := ResolveReferences(linked); err != nil {
		t.Fatalf("ResolveReferences() error = %v", err)
	}

	call := linked.Code[0]
	if call.A != 2 || call.B != 1 || call.C != 2 {
		t.Errorf("CALL = %+v, want a=2 b=1 c=2 (entry pc, params, locals)", call)
	}
	if len(linked.Unresolved) != 0 {
		t.Errorf("unresolved after resolution = %+v, want none", linked.Unresolved)
	}
}

// A jump with no matching label anywhere must fail naming the symbol.
func TestResolveReferences_UndefinedLabel(t *testing.T) {
	obj := assemble(t, "JMP end", "HALT")
	linked, err := Link([]*asm.Result{obj})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	err = ResolveReferences(linked)
	if err == nil || !strings.Contains(err.Error(), "end") {
		t.Fatalf("ResolveReferences() error = %v, want mention of %q", err, "end")
	}
}

// Cross-object jump: object A targets a label that only object B defines.
func TestLink_CrossObjectReference(t *testing.T) {
	objA := assemble(t, "JMP elsewhere")
	objB := assemble(t, ".label elsewhere", "HALT")

	linked, err := Link([]*asm.Result{objA, objB})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	if err := ResolveReferences(linked); err != nil {
		t.Fatalf("ResolveReferences() error = %v", err)
	}
	if got := linked.Code[0].A; got != 1 {
		t.Errorf("JMP target = %d, want 1", got)
	}
}

func TestProgramImageRoundTrip(t *testing.T) {
	obj := assemble(t,
		"LOADC 7 -> %r1",
		`LOADC "seven" -> %r2`,
		"LOADC 0.5 -> %r3",
		"LOADC 'z' -> %r4",
		"HALT",
	)
	linked, err := Link([]*asm.Result{obj})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	if err := ResolveReferences(linked); err != nil {
		t.Fatalf("ResolveReferences() error = %v", err)
	}

	program, err := vm.ReadImage(WriteProgram(linked))
	if err != nil {
		t.Fatalf("ReadImage() error = %v", err)
	}
	if len(program.Code) != len(linked.Code) {
		t.Fatalf("decoded code length = %d, want %d", len(program.Code), len(linked.Code))
	}
	for i, inst := range linked.Code {
		if program.Code[i] != inst {
			t.Errorf("decoded code[%d] = %+v, want %+v", i, program.Code[i], inst)
		}
	}

	wantPool := []string{"7", "seven", "0.5", "122"}
	wantTags := []vm.ConstTag{vm.ConstInt, vm.ConstString, vm.ConstDouble, vm.ConstChar}
	if len(program.Pool) != len(wantPool) {
		t.Fatalf("decoded pool size = %d, want %d", len(program.Pool), len(wantPool))
	}
	for i := range wantPool {
		if got := program.Pool[i].String(); got != wantPool[i] {
			t.Errorf("pool[%d] = %q, want %q", i, got, wantPool[i])
		}
		if program.Tags[i] != wantTags[i] {
			t.Errorf("pool[%d] tag = %v, want %v", i, program.Tags[i], wantTags[i])
		}
	}
}

func TestReadImage_Corrupt(t *testing.T) {
	obj := assemble(t, "HALT")
	linked, _ := Link([]*asm.Result{obj})
	good := WriteProgram(linked)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("XXXX")},
		{"truncated", good[:len(good)-3]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := vm.ReadImage(tt.data); err == nil {
				t.Error("ReadImage() succeeded on corrupt input, want error")
			}
		})
	}
}
