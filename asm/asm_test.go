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
	"strings"
	"testing"

	"github.com/Luks-kit/detvm/vm"
)

func TestAssemble_FunctionTable(t *testing.T) {
	lines := []string{
		"; a function with named slots",
		".func sum",
		".params 2",
		".locals 3",
		"param a",
		"param b",
		"var total",
		".code",
		"LOADARG total, a      ; total = a",
		"LOADARG %l1, b",
		"ADDL %l0, %l1 -> %l0",
		"RET total",
		".end",
	}
	result, err := Assemble(lines)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	fn, ok := result.Funcs["sum"]
	if !ok {
		t.Fatal("function sum not recorded")
	}
	if fn.Params != 2 || fn.Locals != 3 {
		t.Errorf("sum counts = %d params %d locals, want 2 and 3", fn.Params, fn.Locals)
	}
	if fn.PCStart != 0 || fn.PCEnd != 4 {
		t.Errorf("sum range = [%d, %d), want [0, 4)", fn.PCStart, fn.PCEnd)
	}
	if pc, ok := result.Labels["sum"]; !ok || pc != 0 {
		t.Errorf("label sum = %d (%v), want 0", pc, ok)
	}

	// named slots rewrote into register operands: "total" allocated local
	// index 0, "a" and "b" parameter indices 0 and 1
	want := []vm.Instruction{
		{Op: vm.OpLoadArg, A: 0, B: 0},
		{Op: vm.OpLoadArg, A: 1, B: 1},
		{Op: vm.OpAddL, A: 0, B: 0, C: 1},
		{Op: vm.OpRet, A: 0},
	}
	if len(result.Code) != len(want) {
		t.Fatalf("code length = %d, want %d", len(result.Code), len(want))
	}
	for i, inst := range want {
		if result.Code[i] != inst {
			t.Errorf("code[%d] = %+v, want %+v", i, result.Code[i], inst)
		}
	}
}

// Every jump and call is recorded as unresolved, including references to
// labels defined in the same object: their targets are object-local until
// the linker rebases the code, so patching has to wait.
func TestAssemble_UnresolvedReferences(t *testing.T) {
	lines := []string{
		"LOADC 1 -> %r1",
		".label top",
		"JNZ %r1, top",
		"JMP elsewhere",
		"CALL helper",
		"HALT",
	}
	result, err := Assemble(lines)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	want := []UnresolvedReference{
		{InstIndex: 1, Symbol: "top", Op: vm.OpJnz, TargetInB: true},
		{InstIndex: 2, Symbol: "elsewhere", Op: vm.OpJmp, TargetInB: false},
		{InstIndex: 3, Symbol: "helper", Op: vm.OpCall, TargetInB: false},
	}
	if len(result.Unresolved) != len(want) {
		t.Fatalf("unresolved = %+v, want %d entries", result.Unresolved, len(want))
	}
	for i, u := range want {
		if result.Unresolved[i] != u {
			t.Errorf("unresolved[%d] = %+v, want %+v", i, result.Unresolved[i], u)
		}
	}
	if pc, ok := result.Labels["top"]; !ok || pc != 1 {
		t.Errorf("label top = %d (%v), want 1", pc, ok)
	}
}

func TestAssemble_CommentsAndBlanks(t *testing.T) {
	lines := []string{
		"",
		"; full-line comment",
		"   ",
		`LOADC "a;b" -> %r1   ; trailing comment`,
		"HALT",
	}
	result, err := Assemble(lines)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(result.Code) != 2 {
		t.Fatalf("code length = %d, want 2", len(result.Code))
	}
	if got := result.Pool.Entries[result.Code[0].B].Str; got != "a;b" {
		t.Errorf("interned string = %q, want %q (semicolon inside quotes kept)", got, "a;b")
	}
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"directive outside function", []string{".params 2"}, "outside of function"},
		{"code outside function", []string{".code"}, "outside of function"},
		{"end outside function", []string{".end"}, "outside of function"},
		{"var outside function", []string{"var x"}, "outside of function"},
		{"too many locals", []string{".func f", ".locals 1", "var a", "var b"}, "too many named locals"},
		{"too many params", []string{".func f", ".params 0", "param a"}, "too many named params"},
		{"unknown directive", []string{".wat"}, "unknown directive"},
		{"unknown mnemonic", []string{"BLORP %r1"}, "unknown mnemonic"},
		{"names offending line", []string{"NOP", "ADD %r1"}, `line 2: "ADD %r1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.lines)
			if err == nil {
				t.Fatal("Assemble() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestRewriteNames(t *testing.T) {
	fn := &Function{
		LocalNames: map[string]uint16{"count": 0, "n": 1},
		ParamNames: map[string]uint16{"seed": 0},
	}
	tests := []struct {
		in   string
		want string
	}{
		{"LOADARG count, seed", "LOADARG %l0, %a0"},
		{"JLNZ n, loop", "JLNZ %l1, loop"},
		// substrings of identifiers stay intact
		{"JMP counter", "JMP counter"},
		// quoted strings are never rewritten
		{`LOADC "count n seed" -> %r1`, `LOADC "count n seed" -> %r1`},
		// the mnemonic position is never rewritten
		{"n %l0", "n %l0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := rewriteNames(tt.in, fn); got != tt.want {
				t.Errorf("rewriteNames(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
