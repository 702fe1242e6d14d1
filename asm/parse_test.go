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

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		line       string
		want       vm.Instruction
		wantSymbol string
	}{
		{"NOP", vm.Instruction{Op: vm.OpNop}, ""},
		{"HALT", vm.Instruction{Op: vm.OpHalt}, ""},
		{"MOV %r0 -> %r5", vm.Instruction{Op: vm.OpMov, A: 5, B: 0}, ""},
		{"MOV %r5, %r0", vm.Instruction{Op: vm.OpMov, A: 5, B: 0}, ""},
		{"ADD %r1, %r2 -> %r0", vm.Instruction{Op: vm.OpAdd, A: 0, B: 1, C: 2}, ""},
		{"SUBL %l1, %l2 -> %l0", vm.Instruction{Op: vm.OpSubL, A: 0, B: 1, C: 2}, ""},
		{"LOADL %l3 -> %r1", vm.Instruction{Op: vm.OpLoadL, A: 1, B: 3}, ""},
		{"STOREL %r1 -> %l0", vm.Instruction{Op: vm.OpStoreL, A: 0, B: 1}, ""},
		{"LOADARG %l0, %a0", vm.Instruction{Op: vm.OpLoadArg, A: 0, B: 0}, ""},
		{"LOADP %p0, %r1", vm.Instruction{Op: vm.OpLoadP, A: 0, B: 1}, ""},
		{"LOADLP %p1, %l2", vm.Instruction{Op: vm.OpLoadLP, A: 1, B: 2}, ""},
		{"JMP end", vm.Instruction{Op: vm.OpJmp}, "end"},
		{"JZ %r3, base_case", vm.Instruction{Op: vm.OpJz, A: 3}, "base_case"},
		{"JLNZ %l1, loop", vm.Instruction{Op: vm.OpJlnz, A: 1}, "loop"},
		{"CALL fact", vm.Instruction{Op: vm.OpCall}, "fact"},
		{"CALL fact, 2", vm.Instruction{Op: vm.OpCall, B: 2}, "fact"},
		{"RET", vm.Instruction{Op: vm.OpRet, A: vm.NoReturn}, ""},
		{"RET %l1", vm.Instruction{Op: vm.OpRet, A: 1}, ""},
		{"ENTER 1, 3", vm.Instruction{Op: vm.OpEnter, B: 1, C: 3}, ""},
		{"LEAVE", vm.Instruction{Op: vm.OpLeave}, ""},
		{"NEWARR 3 -> %r1", vm.Instruction{Op: vm.OpNewArr, A: 1, C: 3}, ""},
		{"NEWARR %r1, 3", vm.Instruction{Op: vm.OpNewArr, A: 1, C: 3}, ""},
		{"LOADARR %r1, %r2 -> %r0", vm.Instruction{Op: vm.OpLoadArr, A: 0, B: 1, C: 2}, ""},
		{"STOREARR %r1, %r2, %r3", vm.Instruction{Op: vm.OpStoreArr, A: 1, B: 2, C: 3}, ""},
		{"LEN %r1 -> %r2", vm.Instruction{Op: vm.OpLen, A: 2, B: 1}, ""},
		{"OWN %r1, %r0", vm.Instruction{Op: vm.OpOwn, A: 1, B: 0}, ""},
		{"VIEW %r2, %r1", vm.Instruction{Op: vm.OpView, A: 2, B: 1}, ""},
		{"EDIT %r3, %r1", vm.Instruction{Op: vm.OpEdit, A: 3, B: 1}, ""},
		{"CLONE %r4, %r1", vm.Instruction{Op: vm.OpClone, A: 4, B: 1}, ""},
		{"DROP %r1", vm.Instruction{Op: vm.OpDrop, A: 1}, ""},
		{"RAIIDROP %r1", vm.Instruction{Op: vm.OpRAIIDrop, A: 1}, ""},
		{"PRINT %r0", vm.Instruction{Op: vm.OpPrint, A: 0, B: vm.BankGlobal}, ""},
		{"PRINT %p0", vm.Instruction{Op: vm.OpPrint, A: 0, B: vm.BankParam}, ""},
		{"PRINT %l2", vm.Instruction{Op: vm.OpPrint, A: 2, B: vm.BankLocal}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			var pool ConstantPool
			got, symbol, err := ParseInstruction(tt.line, &pool)
			if err != nil {
				t.Fatalf("ParseInstruction(%q) error = %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("ParseInstruction(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
			if symbol != tt.wantSymbol {
				t.Errorf("symbol = %q, want %q", symbol, tt.wantSymbol)
			}
		})
	}
}

func TestParseInstruction_Constants(t *testing.T) {
	var pool ConstantPool

	inst, _, err := ParseInstruction(`LOADC 5 -> %r1`, &pool)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Op != vm.OpLoadC || inst.A != 1 || inst.B != 0 {
		t.Errorf("LOADC int = %+v", inst)
	}

	inst, _, err = ParseInstruction(`LOADC "hello, world" -> %r2`, &pool)
	if err != nil {
		t.Fatal(err)
	}
	if pool.Entries[inst.B].Str != "hello, world" {
		t.Errorf("quoted string with comma interned as %q", pool.Entries[inst.B].Str)
	}

	inst, _, err = ParseInstruction(`LOADCL 2.5 -> %l0`, &pool)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Op != vm.OpLoadCL || pool.Entries[inst.B].Tag != vm.ConstDouble {
		t.Errorf("LOADCL double = %+v, tag %v", inst, pool.Entries[inst.B].Tag)
	}

	inst, _, err = ParseInstruction(`LOADC 'x' -> %r3`, &pool)
	if err != nil {
		t.Fatal(err)
	}
	if pool.Entries[inst.B].Tag != vm.ConstChar || pool.Entries[inst.B].Int != 'x' {
		t.Errorf("char literal interned as %+v", pool.Entries[inst.B])
	}

	// repeated literal reuses the pool slot
	again, _, err := ParseInstruction(`LOADC 5 -> %r4`, &pool)
	if err != nil {
		t.Fatal(err)
	}
	if again.B != 0 {
		t.Errorf("LOADC 5 twice: pool index %d, want 0", again.B)
	}
}

func TestParseInstruction_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"unknown mnemonic", "FROB %r1", "unknown mnemonic"},
		{"malformed register", "MOV %r1, %x2", "unknown bank"},
		{"bad index", "MOV %r1, %rx", "invalid register"},
		{"operand count", "ADD %r1, %r2", "expects 3 operand(s)"},
		{"global arith needs globals", "ADD %l1, %l2 -> %l0", "expected a %r register"},
		{"local arith needs locals", "ADDL %r1, %r2 -> %r0", "expected a %l register"},
		{"loadc needs global dest", "LOADC 5 -> %l1", "expected a %r register"},
		{"loadcl needs local dest", "LOADCL 5 -> %r1", "expected a %l register"},
		{"loadc needs arrow", "LOADC 5", "needs a -> destination"},
		{"storel direction", "STOREL %l0 -> %r1", "expected a %l register"},
		{"cond jump wants register", "JZ foo, bar", "invalid register"},
		{"cond jump local family", "JLZ %r1, foo", "expected a %l register"},
		{"jmp wants symbol", "JMP %r1", "not a label"},
		{"call wants symbol", "CALL %r1", "not a function name"},
		{"bad literal", "LOADC wat -> %r1", "bad constant literal"},
		{"missing dest", "MOV %r1 ->", "missing destination"},
		{"newarr literal", "NEWARR %r1, %r2", "expected an integer literal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pool ConstantPool
			_, _, err := ParseInstruction(tt.line, &pool)
			if err == nil {
				t.Fatalf("ParseInstruction(%q) succeeded, want error", tt.line)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}
