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

import "fmt"

// Opcode identifies a VM instruction. The byte value is what object files
// and program images store.
type Opcode uint8

// Data & arithmetic over global registers.
const (
	OpLoadC  Opcode = 0x01 // A=reg, B=pool index
	OpLoadL  Opcode = 0x02 // A=reg, B=local
	OpStoreL Opcode = 0x03 // A=local, B=reg
	OpMov    Opcode = 0x04 // A=dst, B=src
	OpAdd    Opcode = 0x05 // A=dst, B=src1, C=src2
	OpSub    Opcode = 0x06
	OpMul    Opcode = 0x07
	OpDiv    Opcode = 0x08
	OpNeg    Opcode = 0x09 // A=dst, B=src
	OpCmp    Opcode = 0x0A // A=dst, B=src1, C=src2; dst = -1/0/+1
	OpNot    Opcode = 0x0B // A=dst, B=src
	OpAnd    Opcode = 0x0C
	OpOr     Opcode = 0x0D
)

// Control flow.
const (
	OpJmp Opcode = 0x10 // A=target pc
	OpJz  Opcode = 0x11 // A=cond reg, B=target pc
	OpJnz Opcode = 0x12
	OpJl  Opcode = 0x13
	OpJg  Opcode = 0x14
)

// Function call & stack.
const (
	OpCall  Opcode = 0x20 // A=func pc, B=argc, C=local count
	OpRet   Opcode = 0x21 // A=local index of return value, 0xFF for none
	OpEnter Opcode = 0x22 // B=argc, C=local count
	OpLeave Opcode = 0x23
)

// Array & memory.
const (
	OpNewArr   Opcode = 0x30 // A=dst, C=length
	OpLoadArr  Opcode = 0x31 // A=dst, B=array, C=index
	OpStoreArr Opcode = 0x32 // A=array, B=index, C=value
	OpLen      Opcode = 0x33 // A=dst, B=array
	OpFree     Opcode = 0x34 // A=reg
)

// Tags & type info. Reserved; no handler is installed for these.
const (
	OpTag    Opcode = 0x40
	OpWhen   Opcode = 0x41
	OpTypeOf Opcode = 0x42
)

// Misc.
const (
	OpNop   Opcode = 0x50
	OpPrint Opcode = 0x51 // A=index, B=bank (0 global, 1 parameter, 2 local)
	OpHalt  Opcode = 0x52
)

// Ownership & borrowing.
const (
	OpOwn   Opcode = 0x60 // A=dst, B=src; owned deep copy
	OpMove  Opcode = 0x61 // A=dst, B=src; src cleared
	OpView  Opcode = 0x62 // A=dst, B=src; shared view, refcount bumped
	OpEdit  Opcode = 0x63 // A=dst, B=src; exclusive promotion
	OpClone Opcode = 0x64 // A=dst, B=src; deep copy
	OpDrop  Opcode = 0x65 // A=reg
)

// Refcount & safety.
const (
	OpIncRef    Opcode = 0x70 // A=reg
	OpDecRef    Opcode = 0x71 // A=reg
	OpCheckExcl Opcode = 0x72 // A=reg; fail unless exclusively owned
	OpCheckLive Opcode = 0x73 // A=reg; fail if slot is empty
	OpRAIIDrop  Opcode = 0x74 // A=reg
)

// Local-register arithmetic family. Same contracts as the global family,
// operating on the current frame's locals.
const (
	OpMovL   Opcode = 0x80
	OpAddL   Opcode = 0x81
	OpSubL   Opcode = 0x82
	OpMulL   Opcode = 0x83
	OpDivL   Opcode = 0x84
	OpNegL   Opcode = 0x85
	OpCmpL   Opcode = 0x86
	OpNotL   Opcode = 0x87
	OpAndL   Opcode = 0x88
	OpOrL    Opcode = 0x89
	OpLoadCL Opcode = 0x8A // A=local, B=pool index
)

// Local-register conditional jumps; the condition is read from a local.
const (
	OpJlz  Opcode = 0x90
	OpJlnz Opcode = 0x91
	OpJll  Opcode = 0x92
	OpJlg  Opcode = 0x93
)

// Parameter marshalling.
const (
	OpLoadArg Opcode = 0x94 // A=local, B=arg slot
	OpLoadP   Opcode = 0x95 // A=param, B=reg
	OpLoadLP  Opcode = 0x96 // A=param, B=local
)

var opcodeNames = map[Opcode]string{
	OpLoadC:  "LOADC",
	OpLoadL:  "LOADL",
	OpStoreL: "STOREL",
	OpMov:    "MOV",
	OpAdd:    "ADD",
	OpSub:    "SUB",
	OpMul:    "MUL",
	OpDiv:    "DIV",
	OpNeg:    "NEG",
	OpCmp:    "CMP",
	OpNot:    "NOT",
	OpAnd:    "AND",
	OpOr:     "OR",

	OpJmp: "JMP",
	OpJz:  "JZ",
	OpJnz: "JNZ",
	OpJl:  "JL",
	OpJg:  "JG",

	OpCall:  "CALL",
	OpRet:   "RET",
	OpEnter: "ENTER",
	OpLeave: "LEAVE",

	OpNewArr:   "NEWARR",
	OpLoadArr:  "LOADARR",
	OpStoreArr: "STOREARR",
	OpLen:      "LEN",
	OpFree:     "FREE",

	OpTag:    "TAG",
	OpWhen:   "WHEN",
	OpTypeOf: "TYPEOF",

	OpNop:   "NOP",
	OpPrint: "PRINT",
	OpHalt:  "HALT",

	OpOwn:   "OWN",
	OpMove:  "MOVE",
	OpView:  "VIEW",
	OpEdit:  "EDIT",
	OpClone: "CLONE",
	OpDrop:  "DROP",

	OpIncRef:    "INCREF",
	OpDecRef:    "DECREF",
	OpCheckExcl: "CHECKEXCL",
	OpCheckLive: "CHECKLIVE",
	OpRAIIDrop:  "RAIIDROP",

	OpMovL:   "MOVL",
	OpAddL:   "ADDL",
	OpSubL:   "SUBL",
	OpMulL:   "MULL",
	OpDivL:   "DIVL",
	OpNegL:   "NEGL",
	OpCmpL:   "CMPL",
	OpNotL:   "NOTL",
	OpAndL:   "ANDL",
	OpOrL:    "ORL",
	OpLoadCL: "LOADCL",

	OpJlz:  "JLZ",
	OpJlnz: "JLNZ",
	OpJll:  "JLL",
	OpJlg:  "JLG",

	OpLoadArg: "LOADARG",
	OpLoadP:   "LOADP",
	OpLoadLP:  "LOADLP",
}

var opcodeByName = make(map[string]Opcode, len(opcodeNames))

func init() {
	for op, name := range opcodeNames {
		opcodeByName[name] = op
	}
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(op))
}

// OpcodeByName resolves an assembly mnemonic to its opcode.
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// IsJump reports whether op is an unconditional jump or call, i.e. the
// resolved target pc lands in field A.
func IsJump(op Opcode) bool {
	return op == OpJmp || op == OpCall
}

// IsCondJump reports whether op is a conditional jump (global or local
// family), i.e. the resolved target pc lands in field B.
func IsCondJump(op Opcode) bool {
	switch op {
	case OpJz, OpJnz, OpJl, OpJg, OpJlz, OpJlnz, OpJll, OpJlg:
		return true
	}
	return false
}
