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

// Instruction is the fixed-shape unit of code: an opcode plus three 16-bit
// operand fields whose meaning is opcode-specific.
type Instruction struct {
	Op Opcode
	A  uint16
	B  uint16
	C  uint16
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s a=%d b=%d c=%d", i.Op, i.A, i.B, i.C)
}

// NoReturn is the RET A field value meaning "return no value".
const NoReturn uint16 = 0xFF

// Register banks as encoded in the PRINT instruction's B field.
const (
	BankGlobal uint16 = iota
	BankParam
	BankLocal
)
