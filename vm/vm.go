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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

const defaultRegisterCount = 8

// Runtime error sentinels. Faults built by fault wrap one of these together
// with the pc and offending operands; faults built by faultf (type coercion,
// PRINT write errors) carry the pc and a message but no sentinel.
var (
	ErrDivideByZero  = errors.New("division by zero")
	ErrNoHandler     = errors.New("no handler installed for opcode")
	ErrOutOfBounds   = errors.New("index out of bounds")
	ErrNoActiveFrame = errors.New("no active frame")
	ErrSharedEdit    = errors.New("exclusive edit of shared value")
	ErrDeadValue     = errors.New("reference to dead value")
)

// handler executes one instruction. It must either advance v.pc past the
// instruction or set it to the jump target.
type handler func(v *VM, i Instruction) error

// Option configures a VM at construction.
type Option func(*VM) error

// Registers sets the global register file size.
func Registers(n int) Option {
	return func(v *VM) error {
		if n <= 0 {
			return fmt.Errorf("register count must be positive, got %d", n)
		}
		v.regs = make([]Value, n)
		return nil
	}
}

// Output redirects PRINT output. The default is standard output.
func Output(w io.Writer) Option {
	return func(v *VM) error {
		v.out = bufio.NewWriter(w)
		return nil
	}
}

// Trace enables per-instruction tracing to w: pc, decoded instruction and
// the register file after each step.
func Trace(w io.Writer) Option {
	return func(v *VM) error {
		v.trace = w
		return nil
	}
}

// VM executes a program image: a constant pool plus a code vector. It owns
// the global register file, the parameter bank used for cross-call argument
// marshalling, and the call stack. Execution is single-threaded.
type VM struct {
	code   []Instruction
	regs   []Value
	params []Value
	pool   []Value
	stack  []Frame
	pc     int

	table [256]handler
	out   *bufio.Writer
	trace io.Writer
}

// New constructs a VM with the dispatch table installed and, by default,
// eight global registers writing PRINT output to standard output.
func New(opts ...Option) (*VM, error) {
	v := &VM{
		regs: make([]Value, defaultRegisterCount),
		out:  bufio.NewWriter(os.Stdout),
	}
	v.setupDispatchTable()
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// SetCode installs a code vector directly, bypassing the image loader.
func (v *VM) SetCode(code []Instruction) { v.code = code }

// SetPool installs a constant pool directly, bypassing the image loader.
func (v *VM) SetPool(pool []Value) { v.pool = pool }

// Register returns a copy of global register n.
func (v *VM) Register(n int) Value { return v.regs[n] }

// Param returns a copy of parameter register n, or the empty Value if the
// bank has never grown that far.
func (v *VM) Param(n int) Value {
	if n >= len(v.params) {
		return Value{}
	}
	return v.params[n]
}

// Depth returns the current call stack depth.
func (v *VM) Depth() int { return len(v.stack) }

// PC returns the current program counter.
func (v *VM) PC() int { return v.pc }

func (v *VM) setupDispatchTable() {
	install := func(op Opcode, h handler) { v.table[op] = h }

	install(OpLoadC, opLoadC)
	install(OpLoadL, opLoadL)
	install(OpStoreL, opStoreL)
	install(OpMov, opMov)
	install(OpAdd, opAdd)
	install(OpSub, opSub)
	install(OpMul, opMul)
	install(OpDiv, opDiv)
	install(OpNeg, opNeg)
	install(OpCmp, opCmp)
	install(OpNot, opNot)
	install(OpAnd, opAnd)
	install(OpOr, opOr)

	install(OpJmp, opJmp)
	install(OpJz, opJz)
	install(OpJnz, opJnz)
	install(OpJl, opJl)
	install(OpJg, opJg)
	install(OpJlz, opJlz)
	install(OpJlnz, opJlnz)
	install(OpJll, opJll)
	install(OpJlg, opJlg)

	install(OpCall, opCall)
	install(OpRet, opRet)
	install(OpEnter, opEnter)
	install(OpLeave, opLeave)

	install(OpMovL, opMovL)
	install(OpAddL, opAddL)
	install(OpSubL, opSubL)
	install(OpMulL, opMulL)
	install(OpDivL, opDivL)
	install(OpNegL, opNegL)
	install(OpCmpL, opCmpL)
	install(OpNotL, opNotL)
	install(OpAndL, opAndL)
	install(OpOrL, opOrL)
	install(OpLoadCL, opLoadCL)

	install(OpNewArr, opNewArr)
	install(OpLoadArr, opLoadArr)
	install(OpStoreArr, opStoreArr)
	install(OpLen, opLen)
	install(OpFree, opDrop) // FREE aliases the drop protocol

	install(OpNop, opNop)
	install(OpPrint, opPrint)
	install(OpHalt, opHalt)

	install(OpLoadArg, opLoadArg)
	install(OpLoadP, opLoadP)
	install(OpLoadLP, opLoadLP)

	install(OpOwn, opOwn)
	install(OpMove, opMove)
	install(OpView, opView)
	install(OpEdit, opEdit)
	install(OpClone, opClone)
	install(OpDrop, opDrop)

	install(OpIncRef, opIncRef)
	install(OpDecRef, opDrop)
	install(OpCheckExcl, opCheckExcl)
	install(OpCheckLive, opCheckLive)
	install(OpRAIIDrop, opDrop)
}

// Run executes from pc 0 until the code vector is exhausted or a fault
// occurs. HALT terminates by setting pc past the last instruction.
func (v *VM) Run() error {
	v.pc = 0
	for v.pc < len(v.code) {
		if err := v.Step(); err != nil {
			v.out.Flush()
			return err
		}
	}
	return v.out.Flush()
}

// Step executes the single instruction at pc.
func (v *VM) Step() error {
	inst := v.code[v.pc]
	h := v.table[inst.Op]
	if h == nil {
		return v.fault(ErrNoHandler, "0x%02X", uint8(inst.Op))
	}
	if v.trace != nil {
		fmt.Fprintf(v.trace, "[pc %d] %s\n", v.pc, inst)
	}
	if err := h(v, inst); err != nil {
		return err
	}
	if v.trace != nil {
		for n := range v.regs {
			fmt.Fprintf(v.trace, " %%r%d=%s", n, v.regs[n])
		}
		fmt.Fprintln(v.trace)
	}
	return nil
}

// fault wraps a runtime error sentinel with the current pc and detail.
func (v *VM) fault(sentinel error, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	if detail == "" {
		return fmt.Errorf("[pc %d] %w", v.pc, sentinel)
	}
	return fmt.Errorf("[pc %d] %w: %s", v.pc, sentinel, detail)
}

func (v *VM) faultf(format string, args ...any) error {
	return fmt.Errorf("[pc %d] %s", v.pc, fmt.Sprintf(format, args...))
}

// reg resolves a global register operand with bounds checking.
func (v *VM) reg(idx uint16) (*Value, error) {
	if int(idx) >= len(v.regs) {
		return nil, v.fault(ErrOutOfBounds, "global register %%r%d of %d", idx, len(v.regs))
	}
	return &v.regs[idx], nil
}

// frame returns the active call frame.
func (v *VM) frame() (*Frame, error) {
	if len(v.stack) == 0 {
		return nil, v.fault(ErrNoActiveFrame, "")
	}
	return &v.stack[len(v.stack)-1], nil
}

// local resolves a local operand in the active frame.
func (v *VM) local(idx uint16) (*Value, error) {
	f, err := v.frame()
	if err != nil {
		return nil, err
	}
	if int(idx) >= len(f.locals) {
		return nil, v.fault(ErrOutOfBounds, "local %%l%d of %d", idx, len(f.locals))
	}
	return &f.locals[idx], nil
}

// param resolves a parameter-bank slot, growing the bank on demand. The
// bank is VM-wide state staged across calls, not part of any frame.
func (v *VM) param(idx uint16) *Value {
	for int(idx) >= len(v.params) {
		v.params = append(v.params, Value{})
	}
	return &v.params[idx]
}
