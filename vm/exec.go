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

// Handlers for the global-register instruction families, control flow,
// calls, arrays and parameter marshalling. Every handler either advances pc
// past its instruction or sets it to the jump target.

// numericBinop applies an arithmetic opcode to two numeric values. Mixed
// int/double operands promote to double; pure int arithmetic wraps at 32
// bits.
func (v *VM) numericBinop(op Opcode, x, y Value) (Value, error) {
	if x.Kind() == KindDouble || y.Kind() == KindDouble {
		fx, err := x.AsFloat()
		if err != nil {
			return Value{}, v.faultf("%s: %s", op, err)
		}
		fy, err := y.AsFloat()
		if err != nil {
			return Value{}, v.faultf("%s: %s", op, err)
		}
		switch op {
		case OpAdd, OpAddL:
			return DoubleValue(fx + fy), nil
		case OpSub, OpSubL:
			return DoubleValue(fx - fy), nil
		case OpMul, OpMulL:
			return DoubleValue(fx * fy), nil
		case OpDiv, OpDivL:
			if fy == 0 {
				return Value{}, v.fault(ErrDivideByZero, "%g / %g", fx, fy)
			}
			return DoubleValue(fx / fy), nil
		}
	}
	ix, err := x.AsInt()
	if err != nil {
		return Value{}, v.faultf("%s: %s", op, err)
	}
	iy, err := y.AsInt()
	if err != nil {
		return Value{}, v.faultf("%s: %s", op, err)
	}
	switch op {
	case OpAdd, OpAddL:
		return IntValue(ix + iy), nil
	case OpSub, OpSubL:
		return IntValue(ix - iy), nil
	case OpMul, OpMulL:
		return IntValue(ix * iy), nil
	case OpDiv, OpDivL:
		if iy == 0 {
			return Value{}, v.fault(ErrDivideByZero, "%d / %d", ix, iy)
		}
		return IntValue(ix / iy), nil
	}
	return Value{}, v.faultf("numericBinop: unexpected opcode %s", op)
}

// compareValues yields -1, 0 or +1. Mixed operands compare as doubles.
func (v *VM) compareValues(op Opcode, x, y Value) (Value, error) {
	if x.Kind() == KindDouble || y.Kind() == KindDouble {
		fx, err := x.AsFloat()
		if err != nil {
			return Value{}, v.faultf("%s: %s", op, err)
		}
		fy, err := y.AsFloat()
		if err != nil {
			return Value{}, v.faultf("%s: %s", op, err)
		}
		switch {
		case fx < fy:
			return IntValue(-1), nil
		case fx > fy:
			return IntValue(1), nil
		}
		return IntValue(0), nil
	}
	ix, err := x.AsInt()
	if err != nil {
		return Value{}, v.faultf("%s: %s", op, err)
	}
	iy, err := y.AsInt()
	if err != nil {
		return Value{}, v.faultf("%s: %s", op, err)
	}
	switch {
	case ix < iy:
		return IntValue(-1), nil
	case ix > iy:
		return IntValue(1), nil
	}
	return IntValue(0), nil
}

func opLoadC(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	if int(i.B) >= len(v.pool) {
		return v.fault(ErrOutOfBounds, "constant pool index %d of %d", i.B, len(v.pool))
	}
	val := v.pool[i.B]
	val.refs = 1
	*dst = val
	v.pc++
	return nil
}

func opLoadL(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.local(i.B)
	if err != nil {
		return err
	}
	*dst = *src
	v.pc++
	return nil
}

func opStoreL(v *VM, i Instruction) error {
	dst, err := v.local(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	*dst = *src
	v.pc++
	return nil
}

func opMov(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	*dst = *src
	v.pc++
	return nil
}

func (v *VM) globalBinop(i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	x, err := v.reg(i.B)
	if err != nil {
		return err
	}
	y, err := v.reg(i.C)
	if err != nil {
		return err
	}
	out, err := v.numericBinop(i.Op, *x, *y)
	if err != nil {
		return err
	}
	*dst = out
	v.pc++
	return nil
}

func opAdd(v *VM, i Instruction) error { return v.globalBinop(i) }
func opSub(v *VM, i Instruction) error { return v.globalBinop(i) }
func opMul(v *VM, i Instruction) error { return v.globalBinop(i) }
func opDiv(v *VM, i Instruction) error { return v.globalBinop(i) }

func opNeg(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	out, err := negate(v, *src)
	if err != nil {
		return err
	}
	*dst = out
	v.pc++
	return nil
}

func negate(v *VM, val Value) (Value, error) {
	if val.Kind() == KindDouble {
		f, _ := val.AsFloat()
		return DoubleValue(-f), nil
	}
	n, err := val.AsInt()
	if err != nil {
		return Value{}, v.faultf("NEG: %s", err)
	}
	return IntValue(-n), nil
}

func opCmp(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	x, err := v.reg(i.B)
	if err != nil {
		return err
	}
	y, err := v.reg(i.C)
	if err != nil {
		return err
	}
	out, err := v.compareValues(i.Op, *x, *y)
	if err != nil {
		return err
	}
	*dst = out
	v.pc++
	return nil
}

func opNot(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	*dst = BoolValue(!src.AsBool())
	v.pc++
	return nil
}

// AND and OR evaluate both operands; by the time they execute, both values
// are already materialised in registers, so there is nothing to short-circuit.
func opAnd(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	x, err := v.reg(i.B)
	if err != nil {
		return err
	}
	y, err := v.reg(i.C)
	if err != nil {
		return err
	}
	*dst = BoolValue(x.AsBool() && y.AsBool())
	v.pc++
	return nil
}

func opOr(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	x, err := v.reg(i.B)
	if err != nil {
		return err
	}
	y, err := v.reg(i.C)
	if err != nil {
		return err
	}
	*dst = BoolValue(x.AsBool() || y.AsBool())
	v.pc++
	return nil
}

func opJmp(v *VM, i Instruction) error {
	v.pc = int(i.A)
	return nil
}

// condJump converts the condition value to an int and jumps to target when
// pred holds; otherwise it advances pc.
func (v *VM) condJump(cond Value, target uint16, pred func(int32) bool) error {
	n, err := cond.AsInt()
	if err != nil {
		return v.faultf("conditional jump: %s", err)
	}
	if pred(n) {
		v.pc = int(target)
	} else {
		v.pc++
	}
	return nil
}

func opJz(v *VM, i Instruction) error {
	cond, err := v.reg(i.A)
	if err != nil {
		return err
	}
	return v.condJump(*cond, i.B, func(n int32) bool { return n == 0 })
}

func opJnz(v *VM, i Instruction) error {
	cond, err := v.reg(i.A)
	if err != nil {
		return err
	}
	return v.condJump(*cond, i.B, func(n int32) bool { return n != 0 })
}

func opJl(v *VM, i Instruction) error {
	cond, err := v.reg(i.A)
	if err != nil {
		return err
	}
	return v.condJump(*cond, i.B, func(n int32) bool { return n < 0 })
}

func opJg(v *VM, i Instruction) error {
	cond, err := v.reg(i.A)
	if err != nil {
		return err
	}
	return v.condJump(*cond, i.B, func(n int32) bool { return n > 0 })
}

// opCall pushes a frame sized by the callee's argument and local counts,
// copies the staged parameters into the new frame, and transfers control.
// The arguments land both in args[0..B) and locals[0..B): LOADARG reads the
// former, direct %lN references the latter.
func opCall(v *VM, i Instruction) error {
	argc := int(i.B)
	f := newFrame(argc, int(i.C), v.pc+1)
	for n := 0; n < argc; n++ {
		arg := *v.param(uint16(n))
		f.args[n] = arg
		if n < len(f.locals) {
			f.locals[n] = arg
		}
	}
	v.stack = append(v.stack, f)
	v.pc = int(i.A)
	return nil
}

func opRet(v *VM, i Instruction) error {
	f, err := v.frame()
	if err != nil {
		return err
	}
	var ret Value
	if i.A != NoReturn {
		if int(i.A) >= len(f.locals) {
			return v.fault(ErrOutOfBounds, "return local %%l%d of %d", i.A, len(f.locals))
		}
		ret = f.locals[i.A]
	}
	f.release()
	v.stack = v.stack[:len(v.stack)-1]
	// A value-less RET leaves parameter register 0 alone, so a tail
	// call's result propagates to the original caller.
	if i.A != NoReturn {
		*v.param(0) = ret
	}
	v.pc = f.returnPC
	return nil
}

// ENTER and LEAVE are the primitive frame push and pop for hand-written
// code. Neither transfers control: control transfer is what CALL/RET add
// on top.
func opEnter(v *VM, i Instruction) error {
	v.stack = append(v.stack, newFrame(int(i.B), int(i.C), v.pc+1))
	v.pc++
	return nil
}

func opLeave(v *VM, i Instruction) error {
	f, err := v.frame()
	if err != nil {
		return err
	}
	f.release()
	v.stack = v.stack[:len(v.stack)-1]
	v.pc++
	return nil
}

func opNewArr(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	*dst = ArrayValue(int(i.C))
	v.pc++
	return nil
}

func opLoadArr(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	arrReg, err := v.reg(i.B)
	if err != nil {
		return err
	}
	idxReg, err := v.reg(i.C)
	if err != nil {
		return err
	}
	arr, err := arrReg.AsArray()
	if err != nil {
		return v.faultf("LOADARR: %s", err)
	}
	idx, err := idxReg.AsInt()
	if err != nil {
		return v.faultf("LOADARR: %s", err)
	}
	if idx < 0 || int(idx) >= len(arr) {
		return v.fault(ErrOutOfBounds, "array read at index %d, length %d", idx, len(arr))
	}
	*dst = arr[idx]
	v.pc++
	return nil
}

func opStoreArr(v *VM, i Instruction) error {
	arrReg, err := v.reg(i.A)
	if err != nil {
		return err
	}
	idxReg, err := v.reg(i.B)
	if err != nil {
		return err
	}
	val, err := v.reg(i.C)
	if err != nil {
		return err
	}
	arr, err := arrReg.AsArray()
	if err != nil {
		return v.faultf("STOREARR: %s", err)
	}
	idx, err := idxReg.AsInt()
	if err != nil {
		return v.faultf("STOREARR: %s", err)
	}
	if idx < 0 || int(idx) >= len(arr) {
		return v.fault(ErrOutOfBounds, "array write at index %d, length %d", idx, len(arr))
	}
	arr[idx] = *val
	v.pc++
	return nil
}

func opLen(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	arr, err := src.AsArray()
	if err != nil {
		return v.faultf("LEN: %s", err)
	}
	*dst = IntValue(int32(len(arr)))
	v.pc++
	return nil
}

func opNop(v *VM, _ Instruction) error {
	v.pc++
	return nil
}

func opPrint(v *VM, i Instruction) error {
	var val *Value
	switch i.B {
	case BankParam:
		val = v.param(i.A)
	case BankLocal:
		l, err := v.local(i.A)
		if err != nil {
			return err
		}
		val = l
	default:
		r, err := v.reg(i.A)
		if err != nil {
			return err
		}
		val = r
	}
	if _, err := v.out.WriteString(val.String() + "\n"); err != nil {
		return v.faultf("PRINT: %s", err)
	}
	v.pc++
	return nil
}

// opHalt terminates the run loop by parking pc past the last instruction.
func opHalt(v *VM, _ Instruction) error {
	v.pc = len(v.code)
	return nil
}

func opLoadArg(v *VM, i Instruction) error {
	f, err := v.frame()
	if err != nil {
		return err
	}
	if int(i.B) >= len(f.args) {
		return v.fault(ErrOutOfBounds, "argument %%a%d of %d", i.B, len(f.args))
	}
	dst, err := v.local(i.A)
	if err != nil {
		return err
	}
	*dst = f.args[i.B]
	v.pc++
	return nil
}

func opLoadP(v *VM, i Instruction) error {
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	*v.param(i.A) = *src
	v.pc++
	return nil
}

func opLoadLP(v *VM, i Instruction) error {
	src, err := v.local(i.B)
	if err != nil {
		return err
	}
	*v.param(i.A) = *src
	v.pc++
	return nil
}
