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

// The local-register instruction family. Contracts mirror the global family
// but every operand addresses the current frame's locals.

func opLoadCL(v *VM, i Instruction) error {
	dst, err := v.local(i.A)
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

func opMovL(v *VM, i Instruction) error {
	dst, err := v.local(i.A)
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

func (v *VM) localBinop(i Instruction) error {
	dst, err := v.local(i.A)
	if err != nil {
		return err
	}
	x, err := v.local(i.B)
	if err != nil {
		return err
	}
	y, err := v.local(i.C)
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

func opAddL(v *VM, i Instruction) error { return v.localBinop(i) }
func opSubL(v *VM, i Instruction) error { return v.localBinop(i) }
func opMulL(v *VM, i Instruction) error { return v.localBinop(i) }
func opDivL(v *VM, i Instruction) error { return v.localBinop(i) }

func opNegL(v *VM, i Instruction) error {
	dst, err := v.local(i.A)
	if err != nil {
		return err
	}
	src, err := v.local(i.B)
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

func opCmpL(v *VM, i Instruction) error {
	dst, err := v.local(i.A)
	if err != nil {
		return err
	}
	x, err := v.local(i.B)
	if err != nil {
		return err
	}
	y, err := v.local(i.C)
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

func opNotL(v *VM, i Instruction) error {
	dst, err := v.local(i.A)
	if err != nil {
		return err
	}
	src, err := v.local(i.B)
	if err != nil {
		return err
	}
	*dst = BoolValue(!src.AsBool())
	v.pc++
	return nil
}

func opAndL(v *VM, i Instruction) error {
	dst, err := v.local(i.A)
	if err != nil {
		return err
	}
	x, err := v.local(i.B)
	if err != nil {
		return err
	}
	y, err := v.local(i.C)
	if err != nil {
		return err
	}
	*dst = BoolValue(x.AsBool() && y.AsBool())
	v.pc++
	return nil
}

func opOrL(v *VM, i Instruction) error {
	dst, err := v.local(i.A)
	if err != nil {
		return err
	}
	x, err := v.local(i.B)
	if err != nil {
		return err
	}
	y, err := v.local(i.C)
	if err != nil {
		return err
	}
	*dst = BoolValue(x.AsBool() || y.AsBool())
	v.pc++
	return nil
}

func opJlz(v *VM, i Instruction) error {
	cond, err := v.local(i.A)
	if err != nil {
		return err
	}
	return v.condJump(*cond, i.B, func(n int32) bool { return n == 0 })
}

func opJlnz(v *VM, i Instruction) error {
	cond, err := v.local(i.A)
	if err != nil {
		return err
	}
	return v.condJump(*cond, i.B, func(n int32) bool { return n != 0 })
}

func opJll(v *VM, i Instruction) error {
	cond, err := v.local(i.A)
	if err != nil {
		return err
	}
	return v.condJump(*cond, i.B, func(n int32) bool { return n < 0 })
}

func opJlg(v *VM, i Instruction) error {
	cond, err := v.local(i.A)
	if err != nil {
		return err
	}
	return v.condJump(*cond, i.B, func(n int32) bool { return n > 0 })
}
