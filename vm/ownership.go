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

// Ownership and borrowing opcodes. Refcounts live on the Value itself;
// execution is single-threaded, so the EDIT check and promotion cannot
// tear.

// opOwn produces an owned deep copy of the source with refcount 1.
func opOwn(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	*dst = src.Clone()
	v.pc++
	return nil
}

// opMove relocates the source to the destination and clears the source so
// the value cannot be dropped twice.
func opMove(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	*dst = *src
	*src = Value{}
	v.pc++
	return nil
}

// opView creates a shared view: both slots end up with the incremented
// shared refcount.
func opView(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	n := src.refs + 1
	src.refs = n
	*dst = *src
	v.pc++
	return nil
}

// opEdit promotes the source to an exclusive reference in dst. Promotion
// fails while any other view of the value is live.
func opEdit(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	if src.refs > 1 {
		return v.fault(ErrSharedEdit, "%%r%d has refcount %d", i.B, src.refs)
	}
	*dst = *src
	dst.refs = 1
	*src = Value{}
	v.pc++
	return nil
}

func opClone(v *VM, i Instruction) error {
	dst, err := v.reg(i.A)
	if err != nil {
		return err
	}
	src, err := v.reg(i.B)
	if err != nil {
		return err
	}
	*dst = src.Clone()
	v.pc++
	return nil
}

// opDrop decrements the refcount; when the last owner drops, the slot is
// cleared. DROP, RAIIDROP, FREE and DECREF all share this protocol.
func opDrop(v *VM, i Instruction) error {
	slot, err := v.reg(i.A)
	if err != nil {
		return err
	}
	drop(slot)
	v.pc++
	return nil
}

func opIncRef(v *VM, i Instruction) error {
	slot, err := v.reg(i.A)
	if err != nil {
		return err
	}
	slot.refs++
	v.pc++
	return nil
}

func opCheckExcl(v *VM, i Instruction) error {
	slot, err := v.reg(i.A)
	if err != nil {
		return err
	}
	if slot.refs > 1 {
		return v.fault(ErrSharedEdit, "%%r%d has refcount %d", i.A, slot.refs)
	}
	v.pc++
	return nil
}

func opCheckLive(v *VM, i Instruction) error {
	slot, err := v.reg(i.A)
	if err != nil {
		return err
	}
	if slot.IsEmpty() {
		return v.fault(ErrDeadValue, "%%r%d", i.A)
	}
	v.pc++
	return nil
}
