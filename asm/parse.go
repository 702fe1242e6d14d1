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
	"fmt"
	"strconv"
	"strings"

	"github.com/Luks-kit/detvm/vm"
)

// Register banks as they appear after the '%' in operand tokens.
const (
	bankGlobal = 'r'
	bankLocal  = 'l'
	bankArg    = 'a'
	bankParam  = 'p'
)

// parseRegister splits a %-prefixed register token into its bank selector
// and index.
func parseRegister(tok string) (byte, uint16, error) {
	if len(tok) < 3 || tok[0] != '%' {
		return 0, 0, fmt.Errorf("invalid register %q", tok)
	}
	bank := tok[1]
	switch bank {
	case bankGlobal, bankLocal, bankArg, bankParam:
	default:
		return 0, 0, fmt.Errorf("invalid register %q: unknown bank %q", tok, string(bank))
	}
	n, err := strconv.ParseUint(tok[2:], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid register %q: %w", tok, err)
	}
	return bank, uint16(n), nil
}

// wantReg parses tok and enforces the expected bank.
func wantReg(tok string, bank byte) (uint16, error) {
	b, idx, err := parseRegister(tok)
	if err != nil {
		return 0, err
	}
	if b != bank {
		return 0, fmt.Errorf("operand %q: expected a %%%s register", tok, string(bank))
	}
	return idx, nil
}

// wantLiteral parses tok as a small unsigned literal (counts, lengths).
func wantLiteral(tok string) (uint16, error) {
	n, err := strconv.ParseUint(tok, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("operand %q: expected an integer literal", tok)
	}
	return uint16(n), nil
}

// isSymbol reports whether tok can name a label or function.
func isSymbol(tok string) bool {
	if tok == "" || tok[0] == '%' || (tok[0] >= '0' && tok[0] <= '9') {
		return false
	}
	for _, r := range tok {
		ok := r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// splitOperands breaks the operand text on commas, trimming each token.
func splitOperands(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseInstruction parses one (already rewritten) source line into an
// Instruction, interning literal constants into pool. For jumps and calls
// the returned symbol names the still-unresolved target.
//
// Lines have the shape "MNEMONIC operands [-> dest]". With an arrow the
// destination becomes operand 0 and the comma-separated sources follow; the
// bare comma form lists operands in field order. LOADC and LOADCL take the
// whole remainder before the arrow verbatim so quoted strings survive.
func ParseInstruction(line string, pool *ConstantPool) (vm.Instruction, string, error) {
	mnemonic, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	op, ok := vm.OpcodeByName(mnemonic)
	if !ok {
		return vm.Instruction{}, "", fmt.Errorf("unknown mnemonic %q", mnemonic)
	}
	inst := vm.Instruction{Op: op}

	// Split on the last arrow so LOADC string literals may contain "->".
	var dest string
	srcText := rest
	if at := strings.LastIndex(rest, "->"); at >= 0 {
		dest = strings.TrimSpace(rest[at+2:])
		srcText = strings.TrimSpace(rest[:at])
		if dest == "" {
			return vm.Instruction{}, "", fmt.Errorf("missing destination after ->")
		}
	}

	// Constant loads keep the source text verbatim.
	if op == vm.OpLoadC || op == vm.OpLoadCL {
		if dest == "" {
			return vm.Instruction{}, "", fmt.Errorf("%s needs a -> destination", mnemonic)
		}
		bank := byte(bankGlobal)
		if op == vm.OpLoadCL {
			bank = bankLocal
		}
		idx, err := wantReg(dest, bank)
		if err != nil {
			return vm.Instruction{}, "", err
		}
		poolIdx, err := internLiteral(pool, srcText)
		if err != nil {
			return vm.Instruction{}, "", err
		}
		inst.A = idx
		inst.B = uint16(poolIdx)
		return inst, "", nil
	}

	ops := splitOperands(srcText)
	if dest != "" {
		ops = append([]string{dest}, ops...)
	}

	need := func(n int) error {
		if len(ops) != n {
			return fmt.Errorf("%s expects %d operand(s), got %d", mnemonic, n, len(ops))
		}
		return nil
	}
	regs := func(banks ...byte) error {
		if err := need(len(banks)); err != nil {
			return err
		}
		fields := []*uint16{&inst.A, &inst.B, &inst.C}
		for i, bank := range banks {
			idx, err := wantReg(ops[i], bank)
			if err != nil {
				return err
			}
			*fields[i] = idx
		}
		return nil
	}

	var symbol string
	var err error
	switch op {
	case vm.OpAdd, vm.OpSub, vm.OpMul, vm.OpDiv, vm.OpCmp, vm.OpAnd, vm.OpOr:
		err = regs(bankGlobal, bankGlobal, bankGlobal)
	case vm.OpAddL, vm.OpSubL, vm.OpMulL, vm.OpDivL, vm.OpCmpL, vm.OpAndL, vm.OpOrL:
		err = regs(bankLocal, bankLocal, bankLocal)
	case vm.OpMov, vm.OpNeg, vm.OpNot,
		vm.OpOwn, vm.OpMove, vm.OpView, vm.OpEdit, vm.OpClone:
		err = regs(bankGlobal, bankGlobal)
	case vm.OpMovL, vm.OpNegL, vm.OpNotL:
		err = regs(bankLocal, bankLocal)
	case vm.OpLoadL:
		err = regs(bankGlobal, bankLocal)
	case vm.OpStoreL:
		err = regs(bankLocal, bankGlobal)
	case vm.OpLoadArg:
		err = regs(bankLocal, bankArg)
	case vm.OpLoadP:
		err = regs(bankParam, bankGlobal)
	case vm.OpLoadLP:
		err = regs(bankParam, bankLocal)
	case vm.OpLoadArr:
		err = regs(bankGlobal, bankGlobal, bankGlobal)
	case vm.OpStoreArr:
		err = regs(bankGlobal, bankGlobal, bankGlobal)
	case vm.OpLen:
		err = regs(bankGlobal, bankGlobal)
	case vm.OpDrop, vm.OpRAIIDrop, vm.OpFree,
		vm.OpIncRef, vm.OpDecRef, vm.OpCheckExcl, vm.OpCheckLive:
		err = regs(bankGlobal)

	case vm.OpNewArr:
		if err = need(2); err != nil {
			break
		}
		if inst.A, err = wantReg(ops[0], bankGlobal); err != nil {
			break
		}
		inst.C, err = wantLiteral(ops[1])

	case vm.OpJmp:
		if err = need(1); err != nil {
			break
		}
		if !isSymbol(ops[0]) {
			err = fmt.Errorf("JMP target %q is not a label", ops[0])
			break
		}
		symbol = ops[0]
	case vm.OpJz, vm.OpJnz, vm.OpJl, vm.OpJg:
		symbol, err = parseCondJump(&inst, mnemonic, ops, bankGlobal)
	case vm.OpJlz, vm.OpJlnz, vm.OpJll, vm.OpJlg:
		symbol, err = parseCondJump(&inst, mnemonic, ops, bankLocal)

	case vm.OpCall:
		if len(ops) != 1 && len(ops) != 2 {
			err = fmt.Errorf("CALL expects a function name and optional argc, got %d operand(s)", len(ops))
			break
		}
		if !isSymbol(ops[0]) {
			err = fmt.Errorf("CALL target %q is not a function name", ops[0])
			break
		}
		symbol = ops[0]
		if len(ops) == 2 {
			inst.B, err = wantLiteral(ops[1])
		}

	case vm.OpRet:
		if len(ops) == 0 {
			inst.A = vm.NoReturn
			break
		}
		if err = need(1); err != nil {
			break
		}
		inst.A, err = wantReg(ops[0], bankLocal)

	case vm.OpEnter:
		if err = need(2); err != nil {
			break
		}
		if inst.B, err = wantLiteral(ops[0]); err != nil {
			break
		}
		inst.C, err = wantLiteral(ops[1])

	case vm.OpPrint:
		if err = need(1); err != nil {
			break
		}
		var bank byte
		var idx uint16
		if bank, idx, err = parseRegister(ops[0]); err != nil {
			break
		}
		inst.A = idx
		switch bank {
		case bankGlobal:
			inst.B = vm.BankGlobal
		case bankParam:
			inst.B = vm.BankParam
		case bankLocal:
			inst.B = vm.BankLocal
		default:
			err = fmt.Errorf("PRINT operand %q: arguments are not printable directly", ops[0])
		}

	case vm.OpLeave, vm.OpHalt, vm.OpNop:
		err = need(0)

	default:
		err = fmt.Errorf("mnemonic %q cannot be assembled", mnemonic)
	}
	if err != nil {
		return vm.Instruction{}, "", err
	}
	return inst, symbol, nil
}

func parseCondJump(inst *vm.Instruction, mnemonic string, ops []string, bank byte) (string, error) {
	if len(ops) != 2 {
		return "", fmt.Errorf("%s expects a condition register and a label, got %d operand(s)", mnemonic, len(ops))
	}
	idx, err := wantReg(ops[0], bank)
	if err != nil {
		return "", err
	}
	if !isSymbol(ops[1]) {
		return "", fmt.Errorf("%s target %q is not a label", mnemonic, ops[1])
	}
	inst.A = idx
	return ops[1], nil
}

// internLiteral classifies a constant literal and interns it into the pool.
func internLiteral(pool *ConstantPool, lit string) (int, error) {
	switch {
	case IsIntLiteral(lit):
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("integer literal %q: %w", lit, err)
		}
		return pool.AddInt(n), nil
	case IsFloatLiteral(lit):
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return 0, fmt.Errorf("float literal %q: %w", lit, err)
		}
		return pool.AddDouble(f), nil
	case IsStringLiteral(lit):
		return pool.AddString(StripQuotes(lit)), nil
	case IsCharLiteral(lit):
		return pool.AddChar(lit[1]), nil
	}
	return 0, fmt.Errorf("bad constant literal %q", lit)
}
