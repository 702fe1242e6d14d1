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

// UnresolvedReference marks a jump or call whose symbolic target was not
// bound to a program counter during assembly. TargetInB selects which
// operand field receives the resolved pc: field B for conditional jumps,
// field A otherwise.
type UnresolvedReference struct {
	InstIndex int
	Symbol    string
	Op        vm.Opcode
	TargetInB bool
}

// Function is one .func record: its code range, declared counts, and the
// symbol maps used to rewrite named slots before instruction parsing.
type Function struct {
	Name    string
	Params  uint16
	Locals  uint16
	PCStart int
	PCEnd   int

	LocalNames map[string]uint16
	ParamNames map[string]uint16
}

// Result is the assembler's output: everything an object file carries.
type Result struct {
	Pool       ConstantPool
	Code       []vm.Instruction
	Labels     map[string]int
	Funcs      map[string]*Function
	Unresolved []UnresolvedReference
}

// Assemble runs the first pass over the source lines: directives update the
// current function and label state, named slots are rewritten to register
// tokens, instructions are parsed with their literals interned, and every
// jump or call with a symbolic target lands in the unresolved list. Label
// and function resolution is the linker's second pass.
func Assemble(lines []string) (*Result, error) {
	result := &Result{
		Labels: make(map[string]int),
		Funcs:  make(map[string]*Function),
	}
	var current *Function

	for n, raw := range lines {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		handled, err := directive(line, result, &current)
		if err != nil {
			return nil, fmt.Errorf("line %d: %q: %w", n+1, strings.TrimSpace(raw), err)
		}
		if handled {
			continue
		}

		if current != nil {
			line = rewriteNames(line, current)
		}

		inst, symbol, err := ParseInstruction(line, &result.Pool)
		if err != nil {
			return nil, fmt.Errorf("line %d: %q: %w", n+1, strings.TrimSpace(raw), err)
		}
		result.Code = append(result.Code, inst)

		if symbol != "" {
			result.Unresolved = append(result.Unresolved, UnresolvedReference{
				InstIndex: len(result.Code) - 1,
				Symbol:    symbol,
				Op:        inst.Op,
				TargetInB: vm.IsCondJump(inst.Op),
			})
		}
	}

	return result, nil
}

// directive handles assembler directives and named-slot declarations.
// It reports whether the line was consumed.
func directive(line string, result *Result, current **Function) (bool, error) {
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch word {
	case ".func":
		if rest == "" {
			return false, fmt.Errorf(".func: missing function name")
		}
		fn := &Function{
			Name:       rest,
			PCStart:    len(result.Code),
			LocalNames: make(map[string]uint16),
			ParamNames: make(map[string]uint16),
		}
		result.Funcs[rest] = fn
		*current = fn
		return true, nil

	case ".label":
		if rest == "" {
			return false, fmt.Errorf(".label: missing label name")
		}
		result.Labels[rest] = len(result.Code)
		return true, nil

	case ".code":
		if *current == nil {
			return false, fmt.Errorf(".code outside of function")
		}
		(*current).PCStart = len(result.Code)
		result.Labels[(*current).Name] = len(result.Code)
		return true, nil

	case ".params", ".locals":
		if *current == nil {
			return false, fmt.Errorf("%s outside of function", word)
		}
		n, err := strconv.ParseUint(rest, 10, 16)
		if err != nil {
			return false, fmt.Errorf("%s: bad count %q", word, rest)
		}
		if word == ".params" {
			(*current).Params = uint16(n)
		} else {
			(*current).Locals = uint16(n)
		}
		return true, nil

	case ".end":
		if *current == nil {
			return false, fmt.Errorf(".end outside of function")
		}
		(*current).PCEnd = len(result.Code)
		*current = nil
		return true, nil

	case "var":
		if *current == nil {
			return false, fmt.Errorf("var outside of function")
		}
		fn := *current
		index := uint16(len(fn.LocalNames))
		if index >= fn.Locals {
			return false, fmt.Errorf("too many named locals: %q exceeds .locals %d", rest, fn.Locals)
		}
		fn.LocalNames[rest] = index
		return true, nil

	case "param":
		if *current == nil {
			return false, fmt.Errorf("param outside of function")
		}
		fn := *current
		index := uint16(len(fn.ParamNames))
		if index >= fn.Params {
			return false, fmt.Errorf("too many named params: %q exceeds .params %d", rest, fn.Params)
		}
		fn.ParamNames[rest] = index
		return true, nil
	}

	if strings.HasPrefix(word, ".") {
		return false, fmt.Errorf("unknown directive %q", word)
	}
	return false, nil
}

// stripComment cuts the line at the first ';' outside double quotes.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

// rewriteNames substitutes declared local and parameter names with their
// %lN / %aN register tokens. It walks identifier tokens rather than running
// regexes over the raw text: the mnemonic, register tokens and quoted
// strings are never touched.
func rewriteNames(line string, fn *Function) string {
	var out strings.Builder
	out.Grow(len(line))

	first := true
	inString := false
	for i := 0; i < len(line); {
		c := line[i]
		if c == '"' {
			inString = !inString
		}
		if inString || !isIdentStart(c) || (i > 0 && line[i-1] == '%') {
			out.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(line) && isIdentRune(line[j]) {
			j++
		}
		tok := line[i:j]
		switch {
		case first:
			out.WriteString(tok) // the mnemonic is not a name
		case lookupName(fn.LocalNames, tok) >= 0:
			fmt.Fprintf(&out, "%%l%d", lookupName(fn.LocalNames, tok))
		case lookupName(fn.ParamNames, tok) >= 0:
			fmt.Fprintf(&out, "%%a%d", lookupName(fn.ParamNames, tok))
		default:
			out.WriteString(tok)
		}
		first = false
		i = j
	}
	return out.String()
}

func lookupName(names map[string]uint16, tok string) int {
	if idx, ok := names[tok]; ok {
		return int(idx)
	}
	return -1
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentRune(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
