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

	"github.com/Luks-kit/detvm/vm"
)

// Constant is one typed constant pool entry. The payload field in use
// depends on the tag: INT and CHAR use Int, DOUBLE uses Float, STRING uses
// Str.
type Constant struct {
	Tag   vm.ConstTag
	Int   int64
	Float float64
	Str   string
}

// Equal compares entries pointwise within matching type tags; mismatched
// tags never compare equal.
func (c Constant) Equal(o Constant) bool {
	if c.Tag != o.Tag {
		return false
	}
	switch c.Tag {
	case vm.ConstInt, vm.ConstChar:
		return c.Int == o.Int
	case vm.ConstDouble:
		return c.Float == o.Float
	case vm.ConstString:
		return c.Str == o.Str
	}
	return false
}

// ConstantPool is an append-with-dedup store of typed constants. Indices
// are insertion-order stable: adding an entry equal to an existing one
// returns the prior index without appending.
type ConstantPool struct {
	Entries []Constant

	// hash-indexed fast path for string interning
	stringIndex map[string]int
}

func (p *ConstantPool) AddInt(v int64) int {
	return p.Add(Constant{Tag: vm.ConstInt, Int: v})
}

func (p *ConstantPool) AddDouble(v float64) int {
	return p.Add(Constant{Tag: vm.ConstDouble, Float: v})
}

func (p *ConstantPool) AddChar(c byte) int {
	return p.Add(Constant{Tag: vm.ConstChar, Int: int64(c)})
}

func (p *ConstantPool) AddString(s string) int {
	if idx, ok := p.stringIndex[s]; ok {
		return idx
	}
	p.Entries = append(p.Entries, Constant{Tag: vm.ConstString, Str: s})
	idx := len(p.Entries) - 1
	if p.stringIndex == nil {
		p.stringIndex = make(map[string]int)
	}
	p.stringIndex[s] = idx
	return idx
}

// Add performs a linear dedup by structural equality and appends only when
// no equal entry exists.
func (p *ConstantPool) Add(c Constant) int {
	if c.Tag == vm.ConstString {
		return p.AddString(c.Str)
	}
	for i, e := range p.Entries {
		if e.Equal(c) {
			return i
		}
	}
	p.Entries = append(p.Entries, c)
	return len(p.Entries) - 1
}

func (p *ConstantPool) Size() int { return len(p.Entries) }

// IsIntLiteral reports whether s is a decimal integer with optional sign.
func IsIntLiteral(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' || s[0] == '+' {
		if len(s) == 1 {
			return false
		}
		start = 1
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsFloatLiteral reports whether s is a decimal number containing a '.'.
func IsFloatLiteral(s string) bool {
	start := 0
	if len(s) > 1 && (s[0] == '-' || s[0] == '+') {
		start = 1
	}
	i := start
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start || i >= len(s) || s[i] != '.' {
		return false
	}
	for i++; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsStringLiteral reports whether s is double-quoted.
func IsStringLiteral(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)
}

// IsCharLiteral reports whether s is a single-quoted one-byte character.
func IsCharLiteral(s string) bool {
	return len(s) == 3 && s[0] == '\'' && s[2] == '\''
}

// StripQuotes removes the surrounding double quotes if present.
func StripQuotes(s string) string {
	if IsStringLiteral(s) {
		return s[1 : len(s)-1]
	}
	return s
}
