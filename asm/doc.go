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

// Package asm assembles detvm assembly source into relocatable object
// files.
//
// The language is line-oriented. Empty lines and lines starting with ';'
// are ignored; a ';' outside a quoted string starts a trailing comment.
//
// Directives:
//
//	.func NAME      open a function record
//	.params N       declare the parameter count of the open function
//	.locals N       declare the local count of the open function
//	.code           mark the function body start (also defines label NAME)
//	.end            close the open function
//	.label NAME     bind NAME to the next instruction's pc
//
// Inside a function, "var NAME" and "param NAME" declare named slots: each
// allocates the next local or parameter index and NAME may then be used
// anywhere a %lN or %aN operand is expected.
//
// Instructions have the shape
//
//	MNEMONIC [operand[, operand...]] [-> dest]
//
// Register operands are %-prefixed with a one-letter bank selector: %rN is
// a global register, %lN a frame local, %aN a call argument, %pN a
// parameter register. LOADC and LOADCL take their constant literal
// verbatim up to the arrow, so quoted strings may contain commas:
//
//	LOADC "hello, world" -> %r1
//	LOADCL 3.25 -> %l0
//
// Jump and call targets are symbolic; the assembler records them as
// unresolved references, and the linker binds them to program counters:
//
//	.func fact
//	.params 1
//	.locals 2
//	param n
//	.code
//	LOADARG %l0, %a0
//	...
//	RET %l1
//	.end
package asm
