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

// Package vm implements the detvm runtime: a register machine whose
// instruction set models ownership and borrowing alongside arithmetic,
// control flow, arrays and function calls.
//
// The machine addresses three register banks. Global registers (%rN) are
// sized at construction. Locals (%lN) and arguments (%aN) live in the
// current call frame. The parameter bank (%pN) is machine-wide staging
// used to pass arguments into a CALL and to carry the return value out of
// a RET in slot 0.
//
// Execution fetches Instructions from the code vector and dispatches
// through a dense 256-entry table indexed by the opcode byte. Handlers for
// the ownership family (OWN, MOVE, VIEW, EDIT, CLONE, DROP) manipulate the
// refcount carried by every Value; EDIT refuses to promote a value that
// any other view still shares.
//
// Program images produced by the linker are loaded with LoadProgram; see
// the asm and linker packages for the producing side of the pipeline.
package vm
