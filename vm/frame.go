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

// Frame is the per-call activation record. Frames form a LIFO stack: one is
// pushed by CALL/ENTER and popped by the matching RET/LEAVE.
type Frame struct {
	locals   []Value
	args     []Value
	returnPC int
}

func newFrame(argc, localc, returnPC int) Frame {
	return Frame{
		locals:   make([]Value, localc),
		args:     make([]Value, argc),
		returnPC: returnPC,
	}
}

// release runs the drop protocol on every local as the frame dies.
func (f *Frame) release() {
	for i := range f.locals {
		drop(&f.locals[i])
	}
}
