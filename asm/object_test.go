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
	"bytes"
	"reflect"
	"testing"
)

func sampleResult(t *testing.T) *Result {
	t.Helper()
	result, err := Assemble([]string{
		`LOADC "hi" -> %r1`,
		"LOADC 42 -> %r2",
		"LOADC 2.5 -> %r3",
		"LOADC 'c' -> %r4",
		".func fib",
		".params 1",
		".locals 2",
		".code",
		"LOADCL 1 -> %l1",
		"RET %l1",
		".end",
		".label start",
		"CALL fib",
		"JMP start",
		"JNZ %r2, missing",
		"HALT",
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	return result
}

func TestObjectRoundTrip(t *testing.T) {
	result := sampleResult(t)
	data := WriteObject(result)

	got, err := ReadObject(data)
	if err != nil {
		t.Fatalf("ReadObject() error = %v", err)
	}

	if !reflect.DeepEqual(got.Pool.Entries, result.Pool.Entries) {
		t.Errorf("pool entries differ:\ngot  %+v\nwant %+v", got.Pool.Entries, result.Pool.Entries)
	}
	if !reflect.DeepEqual(got.Code, result.Code) {
		t.Errorf("code differs:\ngot  %+v\nwant %+v", got.Code, result.Code)
	}
	if !reflect.DeepEqual(got.Unresolved, result.Unresolved) {
		t.Errorf("unresolved differ:\ngot  %+v\nwant %+v", got.Unresolved, result.Unresolved)
	}
	if !reflect.DeepEqual(got.Labels, result.Labels) {
		t.Errorf("labels differ:\ngot  %+v\nwant %+v", got.Labels, result.Labels)
	}
	for name, fn := range result.Funcs {
		decoded, ok := got.Funcs[name]
		if !ok {
			t.Fatalf("function %q missing after round trip", name)
		}
		if decoded.Params != fn.Params || decoded.Locals != fn.Locals ||
			decoded.PCStart != fn.PCStart || decoded.PCEnd != fn.PCEnd {
			t.Errorf("function %q = %+v, want %+v", name, decoded, fn)
		}
	}
}

// The encoder must be deterministic: map-backed sections are sorted.
func TestWriteObject_Deterministic(t *testing.T) {
	a := WriteObject(sampleResult(t))
	b := WriteObject(sampleResult(t))
	if !bytes.Equal(a, b) {
		t.Error("two encodings of the same result differ")
	}
}

func TestObjectHeader(t *testing.T) {
	data := WriteObject(sampleResult(t))
	if string(data[:4]) != ObjectMagic {
		t.Errorf("magic = %q, want %q", data[:4], ObjectMagic)
	}
	// version u16 little-endian
	if data[4] != 1 || data[5] != 0 {
		t.Errorf("version bytes = % x, want 01 00", data[4:6])
	}
	if string(data[6:10]) != "POOL" {
		t.Errorf("first section tag = %q, want POOL", data[6:10])
	}
}

func TestReadObject_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("NOPE\x01\x00")},
		{"truncated", WriteObject(sampleResult(t))[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadObject(tt.data); err == nil {
				t.Error("ReadObject() succeeded on corrupt input, want error")
			}
		})
	}
}

func TestReadObject_BadVersion(t *testing.T) {
	data := WriteObject(sampleResult(t))
	data = append([]byte{}, data...)
	data[4] = 9
	if _, err := ReadObject(data); err == nil {
		t.Error("ReadObject() accepted version 9, want error")
	}
}
