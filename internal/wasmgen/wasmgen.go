// Package wasmgen fabricates small core wasm modules: enough of the binary
// format to build plugin artifacts with exported functions, exported
// globals, and cross-module function imports. Tests and the fixture tool
// use it in place of a real native toolchain build.
package wasmgen

import "bytes"

// ValType is a core value type byte
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// Core opcodes used by the body helpers
const (
	opEnd      = 0x0b
	opCall     = 0x10
	opLocalGet = 0x20
	opI32Const = 0x41
	opI64Const = 0x42
	opI32Add   = 0x6a
)

// Section ids in encoding order
const (
	secType     = 0x01
	secImport   = 0x02
	secFunction = 0x03
	secGlobal   = 0x06
	secExport   = 0x07
	secCode     = 0x0a
)

const (
	kindFunc   = 0x00
	kindGlobal = 0x03
)

// FuncType is a core function signature
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is a function imported from another module. Imports occupy the
// front of the function index space, in order.
type Import struct {
	Module string
	Name   string
	Type   FuncType
}

// Func is a defined function. Body is the complete expression including
// the trailing end opcode; the body helpers below produce that form. An
// empty Name keeps the function unexported.
type Func struct {
	Name string
	Type FuncType
	Body []byte
}

// Global is a defined integer global. An empty Name keeps it unexported.
type Global struct {
	Name    string
	Type    ValType
	Value   int64
	Mutable bool
}

// Module is a buildable core wasm module
type Module struct {
	Imports []Import
	Funcs   []Func
	Globals []Global
}

// Encode renders the module to the wasm binary format
func (m *Module) Encode() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d}) // magic
	out.Write([]byte{0x01, 0x00, 0x00, 0x00}) // version

	// one type entry per import, then per defined function
	if n := len(m.Imports) + len(m.Funcs); n > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(n))
		for _, imp := range m.Imports {
			writeFuncType(&sec, imp.Type)
		}
		for _, fn := range m.Funcs {
			writeFuncType(&sec, fn.Type)
		}
		writeSection(&out, secType, sec.Bytes())
	}

	if len(m.Imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Imports)))
		for i, imp := range m.Imports {
			writeName(&sec, imp.Module)
			writeName(&sec, imp.Name)
			sec.WriteByte(kindFunc)
			writeU32(&sec, uint32(i))
		}
		writeSection(&out, secImport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for i := range m.Funcs {
			writeU32(&sec, uint32(len(m.Imports)+i))
		}
		writeSection(&out, secFunction, sec.Bytes())
	}

	if len(m.Globals) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec.WriteByte(byte(g.Type))
			if g.Mutable {
				sec.WriteByte(1)
			} else {
				sec.WriteByte(0)
			}
			writeConst(&sec, g.Type, g.Value)
			sec.WriteByte(opEnd)
		}
		writeSection(&out, secGlobal, sec.Bytes())
	}

	if n := m.exportCount(); n > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(n))
		for i, fn := range m.Funcs {
			if fn.Name == "" {
				continue
			}
			writeName(&sec, fn.Name)
			sec.WriteByte(kindFunc)
			writeU32(&sec, uint32(len(m.Imports)+i))
		}
		for i, g := range m.Globals {
			if g.Name == "" {
				continue
			}
			writeName(&sec, g.Name)
			sec.WriteByte(kindGlobal)
			writeU32(&sec, uint32(i))
		}
		writeSection(&out, secExport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for _, fn := range m.Funcs {
			var body bytes.Buffer
			writeU32(&body, 0) // no local declarations
			body.Write(fn.Body)
			writeU32(&sec, uint32(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&out, secCode, sec.Bytes())
	}

	return out.Bytes()
}

func (m *Module) exportCount() int {
	n := 0
	for _, fn := range m.Funcs {
		if fn.Name != "" {
			n++
		}
	}
	for _, g := range m.Globals {
		if g.Name != "" {
			n++
		}
	}
	return n
}

// IdentityBody returns a body handing back the first parameter
func IdentityBody() []byte {
	return []byte{opLocalGet, 0x00, opEnd}
}

// AddI32Body returns a body adding its two i32 parameters
func AddI32Body() []byte {
	return []byte{opLocalGet, 0x00, opLocalGet, 0x01, opI32Add, opEnd}
}

// ConstI32Body returns a body producing a fixed i32
func ConstI32Body(v int32) []byte {
	var b bytes.Buffer
	b.WriteByte(opI32Const)
	writeS32(&b, v)
	b.WriteByte(opEnd)
	return b.Bytes()
}

// CallBody returns a body forwarding nparams parameters to the function
// at index fn and returning its result
func CallBody(fn uint32, nparams int) []byte {
	var b bytes.Buffer
	for i := 0; i < nparams; i++ {
		b.WriteByte(opLocalGet)
		writeU32(&b, uint32(i))
	}
	b.WriteByte(opCall)
	writeU32(&b, fn)
	b.WriteByte(opEnd)
	return b.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(data)))
	w.Write(data)
}

func writeFuncType(w *bytes.Buffer, ft FuncType) {
	w.WriteByte(0x60)
	writeU32(w, uint32(len(ft.Params)))
	for _, t := range ft.Params {
		w.WriteByte(byte(t))
	}
	writeU32(w, uint32(len(ft.Results)))
	for _, t := range ft.Results {
		w.WriteByte(byte(t))
	}
}

func writeName(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

// writeConst writes the constant initializer instruction for an integer
// global. Float globals are not a shape the fixtures need.
func writeConst(w *bytes.Buffer, t ValType, v int64) {
	if t == I64 {
		w.WriteByte(opI64Const)
		writeS64(w, v)
		return
	}
	w.WriteByte(opI32Const)
	writeS32(w, int32(v))
}

func writeU32(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

func writeS32(w *bytes.Buffer, v int32) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.WriteByte(b)
	}
}

func writeS64(w *bytes.Buffer, v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.WriteByte(b)
	}
}
