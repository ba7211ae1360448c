// Package riteio reads the Rite binary container described in spec.md §6
// into an internal/irep tree. It is the lifter's only collaborator that
// touches raw bytes — everything downstream of Read works purely in terms
// of internal/irep and internal/opcode.
package riteio

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"ritedecomp/internal/decomperr"
	"ritedecomp/internal/irep"
	"ritedecomp/internal/opcode"
)

const (
	magic      = "RITE"
	footerID   = "END\x00"
	irepSecID  = "IREP"
	lvarSecID  = "LVAR"
	headerSize = 22
)

// decoder lossily turns arbitrary bytes into valid UTF-8 (§6 "Strings
// decode as UTF-8 with lossy replacement"), via x/text rather than a
// hand-rolled byte scanner.
var decoder = encoding.ReplaceUnsupported(unicode.UTF8.NewDecoder())

func decodeString(b []byte) string {
	out, _, err := transform.Bytes(decoder, b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Header is the 22-byte file header (§6).
type Header struct {
	Major, Minor           uint16
	CRC                    uint16
	TotalSize              uint32
	CompilerName           string
	CompilerVersion        string
}

// cursor is a forward-only big-endian byte reader over an in-memory
// buffer — simplest representation for a format whose recursive irep
// section needs arbitrary lookahead-free sequential parsing.
type cursor struct {
	buf []byte
	pos int
	err error
}

func (c *cursor) fail(kind decomperr.Kind, at int, format string, args ...any) {
	if c.err == nil {
		c.err = decomperr.New(kind, decomperr.Offset{ByteOffset: at}, format, args...)
	}
}

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if c.pos+n > len(c.buf) {
		c.fail(decomperr.MalformedContainer, c.pos, "truncated: need %d bytes, have %d", n, len(c.buf)-c.pos)
		return false
	}
	return true
}

func (c *cursor) take(n int) []byte {
	if !c.need(n) {
		return nil
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) u8() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u16() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (c *cursor) u32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (c *cursor) tag4() string {
	b := c.take(4)
	if b == nil {
		return ""
	}
	return string(b)
}

// Read parses a whole Rite container and returns its root irep plus the
// decoded file header.
func Read(r io.Reader) (*irep.Irep, *Header, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, decomperr.Wrap(err, decomperr.MalformedContainer, decomperr.Offset{}, "reading container")
	}
	c := &cursor{buf: data}

	if got := c.tag4(); got != magic {
		return nil, nil, decomperr.New(decomperr.MalformedContainer, decomperr.Offset{ByteOffset: 0}, "bad magic %q", got)
	}
	hdr := &Header{
		Major: c.u16(),
		Minor: c.u16(),
		CRC:   c.u16(),
	}
	hdr.TotalSize = c.u32()
	hdr.CompilerName = decodeString(c.take(4))
	hdr.CompilerVersion = decodeString(c.take(4))
	if c.err != nil {
		return nil, nil, c.err
	}
	if c.pos != headerSize {
		return nil, nil, decomperr.New(decomperr.MalformedContainer, decomperr.Offset{ByteOffset: c.pos}, "header size mismatch: read %d, want %d", c.pos, headerSize)
	}

	var root *irep.Irep
	var flatIreps []*irep.Irep

	for {
		start := c.pos
		id := c.tag4()
		size := c.u32()
		if c.err != nil {
			return nil, nil, c.err
		}
		if id == footerID {
			break
		}

		switch id {
		case irepSecID:
			_ = c.u32() // irep section version, unused beyond layout
			root = c.parseIrep(&flatIreps)
		case lvarSecID:
			c.parseLvarSection(flatIreps, start+int(size))
		default:
			// Unrecognized section: skip it by total size rather than
			// failing the whole file — the spec scopes error handling
			// to container/opcode/jump/upvalue failures, not unknown
			// auxiliary sections a newer compiler might add.
			end := start + int(size)
			if end < c.pos || end > len(c.buf) {
				return nil, nil, decomperr.New(decomperr.MalformedContainer, decomperr.Offset{ByteOffset: c.pos}, "bad section size for %q", id)
			}
			c.pos = end
		}
		if c.err != nil {
			return nil, nil, c.err
		}
	}

	if root == nil {
		return nil, nil, decomperr.New(decomperr.MalformedContainer, decomperr.Offset{}, "no IREP section found")
	}
	return root, hdr, nil
}

// parseIrep recursively parses one irep record and its children, appending
// every irep encountered (DFS, parent-before-children) to flat for the
// lvar section's later pass.
func (c *cursor) parseIrep(flat *[]*irep.Irep) *irep.Irep {
	if c.err != nil {
		return nil
	}
	_ = c.u32() // record size; recursive parse below determines real bounds
	numLocals := int(c.u16())
	numRegisters := int(c.u16())
	numChildren := int(c.u16())

	ilen := int(c.u32())
	c.take(4) // 4-byte alignment pad

	instrs := make([]opcode.Instruction, 0, ilen)
	for i := 0; i < ilen; i++ {
		w := c.u32()
		if c.err != nil {
			return nil
		}
		instrs = append(instrs, opcode.Decode(w))
	}

	poolLen := int(c.u32())
	pool := make([]irep.PoolValue, 0, poolLen)
	for i := 0; i < poolLen; i++ {
		tt := c.u8()
		dataLen := int(c.u16())
		data := c.take(dataLen)
		if c.err != nil {
			return nil
		}
		pool = append(pool, decodePoolEntry(tt, data))
	}

	symsLen := int(c.u32())
	syms := make([]string, 0, symsLen)
	for i := 0; i < symsLen; i++ {
		nameLen := c.u16()
		if c.err != nil {
			return nil
		}
		if nameLen == 0xFFFF {
			syms = append(syms, "")
			continue
		}
		raw := c.take(int(nameLen) + 1) // includes trailing zero terminator
		if c.err != nil {
			return nil
		}
		if n := len(raw); n > 0 && raw[n-1] == 0 {
			raw = raw[:n-1]
		}
		syms = append(syms, decodeString(raw))
	}

	ir := &irep.Irep{
		NumLocalVars: numLocals,
		NumRegisters: numRegisters,
		Instructions: instrs,
		Pool:         pool,
		Symbols:      syms,
		Lvars:        map[int]string{},
	}
	*flat = append(*flat, ir)

	for i := 0; i < numChildren; i++ {
		child := c.parseIrep(flat)
		if c.err != nil {
			return nil
		}
		ir.Children = append(ir.Children, child)
	}
	return ir
}

func decodePoolEntry(tt uint8, data []byte) irep.PoolValue {
	switch tt & 0x3 {
	case 1:
		var v int64
		fmt.Sscanf(string(data), "%d", &v)
		return irep.PoolValue{Kind: irep.PoolFixnum, Int: v}
	case 2:
		var v float64
		fmt.Sscanf(string(data), "%g", &v)
		return irep.PoolValue{Kind: irep.PoolFloat, Float: v}
	default:
		return irep.PoolValue{Kind: irep.PoolString, Str: decodeString(data)}
	}
}

// parseLvarSection reads the optional debug section (§6) and binds
// register->name pairs into each previously-parsed irep, walked in the same
// DFS order they were produced in.
func (c *cursor) parseLvarSection(flat []*irep.Irep, sectionEnd int) {
	if c.err != nil {
		return
	}
	if sectionEnd-c.pos <= 8 {
		// Per §6: the lvar section is only present "when remaining size
		// > 8"; a section this small carries no names.
		c.pos = sectionEnd
		return
	}

	symLen := int(c.u32())
	names := make([]string, 0, symLen)
	for i := 0; i < symLen; i++ {
		n := int(c.u16())
		raw := c.take(n)
		if c.err != nil {
			return
		}
		names = append(names, decodeString(raw))
	}

	for _, ir := range flat {
		pairs := ir.NumLocalVars - 1
		if pairs < 0 {
			pairs = 0
		}
		for i := 0; i < pairs; i++ {
			symIdx := c.u16()
			reg := c.u16()
			if c.err != nil {
				return
			}
			if symIdx == 0xFFFF {
				continue
			}
			if int(symIdx) < len(names) {
				ir.Lvars[int(reg)] = names[symIdx]
			}
		}
	}
	c.pos = sectionEnd
}
