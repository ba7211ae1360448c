package riteio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func u16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }

// buildMinimalContainer assembles the smallest valid container this reader
// accepts: header, one IREP section with a single irep (no instructions,
// no pool, no symbols, no children), footer. Section sizes count the whole
// section from its id onward, the way Read measures an unknown section it
// skips.
func buildMinimalContainer() []byte {
	var irepBody bytes.Buffer
	irepBody.Write(u32(0))    // record size (unused by parser)
	irepBody.Write(u16(1))    // num_locals
	irepBody.Write(u16(2))    // num_registers
	irepBody.Write(u16(0))    // num_children
	irepBody.Write(u32(0))    // ilen
	irepBody.Write(make([]byte, 4)) // alignment pad
	irepBody.Write(u32(0))    // pool_len
	irepBody.Write(u32(0))    // symbols_len

	var irepSection bytes.Buffer
	irepSection.WriteString(irepSecID)
	irepSection.Write(u32(uint32(irepBody.Len() + 12)))
	irepSection.Write(u32(0)) // irep section version
	irepSection.Write(irepBody.Bytes())

	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.Write(u16(3))
	buf.Write(u16(0))
	buf.Write(u16(0xABCD))
	buf.Write(u32(0)) // total size placeholder
	buf.WriteString("MATZ")
	buf.WriteString("0300")
	buf.Write(irepSection.Bytes())
	buf.WriteString(footerID)
	buf.Write(u32(8))
	return buf.Bytes()
}

func TestReadMinimalContainer(t *testing.T) {
	data := buildMinimalContainer()
	root, hdr, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if hdr.Major != 3 {
		t.Fatalf("Major = %d, want 3", hdr.Major)
	}
	if root.NumLocalVars != 1 || root.NumRegisters != 2 {
		t.Fatalf("root = %+v", root)
	}
	if len(root.Instructions) != 0 || len(root.Children) != 0 {
		t.Fatalf("expected empty instructions/children, got %+v", root)
	}
}

func TestReadBadMagic(t *testing.T) {
	data := append([]byte("XXXX"), make([]byte, 18)...)
	if _, _, err := Read(bytes.NewReader(data)); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}
