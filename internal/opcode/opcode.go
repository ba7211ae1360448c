// Package opcode decodes 32-bit Rite instruction words into a tagged
// Instruction carrying whichever operand fields its packing defines.
//
// Word layout: the low 7 bits hold the opcode; the high 25 bits hold the
// operands, packed MSB-first according to the opcode's Packing.
package opcode

import "fmt"

// Op identifies a Rite opcode. Values above Max are out of table and must be
// treated as fatal by callers; Unknown (the literal mnemonic at the top of
// the table) and the RSVDn placeholders are in-table but carry no decoded
// semantics of their own.
type Op uint8

const (
	NOP Op = iota
	MOVE
	LOADL
	LOADI
	LOADSYM
	LOADNIL
	LOADSELF
	LOADT
	LOADF
	GETGLOBAL
	SETGLOBAL
	GETSPECIAL
	SETSPECIAL
	GETIV
	SETIV
	GETCV
	SETCV
	GETCONST
	SETCONST
	GETMCNST
	SETMCNST
	GETUPVAR
	SETUPVAR
	JMP
	JMPIF
	JMPNOT
	ONERR
	RESCUE
	POPERR
	RAISE
	EPUSH
	EPOP
	SEND
	SENDB
	FSEND
	CALL
	SUPER
	ARGARY
	ENTER
	KARG
	KDICT
	RETURN
	TAILCALL
	BLKPUSH
	ADD
	ADDI
	SUB
	SUBI
	MUL
	DIV
	EQ
	LT
	LE
	GT
	GE
	ARRAY
	ARYCAT
	ARYPUSH
	AREF
	ASET
	APOST
	STRING
	STRCAT
	HASH
	LAMBDA
	RANGE
	OCLASS
	CLASS
	MODULE
	EXEC
	METHOD
	SCLASS
	TCLASS
	DEBUG
	STOP
	ERR
	RSVD1
	RSVD2
	RSVD3
	RSVD4
	RSVD5
	UNKNOWN
)

// Max is the highest in-table opcode value (§3 invariant: opcode value in
// [0, Max]; anything higher is fatal).
const Max = uint8(UNKNOWN)

var names = [...]string{
	NOP: "NOP", MOVE: "MOVE", LOADL: "LOADL", LOADI: "LOADI", LOADSYM: "LOADSYM",
	LOADNIL: "LOADNIL", LOADSELF: "LOADSELF", LOADT: "LOADT", LOADF: "LOADF",
	GETGLOBAL: "GETGLOBAL", SETGLOBAL: "SETGLOBAL", GETSPECIAL: "GETSPECIAL",
	SETSPECIAL: "SETSPECIAL", GETIV: "GETIV", SETIV: "SETIV", GETCV: "GETCV",
	SETCV: "SETCV", GETCONST: "GETCONST", SETCONST: "SETCONST", GETMCNST: "GETMCNST",
	SETMCNST: "SETMCNST", GETUPVAR: "GETUPVAR", SETUPVAR: "SETUPVAR", JMP: "JMP",
	JMPIF: "JMPIF", JMPNOT: "JMPNOT", ONERR: "ONERR", RESCUE: "RESCUE",
	POPERR: "POPERR", RAISE: "RAISE", EPUSH: "EPUSH", EPOP: "EPOP", SEND: "SEND",
	SENDB: "SENDB", FSEND: "FSEND", CALL: "CALL", SUPER: "SUPER", ARGARY: "ARGARY",
	ENTER: "ENTER", KARG: "KARG", KDICT: "KDICT", RETURN: "RETURN",
	TAILCALL: "TAILCALL", BLKPUSH: "BLKPUSH", ADD: "ADD", ADDI: "ADDI", SUB: "SUB",
	SUBI: "SUBI", MUL: "MUL", DIV: "DIV", EQ: "EQ", LT: "LT", LE: "LE", GT: "GT",
	GE: "GE", ARRAY: "ARRAY", ARYCAT: "ARYCAT", ARYPUSH: "ARYPUSH", AREF: "AREF",
	ASET: "ASET", APOST: "APOST", STRING: "STRING", STRCAT: "STRCAT", HASH: "HASH",
	LAMBDA: "LAMBDA", RANGE: "RANGE", OCLASS: "OCLASS", CLASS: "CLASS",
	MODULE: "MODULE", EXEC: "EXEC", METHOD: "METHOD", SCLASS: "SCLASS",
	TCLASS: "TCLASS", DEBUG: "DEBUG", STOP: "STOP", ERR: "ERR", RSVD1: "RSVD1",
	RSVD2: "RSVD2", RSVD3: "RSVD3", RSVD4: "RSVD4", RSVD5: "RSVD5", UNKNOWN: "UNKNOWN",
}

func (o Op) String() string {
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("OP(%d)", o)
}

// Packing names the operand layout of an opcode's high 25 bits.
type Packing uint8

const (
	PackABC Packing = iota
	PackABx
	PackAsBx
	PackAx
	PackABzCz
	PackAspec
)

var packings = [...]Packing{
	NOP: PackABC, MOVE: PackABC, LOADL: PackABx, LOADI: PackAsBx, LOADSYM: PackABx,
	LOADNIL: PackABC, LOADSELF: PackABC, LOADT: PackABC, LOADF: PackABC,
	GETGLOBAL: PackABx, SETGLOBAL: PackABx, GETSPECIAL: PackABx, SETSPECIAL: PackABx,
	GETIV: PackABx, SETIV: PackABx, GETCV: PackABx, SETCV: PackABx, GETCONST: PackABx,
	SETCONST: PackABx, GETMCNST: PackABx, SETMCNST: PackABx, GETUPVAR: PackABC,
	SETUPVAR: PackABC, JMP: PackAsBx, JMPIF: PackAsBx, JMPNOT: PackAsBx, ONERR: PackAsBx,
	RESCUE: PackABC, POPERR: PackABC, RAISE: PackABC, EPUSH: PackABx, EPOP: PackABC,
	SEND: PackABC, SENDB: PackABC, FSEND: PackABC, CALL: PackABC, SUPER: PackABC,
	ARGARY: PackABx, ENTER: PackAspec, KARG: PackABC, KDICT: PackABC, RETURN: PackABC,
	TAILCALL: PackABC, BLKPUSH: PackABx, ADD: PackABC, ADDI: PackABC, SUB: PackABC,
	SUBI: PackABC, MUL: PackABC, DIV: PackABC, EQ: PackABC, LT: PackABC, LE: PackABC,
	GT: PackABC, GE: PackABC, ARRAY: PackABC, ARYCAT: PackABC, ARYPUSH: PackABC,
	AREF: PackABC, ASET: PackABC, APOST: PackABC, STRING: PackABx, STRCAT: PackABC,
	HASH: PackABC, LAMBDA: PackABzCz, RANGE: PackABC, OCLASS: PackABC, CLASS: PackABC,
	MODULE: PackABC, EXEC: PackABx, METHOD: PackABC, SCLASS: PackABC, TCLASS: PackABC,
	DEBUG: PackABC, STOP: PackABC, ERR: PackABx, RSVD1: PackABC, RSVD2: PackABC,
	RSVD3: PackABC, RSVD4: PackABC, RSVD5: PackABC,
}

// ArgSpec decodes ENTER's 25-bit A operand: requirements, optionals, a rest
// arg, post-splat requirements, keyword args, a keyword-dict catchall, and a
// trailing block parameter.
type ArgSpec struct {
	Req, Opt, Post, Key uint8
	Rest, KDict, Block  bool
}

// decodeArgSpec mirrors mruby's MRB_ASPEC_* bit layout: req occupies bits
// 18-22, opt 13-17, rest bit 12, post 7-11, key 2-6, kdict bit 1, block bit 0
// of the 25-bit A field (bits 23-24 are reserved/unused).
func decodeArgSpec(a uint32) ArgSpec {
	return ArgSpec{
		Req:   uint8((a >> 18) & 0x1f),
		Opt:   uint8((a >> 13) & 0x1f),
		Rest:  (a>>12)&0x1 != 0,
		Post:  uint8((a >> 7) & 0x1f),
		Key:   uint8((a >> 2) & 0x1f),
		KDict: (a>>1)&0x1 != 0,
		Block: a&0x1 != 0,
	}
}

// IsForLoopSpec reports the anonymous-for-loop ENTER idiom (§4.7): a single
// required argument and every other field zero, encoded as Ax == 0x40000.
func (s ArgSpec) IsForLoopSpec() bool {
	return s.Req == 1 && s.Opt == 0 && !s.Rest && s.Post == 0 && s.Key == 0 && !s.KDict && !s.Block
}

// Instruction is a decoded Rite instruction: the Op tag plus whichever
// operand fields its Packing fills in. Fields outside the opcode's packing
// are left zero.
type Instruction struct {
	Op  Op
	Raw uint32

	A int32
	B int32
	C int32

	Bx  uint32
	SBx int32
	Ax  uint32

	Bz uint32
	Cz uint32

	Spec ArgSpec
}

const sBxBias = 0x7FFF

// Decode decodes a 32-bit big-endian-loaded instruction word. It never
// fails: an opcode byte above Max decodes to Op == UNKNOWN with Raw
// preserving the original word, leaving the fatal-vs-tolerate decision to
// the caller (per §3's invariant and §7's error taxonomy).
func Decode(word uint32) Instruction {
	opByte := uint8(word & 0x7f)
	rest := word >> 7

	var op Op
	if opByte > Max {
		op = UNKNOWN
	} else {
		op = Op(opByte)
	}

	ins := Instruction{Op: op, Raw: word}
	if int(op) >= len(packings) {
		return ins
	}

	switch packings[op] {
	case PackABC:
		ins.A = int32((rest >> 16) & 0x1ff)
		ins.B = int32((rest >> 7) & 0x1ff)
		ins.C = int32(rest & 0x7f)
	case PackABx:
		ins.A = int32((rest >> 16) & 0x1ff)
		ins.Bx = rest & 0xffff
	case PackAsBx:
		ins.A = int32((rest >> 16) & 0x1ff)
		ins.Bx = rest & 0xffff
		ins.SBx = int32(ins.Bx) - sBxBias
	case PackAx:
		ins.Ax = rest & 0x1ffffff
	case PackABzCz:
		ins.A = int32((rest >> 16) & 0x1ff)
		ins.Bz = (rest >> 2) & 0x3fff
		ins.Cz = rest & 0x3
	case PackAspec:
		ins.Ax = rest & 0x1ffffff
		ins.Spec = decodeArgSpec(ins.Ax)
	}
	return ins
}

// String renders the instruction's disassembled textual form, used for the
// pass-through diagnostic comments emitted by the lifter (§7).
func (i Instruction) String() string {
	switch packings[minOp(i.Op)] {
	case PackABC:
		return fmt.Sprintf("%s %d %d %d", i.Op, i.A, i.B, i.C)
	case PackABx:
		return fmt.Sprintf("%s %d %d", i.Op, i.A, i.Bx)
	case PackAsBx:
		return fmt.Sprintf("%s %d %d", i.Op, i.A, i.SBx)
	case PackAx:
		return fmt.Sprintf("%s %d", i.Op, i.Ax)
	case PackABzCz:
		return fmt.Sprintf("%s %d %d %d", i.Op, i.A, i.Bz, i.Cz)
	case PackAspec:
		return fmt.Sprintf("%s %d", i.Op, i.Ax)
	default:
		return i.Op.String()
	}
}

func minOp(o Op) Op {
	if int(o) >= len(packings) {
		return NOP
	}
	return o
}
