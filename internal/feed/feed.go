// Package feed implements the opcode cursor (C4): a bounded view over an
// irep's instruction sequence that still keeps a back-reference to the full
// sequence, so a sub-parse's slice can look past its own bounds to explain a
// jump that lands outside the current scope.
package feed

import "ritedecomp/internal/opcode"

// Feed is "(fullSeq, baseOffset, sliceRange, cursor)" per the design notes:
// full is the entire irep's instruction sequence; lo/hi bound the slice this
// Feed was handed (absolute indices into full, half-open); pos is the
// current absolute cursor, always starting at lo.
type Feed struct {
	full []opcode.Instruction
	lo   int
	hi   int
	pos  int
}

// New wraps a whole irep's instruction sequence.
func New(instrs []opcode.Instruction) *Feed {
	return &Feed{full: instrs, lo: 0, hi: len(instrs), pos: 0}
}

// Pos returns the current absolute cursor position.
func (f *Feed) Pos() int { return f.pos }

// Lo and Hi return the feed's slice bounds (absolute indices, half-open).
func (f *Feed) Lo() int { return f.lo }
func (f *Feed) Hi() int { return f.hi }

// FullLen returns the length of the underlying full sequence, regardless of
// this feed's own slice bounds.
func (f *Feed) FullLen() int { return len(f.full) }

// HasMore reports whether the cursor still has an opcode within this
// feed's own slice.
func (f *Feed) HasMore() bool { return f.pos >= f.lo && f.pos < f.hi }

// Cur returns the instruction at the cursor without advancing it.
func (f *Feed) Cur() (opcode.Instruction, bool) {
	if f.pos < f.lo || f.pos >= f.hi {
		return opcode.Instruction{}, false
	}
	return f.full[f.pos], true
}

// Next returns the instruction at the cursor and advances past it.
func (f *Feed) Next() (opcode.Instruction, bool) {
	ins, ok := f.Cur()
	if ok {
		f.pos++
	}
	return ins, ok
}

// Jump advances (or rewinds) the cursor by a signed displacement, as driven
// by a decoded sBx jump offset.
func (f *Feed) Jump(offset int) { f.pos += offset }

// Seek moves the cursor to an absolute index. Per §4.4 seek is monotonic
// forward: a target behind the current cursor is a no-op, since control-flow
// reconstruction never needs to move the cursor backward outside the
// explicit loop-condition re-scan (§3 invariant), which instead uses a fresh
// sub-feed rather than rewinding this one.
func (f *Feed) Seek(abs int) {
	if abs > f.pos {
		f.pos = abs
	}
}

// GetRel peeks at the instruction offset slots ahead of (or behind) the
// cursor, bounded by this feed's own slice.
func (f *Feed) GetRel(offset int) (opcode.Instruction, bool) {
	idx := f.pos + offset
	if idx < f.lo || idx >= f.hi {
		return opcode.Instruction{}, false
	}
	return f.full[idx], true
}

// Slice returns a new feed over [lo, hi) of the same underlying sequence,
// cursor starting at lo — used for every sub-parse (if/else arms, case
// arms, loop bodies/conditions, lambda defaults).
func (f *Feed) Slice(lo, hi int) *Feed {
	if lo < 0 {
		lo = 0
	}
	if hi > len(f.full) {
		hi = len(f.full)
	}
	return &Feed{full: f.full, lo: lo, hi: hi, pos: lo}
}

// GetJumpedOpcodes returns the count opcodes starting at the current cursor,
// read from the full underlying sequence rather than this feed's own slice
// bounds, so it can see code lying outside the current scope — the shape
// the "unexpected JMP" diagnostic needs to render the skipped instructions
// as pass-through line comments (§7).
func (f *Feed) GetJumpedOpcodes(count int) []opcode.Instruction {
	start := f.pos
	if start < 0 {
		start = 0
	}
	end := start + count
	if end > len(f.full) {
		end = len(f.full)
	}
	if start >= end {
		return nil
	}
	out := make([]opcode.Instruction, end-start)
	copy(out, f.full[start:end])
	return out
}

// BlankTail reports whether the region [from, f.hi) is "blank": at most two
// opcodes long, used to recognize harmless compiler padding a forward JMP
// lands into (§4.7 "Forward JMP into blank/unreachable tail").
func (f *Feed) BlankTail(from int) bool {
	if from < 0 {
		from = 0
	}
	return f.hi-from <= 2
}
