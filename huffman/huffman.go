// Package huffman builds the canonical Huffman lookup tables used to decode
// plane residuals, and reads symbols back out of a bitreader.Reader against
// those tables.
//
// The design mirrors jpeg/common/huffman.go's HuffmanTable/HuffmanDecoder
// split (a Build step that produces flat lookup arrays, then cheap array
// indexing to decode), generalized to the two extra requirements this codec
// needs on top of a plain JPEG Huffman table: codes up to 32 bits deep via
// recursive subtables, and a second "joint" table that can return several
// short symbols from a single probe.
package huffman

import (
	"encoding/binary"
	"errors"

	"golang.org/x/exp/slices"

	"github.com/cocosip/utvideo-codec/bitreader"
)

const (
	// TableBits is the primary lookup table's address width (B in spec.md).
	TableBits = 11
	tableSize = 1 << TableBits

	// MultiMaxSymbols bounds how many symbols a single joint-table probe
	// can ever yield.
	MultiMaxSymbols = 6

	// maxCodeLen is the longest canonical code length a code-length byte
	// may specify.
	maxCodeLen = 32
)

var (
	// ErrInvalidLength is returned when a code-length byte is outside
	// {0, 1..32, 255}.
	ErrInvalidLength = errors.New("huffman: code length byte outside {0, 1..32, 255}")
	// ErrAllUnused is returned when every symbol is marked unused (255).
	ErrAllUnused = errors.New("huffman: all 256 symbols are unused")
	// ErrTableCollision is returned when two distinct symbols would occupy
	// the same canonical-code slot.
	ErrTableCollision = errors.New("huffman: canonical code collision")
	// ErrUnderdetermined is returned when the canonical code lengths sum
	// to less than a complete code (Kraft sum < 1).
	ErrUnderdetermined = errors.New("huffman: underdetermined canonical code (Kraft sum < 1)")
	// ErrOverdetermined is returned when the canonical code lengths sum
	// to more than a complete code (Kraft sum > 1).
	ErrOverdetermined = errors.New("huffman: overdetermined canonical code (Kraft sum > 1)")
	// ErrSubtableBits is returned if a subtable would need more than 30
	// bits of resolution, which the format never requires.
	ErrSubtableBits = errors.New("huffman: subtable width out of range")
	// ErrInvalidCode is returned when the bitstream indexes a table slot
	// that was never assigned a symbol — a malformed or corrupt stream.
	ErrInvalidCode = errors.New("huffman: bitstream decodes to an unassigned code")
)

// entry is one cell of the primary lookup table. len > 0 means a terminal
// code of that length decoding to sym; len < 0 means "consult a subtable of
// -len bits starting at primary index sym"; len == 0 (sym == -1) is an
// unassigned slot.
type entry struct {
	sym int32
	len int32
}

// multiEntry is one cell of the joint table. num > 0 means the next
// TableBits bits decode num symbols, values val[0:num], total length len.
type multiEntry struct {
	val [MultiMaxSymbols]byte
	len int8
	num uint8
}

// Table holds the tables built from one plane's 256-byte code-length
// header, plus the fill-mode shortcut.
type Table struct {
	primary    []entry // table at index 0 is the top-level B-bit table; subtables follow
	joint      [tableSize]multiEntry
	fillSymbol int // >= 0 if the whole plane is one constant residual
}

// IsFill reports whether the code-length table specified fill mode — the
// entire plane is the constant residual sym, and the bitstream machinery is
// never invoked.
func (t *Table) IsFill() (sym int, ok bool) {
	if t.fillSymbol >= 0 {
		return t.fillSymbol, true
	}
	return 0, false
}

type huffEntry struct {
	len uint8
	sym uint16
}

type rawCode struct {
	bits uint8
	code uint32
	sym  int32
}

// Build converts a 256-byte code-length table into a decode-ready Table.
//
// cl[i] == 0 means the whole plane is the constant residual i (fill mode).
// cl[i] == 255 means symbol i is unused. Otherwise cl[i] is symbol i's
// canonical Huffman code length, 1..32.
func Build(cl *[256]byte) (*Table, error) {
	lens := make([]uint8, 256)
	for i, v := range cl {
		switch {
		case v == 0:
			return &Table{fillSymbol: i}, nil
		case v == 255:
			lens[i] = 0
		case v >= 1 && v <= maxCodeLen:
			lens[i] = v
		default:
			return nil, ErrInvalidLength
		}
	}

	entries := make([]huffEntry, 0, 256)
	for i, l := range lens {
		if l != 0 {
			entries = append(entries, huffEntry{len: l, sym: uint16(i)})
		}
	}
	if len(entries) == 0 {
		return nil, ErrAllUnused
	}

	// Canonical order: longer codes first (they sit to the left of the
	// tree), ascending symbol within a length.
	slices.SortFunc(entries, func(a, b huffEntry) int {
		if a.len != b.len {
			return int(b.len) - int(a.len)
		}
		return int(a.sym) - int(b.sym)
	})

	codes := make([]rawCode, len(entries))
	var code uint64
	for i, e := range entries {
		codes[i] = rawCode{bits: e.len, code: uint32(code), sym: int32(e.sym)}
		code += uint64(1) << (32 - e.len)
		if code > uint64(1)<<32 {
			return nil, ErrOverdetermined
		}
	}
	if code != uint64(1)<<32 {
		return nil, ErrUnderdetermined
	}

	t := &Table{fillSymbol: -1}
	// buildLevel rewrites long codes in place into their subtable residuals,
	// so it gets its own copy; buildJoint needs the original lengths.
	if _, err := t.buildLevel(append([]rawCode(nil), codes...), TableBits); err != nil {
		return nil, err
	}
	t.buildJoint(codes)
	return t, nil
}

// buildLevel lays out codes into a freshly-appended table of tableBits
// width, recursing into subtables (also appended to t.primary) for any
// code longer than tableBits. It returns the index the new table starts at.
func (t *Table) buildLevel(codes []rawCode, tableBits int) (int, error) {
	if tableBits > 30 {
		return 0, ErrSubtableBits
	}
	size := 1 << tableBits
	base := len(t.primary)
	for k := 0; k < size; k++ {
		t.primary = append(t.primary, entry{sym: -1, len: 0})
	}

	i := 0
	for i < len(codes) {
		n := int(codes[i].bits)
		c := codes[i].code
		sym := codes[i].sym

		if n <= tableBits {
			j := base + int(c>>(32-tableBits))
			span := 1 << (tableBits - n)
			for k := 0; k < span; k++ {
				cur := t.primary[j]
				if cur.len != 0 {
					if cur.len != int32(n) || cur.sym != sym {
						return 0, ErrTableCollision
					}
				} else {
					t.primary[j] = entry{sym: sym, len: int32(n)}
				}
				j++
			}
			i++
			continue
		}

		// This code (and possibly its neighbors) needs a subtable: group
		// every following code that shares this one's top tableBits
		// prefix, compute the widest residual among them (capped at
		// tableBits), and recurse.
		prefix := c >> (32 - tableBits)
		subBits := n - tableBits
		codes[i].bits = uint8(subBits)
		codes[i].code = c << tableBits

		k := i + 1
		for k < len(codes) {
			residual := int(codes[k].bits) - tableBits
			if residual <= 0 || codes[k].code>>(32-tableBits) != prefix {
				break
			}
			codes[k].bits = uint8(residual)
			codes[k].code = codes[k].code << tableBits
			if residual > subBits {
				subBits = residual
			}
			k++
		}
		if subBits > tableBits {
			subBits = tableBits
		}

		subIndex, err := t.buildLevel(codes[i:k], subBits)
		if err != nil {
			return 0, err
		}
		slot := base + int(prefix)
		t.primary[slot] = entry{sym: int32(subIndex), len: int32(-subBits)}
		i = k
	}
	return base, nil
}

// buildJoint fills the joint table: every slot starts as a copy of the
// primary table's top-level entry (depth 1), then gets overwritten wherever
// two or more short (directly-resolvable) codes concatenate to fit
// entirely within TableBits bits.
func (t *Table) buildJoint(codes []rawCode) {
	for j := 0; j < tableSize; j++ {
		e := t.primary[j]
		t.joint[j].len = int8(e.len)
		if e.len > 0 {
			t.joint[j].num = 1
			t.joint[j].val[0] = byte(e.sym)
		}
	}

	var short []rawCode
	for _, c := range codes {
		if c.bits <= TableBits {
			short = append(short, c)
		}
	}
	if len(short) == 0 {
		return
	}

	var walk func(code uint32, length int, depth int, vals [MultiMaxSymbols]byte)
	walk = func(code uint32, length int, depth int, vals [MultiMaxSymbols]byte) {
		if depth >= MultiMaxSymbols {
			return
		}
		for _, c := range short {
			newLen := length + int(c.bits)
			if newLen > TableBits {
				continue
			}
			newVals := vals
			newVals[depth] = byte(c.sym)
			newCode := code + (c.code >> uint(length))
			newDepth := depth + 1

			if newDepth >= 2 {
				lo := newCode >> (32 - TableBits)
				hi := lo + (1 << (TableBits - newLen))
				me := multiEntry{val: newVals, len: int8(newLen), num: uint8(newDepth)}
				for idx := lo; idx < hi; idx++ {
					t.joint[idx] = me
				}
			}
			walk(newCode, newLen, newDepth, newVals)
		}
	}
	walk(0, 0, 0, [MultiMaxSymbols]byte{})
}

// ReadSingle decodes exactly one symbol from r.
func (t *Table) ReadSingle(r *bitreader.Reader) (int, error) {
	idx := r.Peek(TableBits)
	e := t.primary[idx]
	if e.len < 0 {
		r.Skip(TableBits)
		nb := uint8(-e.len)
		e = t.primary[e.sym+int32(r.Peek(nb))]
		if e.len < 0 {
			r.Skip(nb)
			nb2 := uint8(-e.len)
			e = t.primary[e.sym+int32(r.Peek(nb2))]
		}
	}
	if e.len <= 0 {
		return 0, ErrInvalidCode
	}
	r.Skip(uint8(e.len))
	return int(e.sym), nil
}

// ReadMulti decodes up to MultiMaxSymbols symbols from a single probe,
// writing their values into dst[0:num] (only the first num bytes are
// meaningful). It returns num, or 0 if the bitstream decodes to an
// unassigned slot — the caller treats that as fatal, per spec.md §4.5.
func (t *Table) ReadMulti(r *bitreader.Reader, dst *[8]byte) int {
	idx := r.Peek(TableBits)
	je := t.joint[idx]
	if je.num > 0 {
		copy(dst[:], je.val[:])
		r.Skip(uint8(je.len))
		return int(je.num)
	}

	e := t.primary[idx]
	if e.len < 0 {
		r.Skip(TableBits)
		nb := uint8(-e.len)
		e = t.primary[e.sym+int32(r.Peek(nb))]
		if e.len < 0 {
			r.Skip(nb)
			nb2 := uint8(-e.len)
			e = t.primary[e.sym+int32(r.Peek(nb2))]
		}
	}

	binary.LittleEndian.PutUint16(dst[0:2], uint16(e.sym))
	if e.len <= 0 {
		return 0
	}
	r.Skip(uint8(e.len))
	return 1
}
