package huffman

import (
	"testing"

	"github.com/cocosip/utvideo-codec/bitreader"
)

func packBits(bits string) []byte {
	n := len(bits)
	out := make([]byte, (n+7)/8+4) // +4 padding for bitreader word refill
	for i, c := range bits {
		if c == '1' {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}

func newReader(t *testing.T, bits string) *bitreader.Reader {
	t.Helper()
	var r bitreader.Reader
	if err := r.Init(packBits(bits), uint32(len(bits))); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return &r
}

func TestBuildRejectsAllUnused(t *testing.T) {
	var cl [256]byte
	for i := range cl {
		cl[i] = 255
	}
	if _, err := Build(&cl); err != ErrAllUnused {
		t.Errorf("Build() err = %v, want ErrAllUnused", err)
	}
}

func TestBuildDetectsFillMode(t *testing.T) {
	var cl [256]byte
	for i := range cl {
		cl[i] = 255
	}
	cl[0x42] = 0
	tbl, err := Build(&cl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sym, ok := tbl.IsFill()
	if !ok || sym != 0x42 {
		t.Errorf("IsFill() = (%d, %v), want (0x42, true)", sym, ok)
	}
}

func TestBuildRejectsUnderdetermined(t *testing.T) {
	var cl [256]byte
	for i := range cl {
		cl[i] = 255
	}
	cl[0] = 1 // a single length-1 code leaves half the space uncovered
	if _, err := Build(&cl); err != ErrUnderdetermined {
		t.Errorf("Build() err = %v, want ErrUnderdetermined", err)
	}
}

func TestBuildRejectsOverdetermined(t *testing.T) {
	var cl [256]byte
	for i := range cl {
		cl[i] = 255
	}
	cl[0], cl[1], cl[2] = 1, 1, 1 // three length-1 codes overflow the space
	if _, err := Build(&cl); err != ErrOverdetermined {
		t.Errorf("Build() err = %v, want ErrOverdetermined", err)
	}
}

func TestBuildRejectsInvalidLength(t *testing.T) {
	var cl [256]byte
	cl[0] = 33
	if _, err := Build(&cl); err != ErrInvalidLength {
		t.Errorf("Build() err = %v, want ErrInvalidLength", err)
	}
}

func TestReadSingleTwoLengthOneSymbols(t *testing.T) {
	var cl [256]byte
	for i := range cl {
		cl[i] = 255
	}
	cl[0], cl[1] = 1, 1

	tbl, err := Build(&cl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Symbol 0 (ascending-symbol tiebreak) gets code "0", symbol 1 gets "1".
	r := newReader(t, "10101010")
	want := []int{1, 0, 1, 0, 1, 0, 1, 0}
	for i, w := range want {
		sym, err := tbl.ReadSingle(r)
		if err != nil {
			t.Fatalf("ReadSingle[%d]: %v", i, err)
		}
		if sym != w {
			t.Errorf("ReadSingle[%d] = %d, want %d", i, sym, w)
		}
	}
}

func TestReadSingleMixedLengths(t *testing.T) {
	var cl [256]byte
	for i := range cl {
		cl[i] = 255
	}
	// A=len3, B=len3, C=len2, D=len1 -> codes 000,001,01,1 respectively.
	cl['A'], cl['B'], cl['C'], cl['D'] = 3, 3, 2, 1

	tbl, err := Build(&cl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Encode D,C,A,B,D -> "1"+"01"+"000"+"001"+"1" = 1 01 000 001 1
	r := newReader(t, "1"+"01"+"000"+"001"+"1")
	want := []int{'D', 'C', 'A', 'B', 'D'}
	for i, w := range want {
		sym, err := tbl.ReadSingle(r)
		if err != nil {
			t.Fatalf("ReadSingle[%d]: %v", i, err)
		}
		if sym != w {
			t.Errorf("ReadSingle[%d] = %c, want %c", i, sym, w)
		}
	}
}

func TestReadSingleLongCodeNeedsSubtable(t *testing.T) {
	var cl [256]byte
	for i := range cl {
		cl[i] = 255
	}
	// A "comb" tree: symbol i has length i+1 for i=0..10, plus two
	// symbols (11 and 12) sharing length 12. Kraft sum: sum_{k=1}^{11} 2^-k + 2*2^-12
	// = (1 - 2^-11) + 2^-11 = 1 exactly, and two codes exceed TableBits
	// (11), forcing a subtable.
	for i := 0; i <= 10; i++ {
		cl[i] = byte(i + 1) // symbol i gets length i+1, so symbol 0 is len1 ... symbol 10 is len11
	}
	cl[11] = 12
	cl[12] = 12

	tbl, err := Build(&cl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// idx0 (len1) = "1", idx11 (len12) = "000000000000", idx12 (len12)
	// = "000000000001".
	r := newReader(t, "1"+"000000000000"+"000000000001")
	want := []int{0, 11, 12}
	for i, w := range want {
		sym, err := tbl.ReadSingle(r)
		if err != nil {
			t.Fatalf("ReadSingle[%d]: %v", i, err)
		}
		if sym != w {
			t.Errorf("ReadSingle[%d] = %d, want %d", i, sym, w)
		}
	}
}

func TestReadMultiMatchesReadSingle(t *testing.T) {
	var cl [256]byte
	for i := range cl {
		cl[i] = 255
	}
	cl['A'], cl['B'], cl['C'], cl['D'] = 3, 3, 2, 1

	bits := "1" + "01" + "000" + "001" + "1" + "1" + "1" + "1"
	want := []int{'D', 'C', 'A', 'B', 'D', 'D', 'D', 'D'}

	tblSingle, err := Build(&cl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rs := newReader(t, bits)
	for i, w := range want {
		sym, err := tblSingle.ReadSingle(rs)
		if err != nil {
			t.Fatalf("ReadSingle[%d]: %v", i, err)
		}
		if sym != w {
			t.Fatalf("ReadSingle[%d] = %c, want %c", i, sym, w)
		}
	}

	tblMulti, err := Build(&cl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rm := newReader(t, bits)
	got := make([]int, 0, len(want))
	for len(got) < len(want) {
		var dst [8]byte
		n := tblMulti.ReadMulti(rm, &dst)
		if n == 0 {
			t.Fatalf("ReadMulti returned 0 progress after decoding %d symbols", len(got))
		}
		for i := 0; i < n; i++ {
			got = append(got, int(dst[i]))
		}
	}
	got = got[:len(want)]
	for i, w := range want {
		if got[i] != w {
			t.Errorf("ReadMulti symbol[%d] = %c, want %c", i, got[i], w)
		}
	}
}

func TestReadSingleInvalidCodeIsError(t *testing.T) {
	var cl [256]byte
	for i := range cl {
		cl[i] = 255
	}
	cl[0], cl[1] = 1, 1
	tbl, err := Build(&cl)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Corrupt the table to simulate an unassigned slot reached mid-stream.
	tbl.primary[0] = entry{sym: -1, len: 0}
	r := newReader(t, "00000000")
	if _, err := tbl.ReadSingle(r); err != ErrInvalidCode {
		t.Errorf("ReadSingle() err = %v, want ErrInvalidCode", err)
	}
}
