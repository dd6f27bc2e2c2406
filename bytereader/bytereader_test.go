package bytereader

import "testing"

func TestGetU8(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want []byte
	}{
		{name: "three bytes", buf: []byte{1, 2, 3}, want: []byte{1, 2, 3}},
		{name: "empty", buf: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.buf)
			for _, want := range tt.want {
				if got := r.GetU8(); got != want {
					t.Errorf("GetU8() = %d, want %d", got, want)
				}
			}
			if got := r.GetU8(); got != 0 {
				t.Errorf("GetU8() past end = %d, want 0", got)
			}
			if r.BytesLeft() != 0 {
				t.Errorf("BytesLeft() past end = %d, want 0", r.BytesLeft())
			}
		})
	}
}

func TestGetU32LE(t *testing.T) {
	r := New([]byte{0x01, 0x02, 0x03, 0x04, 0xFF})
	if got, want := r.GetU32LE(), uint32(0x04030201); got != want {
		t.Errorf("GetU32LE() = %#x, want %#x", got, want)
	}
	if r.BytesLeft() != 1 {
		t.Errorf("BytesLeft() = %d, want 1", r.BytesLeft())
	}
	// Fewer than 4 bytes remain: pins the cursor and returns 0.
	if got := r.GetU32LE(); got != 0 {
		t.Errorf("GetU32LE() underflow = %#x, want 0", got)
	}
	if r.BytesLeft() != 0 {
		t.Errorf("BytesLeft() after underflow = %d, want 0", r.BytesLeft())
	}
}

func TestSkip(t *testing.T) {
	r := New([]byte{1, 2, 3, 4, 5})
	r.Skip(3)
	if got := r.GetU8(); got != 4 {
		t.Errorf("GetU8() after Skip(3) = %d, want 4", got)
	}
	r.Skip(100) // clamps to end
	if r.BytesLeft() != 0 {
		t.Errorf("BytesLeft() after over-skip = %d, want 0", r.BytesLeft())
	}
}

func TestUncheckedVariants(t *testing.T) {
	r := New([]byte{0xAA, 0x01, 0x00, 0x00, 0x00})
	if got := r.GetU8Unchecked(); got != 0xAA {
		t.Errorf("GetU8Unchecked() = %#x, want 0xAA", got)
	}
	if got := r.GetU32LEUnchecked(); got != 1 {
		t.Errorf("GetU32LEUnchecked() = %d, want 1", got)
	}
}
