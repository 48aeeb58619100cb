// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package cursor

import (
	"errors"
	"testing"

	"github.com/elliotnunn/xpkdecomp/internal/bufview"
)

func TestForward(t *testing.T) {
	v := bufview.New([]byte{0x10, 0x20, 0x30, 0x40, 0x50})

	t.Run("ReadByte in order", func(t *testing.T) {
		f := NewForward(v, 1, 4)
		for _, want := range []byte{0x20, 0x30} {
			b, err := f.ReadByte()
			if err != nil || b != want {
				t.Fatalf("ReadByte() = %#x, %v, want %#x, nil", b, err, want)
			}
		}
		if got := f.Offset(); got != 3 {
			t.Fatalf("Offset() = %d, want 3", got)
		}
	})

	t.Run("ReadByte underflow at end", func(t *testing.T) {
		f := NewForward(v, 3, 4)
		if _, err := f.ReadByte(); err != nil {
			t.Fatalf("first ReadByte: %v", err)
		}
		if _, err := f.ReadByte(); !errors.Is(err, ErrUnderflow) {
			t.Fatalf("second ReadByte err = %v, want ErrUnderflow", err)
		}
	})

	t.Run("ReadN", func(t *testing.T) {
		f := NewForward(v, 0, 5)
		got, err := f.ReadN(3)
		if err != nil {
			t.Fatalf("ReadN(3): %v", err)
		}
		want := []byte{0x10, 0x20, 0x30}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ReadN(3) = %v, want %v", got, want)
			}
		}
		if f.Offset() != 3 {
			t.Fatalf("Offset() = %d, want 3", f.Offset())
		}
	})

	t.Run("ReadN past end", func(t *testing.T) {
		f := NewForward(v, 0, 5)
		if _, err := f.ReadN(6); !errors.Is(err, ErrUnderflow) {
			t.Fatalf("ReadN(6) err = %v, want ErrUnderflow", err)
		}
	})
}

func TestReverse(t *testing.T) {
	v := bufview.New([]byte{0x10, 0x20, 0x30, 0x40, 0x50})

	t.Run("ReadByte in order", func(t *testing.T) {
		r := NewReverse(v, 0, 3)
		for _, want := range []byte{0x30, 0x20, 0x10} {
			b, err := r.ReadByte()
			if err != nil || b != want {
				t.Fatalf("ReadByte() = %#x, %v, want %#x, nil", b, err, want)
			}
		}
		if _, err := r.ReadByte(); !errors.Is(err, ErrUnderflow) {
			t.Fatalf("ReadByte past start err = %v, want ErrUnderflow", err)
		}
	})

	t.Run("ReadN returns consumption order", func(t *testing.T) {
		r := NewReverse(v, 0, 5)
		got, err := r.ReadN(3)
		if err != nil {
			t.Fatalf("ReadN(3): %v", err)
		}
		want := []byte{0x50, 0x40, 0x30}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ReadN(3) = %v, want %v", got, want)
			}
		}
		if r.Offset() != 2 {
			t.Fatalf("Offset() = %d, want 2", r.Offset())
		}
	})

	t.Run("ReadN past start", func(t *testing.T) {
		r := NewReverse(v, 2, 5)
		if _, err := r.ReadN(4); !errors.Is(err, ErrUnderflow) {
			t.Fatalf("ReadN(4) err = %v, want ErrUnderflow", err)
		}
	})
}
