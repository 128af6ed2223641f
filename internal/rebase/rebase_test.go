package rebase

import (
	"errors"
	"math"
	"testing"
)

func TestRebase(t *testing.T) {
	tests := []struct {
		name string
		addr uint32
		up   bool
		want uint32
	}{
		{name: "branch target down", addr: 0x40007194, up: false, want: 0x720c},
		{name: "analysis entry up", addr: 0x7154, up: true, want: 0x400070dc},
		{name: "zero up", addr: 0, up: true, want: 0x3fffff88},
		{name: "delta down", addr: 0x3fffff88, up: false, want: 0},
		{name: "wraps below zero", addr: 0x7154, up: false, want: 0xc00071cc},
		{name: "wraps above max", addr: 0xffffffff, up: true, want: 0x3fffff87},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebase(tt.addr, tt.up); got != tt.want {
				t.Errorf("Rebase(%#x, %v) = %#x, want %#x", tt.addr, tt.up, got, tt.want)
			}
		})
	}
}

func TestRebaseRoundTrip(t *testing.T) {
	samples := []uint32{0, 1, 119, 120, 0x7154, 0x3fffff87, 0x3fffff88, 0x40000000, 0x40007194, 0xc0000077, 0xc0000078, math.MaxUint32}
	// Walk the space with a prime stride so every high byte is visited.
	for a := uint64(0); a <= math.MaxUint32; a += 0x10003 {
		samples = append(samples, uint32(a))
	}

	for _, addr := range samples {
		if got := Down(Up(addr)); got != addr {
			t.Fatalf("Down(Up(%#x)) = %#x", addr, got)
		}
		if got := Up(Down(addr)); got != addr {
			t.Fatalf("Up(Down(%#x)) = %#x", addr, got)
		}
	}
}

func TestChecked(t *testing.T) {
	got, err := Checked(0x40007194, false)
	if err != nil {
		t.Fatalf("Checked() error = %v", err)
	}
	if got != 0x720c {
		t.Errorf("Checked() = %#x, want 0x720c", got)
	}

	if _, err := Checked(0x1_0000_0000, false); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Checked(2^32) error = %v, want ErrOutOfRange", err)
	}
}
