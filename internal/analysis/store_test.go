package analysis

import (
	"errors"
	"strings"
	"testing"

	"objgraph/internal/rebase"
)

const dump = `40007154:	9c 21 ff f0 	l.addi r1,r1,-16
40007158:	e4 8b 08 00 	bgeu r11,r1,40007194 <encrypt+0x40>
4000715c:	44 00 48 00 	ret
`

func TestStoreLoadLookup(t *testing.T) {
	s := NewStore()
	stats, err := s.Load(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if stats.Records != 3 || s.Len() != 3 {
		t.Errorf("Records = %d, Len = %d, want 3", stats.Records, s.Len())
	}

	inst, ok := s.Lookup(rebase.Down(0x40007158))
	if !ok {
		t.Fatal("Lookup() found nothing")
	}
	if inst.Text != "bgeu r11,r1,40007194 <encrypt+0x40>" {
		t.Errorf("Text = %q", inst.Text)
	}

	// Lookups take analysis addresses; the raw dump address is not a key.
	if _, ok := s.Lookup(0x40007158); ok {
		t.Error("Lookup(dump address) found an instruction")
	}
}

func TestStoreLoadKeepsPreviousOnEmpty(t *testing.T) {
	s := NewStore()
	if _, err := s.Load(strings.NewReader(dump)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, in := range []string{"", "garbage\nmore garbage\n"} {
		_, err := s.Load(strings.NewReader(in))
		if !errors.Is(err, ErrEmptyDump) {
			t.Errorf("Load(%q) error = %v, want ErrEmptyDump", in, err)
		}
		if s.Len() != 3 {
			t.Errorf("Len() = %d after failed load, want 3", s.Len())
		}
		if _, ok := s.Lookup(rebase.Down(0x40007154)); !ok {
			t.Error("previous instruction lost after failed load")
		}
	}
}

func TestStoreLoadReplaces(t *testing.T) {
	s := NewStore()
	if _, err := s.Load(strings.NewReader(dump)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := s.Load(strings.NewReader("40008000:\t00 00 00 00\tl.nop\n")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if _, ok := s.Lookup(rebase.Down(0x40007154)); ok {
		t.Error("old instruction survived a reload")
	}
}

func TestStoreDuplicates(t *testing.T) {
	s := NewStore()
	stats, err := s.Load(strings.NewReader("40007154:\t00 00 00 00\tl.nop\n40007154:\t00 00 00 01\tret\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
	inst, _ := s.Lookup(rebase.Down(0x40007154))
	if inst.Text != "ret" {
		t.Errorf("Text = %q, want last write", inst.Text)
	}
}

func TestStoreAll(t *testing.T) {
	s := NewStore()
	if _, err := s.Load(strings.NewReader(dump)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var addrs []uint32
	for addr := range s.All() {
		addrs = append(addrs, addr)
	}
	want := []uint32{rebase.Down(0x40007154), rebase.Down(0x40007158), rebase.Down(0x4000715c)}
	if len(addrs) != len(want) {
		t.Fatalf("All() yielded %d, want %d", len(addrs), len(want))
	}
	for i := range want {
		if addrs[i] != want[i] {
			t.Errorf("addr %d = %#x, want %#x", i, addrs[i], want[i])
		}
	}
}
