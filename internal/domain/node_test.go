package domain

import "testing"

func TestNewNode(t *testing.T) {
	sp, err := NewSpace(4)
	if err != nil {
		t.Fatalf("NewSpace failed: %v", err)
	}
	id := sp.FromUint64(9)
	n := NewNode(id, sp)

	if !n.ID.Equal(id) {
		t.Errorf("ID = %s, expected 9", n.ID.Decimal())
	}
	if n.Predecessor != nil {
		t.Errorf("fresh node has predecessor %s", n.Predecessor.Decimal())
	}
	if n.Joined {
		t.Error("fresh node reports joined")
	}
	if len(n.Fingers) != sp.Bits {
		t.Fatalf("finger table length = %d, expected %d", len(n.Fingers), sp.Bits)
	}
	for i, f := range n.Fingers {
		if !f.Equal(id) {
			t.Errorf("Fingers[%d] = %s, expected self", i, f.Decimal())
		}
	}
	if !n.Successor().Equal(id) {
		t.Errorf("Successor() = %s, expected self", n.Successor().Decimal())
	}
}
