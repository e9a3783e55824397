package ring

import (
	"context"
	"errors"
	"testing"

	"ChordSim/internal/domain"
)

// newTestRing builds a ring over a fresh topology with the given ids
// already added.
func newTestRing(t *testing.T, bits int, ids ...uint64) (domain.Space, *Ring) {
	t.Helper()
	sp := testSpace(t, bits)
	r := New(sp, NewTopology(sp))
	for _, v := range ids {
		if err := r.Add(sp.FromUint64(v)); err != nil {
			t.Fatalf("Add(%d) failed: %v", v, err)
		}
	}
	return sp, r
}

func assertNode(t *testing.T, r *Ring, sp domain.Space, id uint64, succ uint64, pred string, fingers string) {
	t.Helper()
	n, err := r.Node(sp.FromUint64(id))
	if err != nil {
		t.Fatalf("Node(%d) failed: %v", id, err)
	}
	if !n.Successor().Equal(sp.FromUint64(succ)) {
		t.Errorf("node %d successor = %s, expected %d", id, n.Successor().Decimal(), succ)
	}
	if got := n.Predecessor.Decimal(); got != pred {
		t.Errorf("node %d predecessor = %s, expected %s", id, got, pred)
	}
	if got := domain.FormatList(n.Fingers, ","); got != fingers {
		t.Errorf("node %d fingers = %s, expected %s", id, got, fingers)
	}
}

func TestAddDuplicate(t *testing.T) {
	sp, r := newTestRing(t, 3, 0)
	if err := r.Add(sp.FromUint64(0)); !errors.Is(err, ErrNodeExists) {
		t.Fatalf("duplicate Add = %v, expected ErrNodeExists", err)
	}
}

func TestDropMissing(t *testing.T) {
	sp, r := newTestRing(t, 3)
	if err := r.Drop(sp.FromUint64(7)); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("Drop on empty topology = %v, expected ErrNodeNotFound", err)
	}
}

func TestFindSuccessorSingleNode(t *testing.T) {
	sp, r := newTestRing(t, 3, 2)
	ctx := context.Background()

	// A lone node answers every query with itself.
	for q := uint64(0); q < 8; q++ {
		pred, succ, err := r.FindSuccessor(ctx, sp.FromUint64(2), sp.FromUint64(q))
		if err != nil {
			t.Fatalf("FindSuccessor(2, %d) failed: %v", q, err)
		}
		if !pred.Equal(sp.FromUint64(2)) || !succ.Equal(sp.FromUint64(2)) {
			t.Errorf("FindSuccessor(2, %d) = (%s, %s), expected (2, 2)",
				q, pred.Decimal(), succ.Decimal())
		}
	}
}

func TestFindSuccessorMissingStart(t *testing.T) {
	sp, r := newTestRing(t, 3, 0)
	if _, _, err := r.FindSuccessor(context.Background(), sp.FromUint64(4), sp.FromUint64(1)); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("FindSuccessor from absent start = %v, expected ErrNodeNotFound", err)
	}
}

// TestThreeNodeConvergence walks a three-node ring through the join,
// stabilize, and repair sequence and checks the resulting routing
// state at every node.
func TestThreeNodeConvergence(t *testing.T) {
	sp, r := newTestRing(t, 3, 0, 3, 5)
	ctx := context.Background()

	if err := r.Join(ctx, sp.FromUint64(3), sp.FromUint64(0)); err != nil {
		t.Fatalf("Join(3, 0) failed: %v", err)
	}
	if err := r.Join(ctx, sp.FromUint64(5), sp.FromUint64(0)); err != nil {
		t.Fatalf("Join(5, 0) failed: %v", err)
	}
	for _, id := range []uint64{0, 3, 5, 0} {
		if err := r.Stabilize(sp.FromUint64(id)); err != nil {
			t.Fatalf("Stabilize(%d) failed: %v", id, err)
		}
	}
	for _, id := range []uint64{0, 3, 5} {
		if err := r.FixFingers(ctx, sp.FromUint64(id)); err != nil {
			t.Fatalf("FixFingers(%d) failed: %v", id, err)
		}
	}

	assertNode(t, r, sp, 0, 3, "5", "3,3,5")
	assertNode(t, r, sp, 3, 5, "0", "5,5,0")
	assertNode(t, r, sp, 5, 0, "3", "0,0,3")
}

func TestJoinAlreadyJoinedIsNoOp(t *testing.T) {
	sp, r := newTestRing(t, 3, 0, 3, 5)
	ctx := context.Background()

	if err := r.Join(ctx, sp.FromUint64(3), sp.FromUint64(0)); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	n, err := r.Node(sp.FromUint64(3))
	if err != nil {
		t.Fatalf("Node failed: %v", err)
	}
	before := domain.FormatList(n.Fingers, ",")

	// A second join, even through a different bootstrap, changes nothing.
	if err := r.Join(ctx, sp.FromUint64(3), sp.FromUint64(5)); err != nil {
		t.Fatalf("second Join failed: %v", err)
	}
	if got := domain.FormatList(n.Fingers, ","); got != before {
		t.Errorf("second join changed fingers from %s to %s", before, got)
	}
}

func TestJoinMissingPeer(t *testing.T) {
	sp, r := newTestRing(t, 3, 0)
	ctx := context.Background()

	if err := r.Join(ctx, sp.FromUint64(4), sp.FromUint64(0)); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("Join with absent joiner = %v, expected ErrNodeNotFound", err)
	}
	if err := r.Join(ctx, sp.FromUint64(0), sp.FromUint64(4)); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("Join with absent bootstrap = %v, expected ErrNodeNotFound", err)
	}
}

func TestFixFingersIdempotent(t *testing.T) {
	sp, r := newTestRing(t, 3, 0, 3, 5)
	ctx := context.Background()

	_ = r.Join(ctx, sp.FromUint64(3), sp.FromUint64(0))
	_ = r.Join(ctx, sp.FromUint64(5), sp.FromUint64(0))
	for _, id := range []uint64{0, 3, 5, 0} {
		_ = r.Stabilize(sp.FromUint64(id))
	}

	for _, id := range []uint64{0, 3, 5} {
		if err := r.FixFingers(ctx, sp.FromUint64(id)); err != nil {
			t.Fatalf("FixFingers(%d) failed: %v", id, err)
		}
	}
	first := make(map[uint64]string)
	for _, id := range []uint64{0, 3, 5} {
		n, _ := r.Node(sp.FromUint64(id))
		first[id] = domain.FormatList(n.Fingers, ",")
	}

	for _, id := range []uint64{0, 3, 5} {
		if err := r.FixFingers(ctx, sp.FromUint64(id)); err != nil {
			t.Fatalf("second FixFingers(%d) failed: %v", id, err)
		}
		n, _ := r.Node(sp.FromUint64(id))
		if got := domain.FormatList(n.Fingers, ","); got != first[id] {
			t.Errorf("node %d fingers changed on repeated fix: %s then %s", id, first[id], got)
		}
	}
}

// TestTwoNodeRingAndDrop runs the two-node lifecycle: join, converge,
// then drop one side and watch the survivor collapse back to a
// singleton.
func TestTwoNodeRingAndDrop(t *testing.T) {
	sp, r := newTestRing(t, 4, 1, 8)
	ctx := context.Background()

	if err := r.Join(ctx, sp.FromUint64(8), sp.FromUint64(1)); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	_ = r.Stabilize(sp.FromUint64(1))
	_ = r.Stabilize(sp.FromUint64(8))
	_ = r.FixFingers(ctx, sp.FromUint64(1))
	_ = r.FixFingers(ctx, sp.FromUint64(8))

	assertNode(t, r, sp, 1, 8, "8", "8,8,8,1")
	assertNode(t, r, sp, 8, 1, "1", "1,1,1,1")

	if err := r.Drop(sp.FromUint64(8)); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if err := r.FixFingers(ctx, sp.FromUint64(1)); err != nil {
		t.Fatalf("FixFingers after drop failed: %v", err)
	}
	assertNode(t, r, sp, 1, 1, "None", "1,1,1,1")
}

func TestDropSplicesNeighbors(t *testing.T) {
	sp, r := newTestRing(t, 3, 0, 3, 5)
	ctx := context.Background()

	_ = r.Join(ctx, sp.FromUint64(3), sp.FromUint64(0))
	_ = r.Join(ctx, sp.FromUint64(5), sp.FromUint64(0))
	for _, id := range []uint64{0, 3, 5, 0} {
		_ = r.Stabilize(sp.FromUint64(id))
	}

	if err := r.Drop(sp.FromUint64(3)); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}

	n0, _ := r.Node(sp.FromUint64(0))
	if !n0.Successor().Equal(sp.FromUint64(5)) {
		t.Errorf("node 0 successor = %s after drop, expected 5", n0.Successor().Decimal())
	}
	n5, _ := r.Node(sp.FromUint64(5))
	if n5.Predecessor.Decimal() != "0" {
		t.Errorf("node 5 predecessor = %s after drop, expected 0", n5.Predecessor.Decimal())
	}
}

func TestStabilizeStaleSuccessor(t *testing.T) {
	sp, r := newTestRing(t, 3, 0, 3)
	ctx := context.Background()

	_ = r.Join(ctx, sp.FromUint64(3), sp.FromUint64(0))
	_ = r.Stabilize(sp.FromUint64(0))
	_ = r.Stabilize(sp.FromUint64(3))

	// Remove 3 behind the ring's back so node 0 keeps a stale
	// successor pointer, then stabilize: it must neither panic nor
	// mutate the pointer.
	if err := r.top.Remove(sp.FromUint64(3)); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := r.Stabilize(sp.FromUint64(0)); err != nil {
		t.Fatalf("Stabilize with stale successor failed: %v", err)
	}
	n0, _ := r.Node(sp.FromUint64(0))
	if !n0.Successor().Equal(sp.FromUint64(3)) {
		t.Errorf("stale successor rewritten to %s, expected untouched 3", n0.Successor().Decimal())
	}
}

func TestCheckPredecessorClearsStale(t *testing.T) {
	sp, r := newTestRing(t, 3, 0, 3)
	ctx := context.Background()

	_ = r.Join(ctx, sp.FromUint64(3), sp.FromUint64(0))
	n0, _ := r.Node(sp.FromUint64(0))
	if n0.Predecessor == nil {
		t.Fatal("join did not hint node 0 about its predecessor")
	}

	if err := r.top.Remove(sp.FromUint64(3)); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	r.CheckPredecessor(sp.FromUint64(0))
	if n0.Predecessor != nil {
		t.Errorf("stale predecessor %s not cleared", n0.Predecessor.Decimal())
	}

	// Absent node is ignored.
	r.CheckPredecessor(sp.FromUint64(3))
}

// TestRoundRobinConvergence grows a ring one join at a time and runs
// stabilization round-robin until the successor pointers form the
// ascending cycle and every predecessor is the cyclic predecessor.
func TestRoundRobinConvergence(t *testing.T) {
	ids := []uint64{1, 4, 9, 11, 20, 29}
	sp, r := newTestRing(t, 5, ids...)
	ctx := context.Background()

	for _, v := range ids[1:] {
		if err := r.Join(ctx, sp.FromUint64(v), sp.FromUint64(1)); err != nil {
			t.Fatalf("Join(%d, 1) failed: %v", v, err)
		}
	}

	// One round per node is enough for the successor chain to settle
	// when everyone bootstrapped through the same peer.
	for round := 0; round < len(ids); round++ {
		for _, v := range ids {
			if err := r.Stabilize(sp.FromUint64(v)); err != nil {
				t.Fatalf("Stabilize(%d) failed: %v", v, err)
			}
		}
	}
	for _, v := range ids {
		if err := r.FixFingers(ctx, sp.FromUint64(v)); err != nil {
			t.Fatalf("FixFingers(%d) failed: %v", v, err)
		}
	}

	for i, v := range ids {
		n, err := r.Node(sp.FromUint64(v))
		if err != nil {
			t.Fatalf("Node(%d) failed: %v", v, err)
		}
		wantSucc := ids[(i+1)%len(ids)]
		wantPred := ids[(i+len(ids)-1)%len(ids)]
		if !n.Successor().Equal(sp.FromUint64(wantSucc)) {
			t.Errorf("node %d successor = %s, expected %d", v, n.Successor().Decimal(), wantSucc)
		}
		if !n.Predecessor.Equal(sp.FromUint64(wantPred)) {
			t.Errorf("node %d predecessor = %s, expected %d", v, n.Predecessor.Decimal(), wantPred)
		}
	}

	// With the ring converged, every finger entry agrees with a fresh
	// lookup for its target.
	for _, v := range ids {
		n, _ := r.Node(sp.FromUint64(v))
		for i := range n.Fingers {
			target, err := sp.AddPow2(sp.FromUint64(v), i)
			if err != nil {
				t.Fatalf("AddPow2 failed: %v", err)
			}
			_, succ, err := r.FindSuccessor(ctx, sp.FromUint64(v), target)
			if err != nil {
				t.Fatalf("FindSuccessor failed: %v", err)
			}
			if !n.Fingers[i].Equal(succ) {
				t.Errorf("node %d finger[%d] = %s, lookup says %s",
					v, i, n.Fingers[i].Decimal(), succ.Decimal())
			}
		}
	}
}
