// Package ring implements the Chord overlay algorithms over an
// in-memory topology of simulated nodes.
//
// Everything here is synchronous and single-threaded: a "remote" call
// on a peer is a lookup through the topology registry followed by a
// direct mutation of the peer's record. Maintenance (stabilization,
// finger repair, predecessor checks) runs only when explicitly
// invoked, so the ring is allowed to be temporarily inconsistent
// between commands.
package ring

import (
	"context"

	"ChordSim/internal/domain"
	"ChordSim/internal/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Ring drives the Chord protocol over a topology registry.
type Ring struct {
	space  domain.Space
	top    *Topology
	lgr    logger.Logger
	tracer trace.Tracer
}

// New returns a Ring over the given topology.
func New(space domain.Space, top *Topology, opts ...Option) *Ring {
	r := &Ring{
		space: space,
		top:   top,
		lgr:   &logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IDs returns the present identifiers in ascending order.
func (r *Ring) IDs() []domain.ID {
	return r.top.IDs()
}

// Node resolves an identifier to its record.
func (r *Ring) Node(id domain.ID) (*domain.Node, error) {
	return r.top.Get(id)
}

// Add registers a fresh node. The new node knows only itself: every
// finger points back at its own id and it has no predecessor.
func (r *Ring) Add(id domain.ID) error {
	if _, err := r.top.Insert(id); err != nil {
		return err
	}
	r.lgr.Info("node added", logger.FID("id", id))
	return nil
}

// Drop removes a node and splices its neighbors together on a
// best-effort basis: the predecessor inherits the dropped node's
// successor, and the successor forgets the dropped predecessor.
// Fingers at other nodes that still name the dropped id are left
// stale; entries 1 and up are refreshed on their owners' next finger
// repair, while a stale finger 0 is kept by that repair.
func (r *Ring) Drop(id domain.ID) error {
	n, err := r.top.Get(id)
	if err != nil {
		return err
	}
	succ := n.Successor()
	pred := n.Predecessor

	if err := r.top.Remove(id); err != nil {
		return err
	}

	if pred != nil {
		if pnode, err := r.top.Get(pred); err == nil {
			pnode.SetSuccessor(succ)
		} else {
			r.lgr.Debug("drop: predecessor unreachable", logger.FID("pred", pred))
		}
	}

	r.CheckPredecessor(succ)

	if snode, err := r.top.Get(succ); err == nil {
		// The successor inherits the dropped node's predecessor,
		// unless that would make it its own predecessor (the
		// two-node case collapses to a singleton that knows
		// nothing about its past).
		if pred == nil {
			snode.Predecessor = nil
		} else if !pred.Equal(succ) {
			snode.Predecessor = pred
		}
	}

	r.lgr.Info("node dropped",
		logger.FID("id", id),
		logger.FID("succ", succ),
		logger.FID("pred", pred))
	return nil
}

// Join introduces joiner to the ring known to bootstrap: its successor
// pointer is set to the successor of its own id as seen from the
// bootstrap peer, and that successor is told about the joiner. The
// rest of convergence (successor reconciliation elsewhere, finger
// repair) happens only through explicit stabilize and fix commands,
// one observable step at a time. Joining an already joined node is a
// no-op.
func (r *Ring) Join(ctx context.Context, joiner, bootstrap domain.ID) error {
	jnode, err := r.top.Get(joiner)
	if err != nil {
		return err
	}
	if !r.top.Has(bootstrap) {
		return &NodeError{ID: bootstrap, Err: ErrNodeNotFound}
	}
	if jnode.Joined {
		r.lgr.Debug("join: already joined", logger.FID("id", joiner))
		return nil
	}

	jnode.Predecessor = nil
	_, succ, err := r.FindSuccessor(ctx, bootstrap, joiner)
	if err != nil {
		return err
	}
	jnode.SetSuccessor(succ)
	jnode.Joined = true

	if err := r.Notify(succ, joiner); err != nil {
		r.lgr.Debug("join: notify failed", logger.FID("to", succ))
	}

	r.lgr.Info("join: candidate successor found",
		logger.FID("id", joiner),
		logger.FID("bootstrap", bootstrap),
		logger.FID("successor", succ))
	return nil
}

// FindSuccessor locates the node immediately following query on the
// ring, starting the walk at start (which must be present). It
// returns the successor together with the peer from whose finger
// table it was read.
//
// The walk is iterative with a hop budget of the topology size: on a
// corrupted ring (stale successor, dead-end finger table, exhausted
// budget) it fails safely by returning the current hop's view.
func (r *Ring) FindSuccessor(ctx context.Context, start, query domain.ID) (pred, succ domain.ID, err error) {
	atNode, err := r.top.Get(start)
	if err != nil {
		return nil, nil, err
	}

	var span trace.Span
	if r.tracer != nil {
		_, span = r.tracer.Start(ctx, "ring.find_successor",
			trace.WithAttributes(
				attribute.String("start", start.Decimal()),
				attribute.String("query", query.Decimal()),
			))
		defer span.End()
	}

	at := start
	for hops := 0; hops < r.top.Len(); hops++ {
		s := atNode.Successor()
		if query.Between(at, s) {
			if span != nil {
				span.SetAttributes(attribute.Int("hops", hops), attribute.String("successor", s.Decimal()))
			}
			return at, s, nil
		}

		next := r.closestPreceding(atNode, query)
		if next.Equal(at) {
			// Dead end: no finger advances the walk.
			return at, s, nil
		}
		nextNode, err := r.top.Get(next)
		if err != nil {
			// Stale finger naming a dropped peer.
			r.lgr.Debug("find_successor: finger unreachable",
				logger.FID("at", at),
				logger.FID("finger", next))
			return at, s, nil
		}
		if span != nil {
			span.AddEvent("hop", trace.WithAttributes(attribute.String("to", next.Decimal())))
		}
		at, atNode = next, nextNode
	}

	// Hop budget exhausted; the ring is not consistent.
	r.lgr.Warn("find_successor: hop budget exhausted",
		logger.FID("start", start),
		logger.FID("query", query))
	return at, atNode.Successor(), nil
}

// closestPreceding walks the finger table from the most distant entry
// down, returning the first finger that lies strictly between the
// node and the query. Falls back to the node's own id when no finger
// qualifies. The higher entries are what make lookups logarithmic.
func (r *Ring) closestPreceding(n *domain.Node, query domain.ID) domain.ID {
	for i := len(n.Fingers) - 1; i >= 0; i-- {
		f := n.Fingers[i]
		if f.BetweenOpen(n.ID, query) {
			return f
		}
	}
	return n.ID
}

// Stabilize reconciles a node's successor pointer with the successor's
// claimed predecessor, then notifies the (possibly updated) successor.
// A successor that has been dropped makes the reconciliation a no-op
// and the stale pointer stays in place. FixFingers does not replace it
// either: the lookup for finger 0 is answered from that same pointer.
func (r *Ring) Stabilize(id domain.ID) error {
	n, err := r.top.Get(id)
	if err != nil {
		return err
	}

	succ := n.Successor()
	if snode, err := r.top.Get(succ); err == nil {
		if p := snode.Predecessor; p != nil && p.BetweenOpen(id, succ) {
			n.SetSuccessor(p)
			r.lgr.Debug("stabilize: successor updated",
				logger.FID("id", id),
				logger.FID("old", succ),
				logger.FID("new", p))
		}
	} else {
		r.lgr.Debug("stabilize: successor unreachable", logger.FID("succ", succ))
	}

	if err := r.Notify(n.Successor(), id); err != nil {
		r.lgr.Debug("stabilize: notify failed",
			logger.FID("to", n.Successor()),
			logger.FID("from", id))
	}
	return nil
}

// Notify tells the node at to that from may be its predecessor. The
// hint is adopted when the node has none, or when from falls strictly
// between the current predecessor and the node.
func (r *Ring) Notify(to, from domain.ID) error {
	n, err := r.top.Get(to)
	if err != nil {
		return err
	}
	if n.Predecessor == nil || from.BetweenOpen(n.Predecessor, to) {
		n.Predecessor = from
		r.lgr.Debug("notify: predecessor updated",
			logger.FID("id", to),
			logger.FID("pred", from))
	}
	return nil
}

// FixFingers refreshes every finger entry of the node via successor
// lookups. All entries are repaired in one call rather than one per
// invocation, so a single command brings the whole table current.
func (r *Ring) FixFingers(ctx context.Context, id domain.ID) error {
	n, err := r.top.Get(id)
	if err != nil {
		return err
	}

	for i := 0; i < r.space.Bits; i++ {
		target, err := r.space.AddPow2(id, i)
		if err != nil {
			return err
		}
		_, succ, err := r.FindSuccessor(ctx, id, target)
		if err != nil {
			return err
		}
		n.Fingers[i] = succ
	}

	r.lgr.Debug("fix_fingers: table refreshed", logger.FID("id", id))
	return nil
}

// CheckPredecessor clears a node's predecessor pointer when it names
// an unreachable peer. Unknown ids are ignored so the drop cleanup
// can call it unconditionally.
func (r *Ring) CheckPredecessor(id domain.ID) {
	n, err := r.top.Get(id)
	if err != nil {
		return
	}
	if n.Predecessor != nil && !r.top.Has(n.Predecessor) {
		r.lgr.Debug("check_predecessor: clearing stale predecessor",
			logger.FID("id", id),
			logger.FID("pred", n.Predecessor))
		n.Predecessor = nil
	}
}
