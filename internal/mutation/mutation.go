// Package mutation implements a typed, priority-ordered change queue.
// Mutations are pushed into a Queue, sorted once, then applied serially so
// that changes to the same target in the same tick resolve in a fixed order.
// The hub uses it to order the despawning of boats that died in the same
// tick; the interaction step itself mutates entities directly.
package mutation

import "sort"

// Mutation is a single deferred change to apply to the world after the
// interaction step finishes walking sector pairs. Target identifies what the
// mutation acts on (an EntityID, PlayerID, or TeamID depending on Kind);
// callers type-assert or switch on the concrete Mutation implementation
// inside Apply.
type Mutation interface {
	// AbsolutePriority groups mutations into ordered phases (e.g. clear
	// spawn protection before damage, apply damage before despawn). Higher
	// runs first.
	AbsolutePriority() int
	// RelativePriority breaks ties within the same AbsolutePriority (e.g.
	// the higher-damage hit of two simultaneous torpedo impacts wins).
	// Higher runs first.
	RelativePriority() float32
	// Target identifies what the mutation reads/writes, so Queue.Apply can
	// skip mutations whose target was already removed by an
	// earlier-applied mutation in the same tick.
	Target() Target
}

// Target names the entity a Mutation acts on. Kind distinguishes the ID
// namespace (entities, players, and teams all use small integer IDs that
// would otherwise collide).
type Target struct {
	Kind TargetKind
	ID   uint64
}

type TargetKind uint8

const (
	TargetEntity TargetKind = iota
	TargetPlayer
	TargetTeam
)

// Queue accumulates Mutations via Push, then applies them in a single
// deterministic pass.
type Queue struct {
	items []entry
	seq   int
}

type entry struct {
	m   Mutation
	seq int
}

// Push enqueues a mutation. Safe to call from any goroutine as long as the
// caller serializes its own Pushes (e.g. one Queue per sector-stripe
// goroutine, merged with Merge after the parallel phase).
func (q *Queue) Push(m Mutation) {
	q.seq++
	q.items = append(q.items, entry{m: m, seq: q.seq})
}

// Merge appends another Queue's items, preserving relative insertion order
// as a final tiebreaker. Nothing in the hub calls it.
func (q *Queue) Merge(other *Queue) {
	for _, e := range other.items {
		q.seq++
		q.items = append(q.items, entry{m: e.m, seq: q.seq})
	}
}

// Len reports the number of pending mutations.
func (q *Queue) Len() int { return len(q.items) }

// Reset clears the queue for reuse next tick.
func (q *Queue) Reset() {
	q.items = q.items[:0]
	q.seq = 0
}

// sort orders mutations by (AbsolutePriority desc, RelativePriority desc,
// insertion order asc) — a stable ordering so mutations with identical
// priority apply in the order they were produced.
func (q *Queue) sort() {
	sort.SliceStable(q.items, func(i, j int) bool {
		a, b := q.items[i].m, q.items[j].m
		if ap, bp := a.AbsolutePriority(), b.AbsolutePriority(); ap != bp {
			return ap > bp
		}
		if ap, bp := a.RelativePriority(), b.RelativePriority(); ap != bp {
			return ap > bp
		}
		return q.items[i].seq < q.items[j].seq
	})
}

// Apply sorts and applies every pending mutation in priority order,
// skipping any mutation whose Target was removed (per removed's report) by
// an earlier mutation in the same Apply call. apply performs the actual
// side effect and reports whether its Target was thereby removed from the
// world (so later mutations targeting it are skipped).
func (q *Queue) Apply(apply func(m Mutation) (removedTarget bool)) {
	q.sort()

	removed := make(map[Target]bool, len(q.items)/4)
	for _, e := range q.items {
		t := e.m.Target()
		if removed[t] {
			continue
		}
		if apply(e.m) {
			removed[t] = true
		}
	}

	q.Reset()
}
