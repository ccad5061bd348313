package domain

// Interval is the nested-set encoding of one node: every descendant's bounds lie
// strictly inside it, and siblings never overlap.
type Interval struct {
	Left  int
	Right int
}

// RootInterval is the encoding of a freshly set up tree.
func RootInterval() Interval { return Interval{Left: 1, Right: 2} }

// Width is the number of interval units spanned, two per node in the subtree.
func (i Interval) Width() int { return i.Right - i.Left + 1 }

// Size is the number of nodes in the subtree rooted at i, the node itself included.
func (i Interval) Size() int { return i.Width() / 2 }

// Contains reports strict nesting of o inside i.
func (i Interval) Contains(o Interval) bool { return i.Left < o.Left && o.Right < i.Right }

func (i Interval) Translate(delta int) Interval {
	return Interval{Left: i.Left + delta, Right: i.Right + delta}
}

// Band moves every bound strictly greater than Above by Delta.
type Band struct {
	Above int
	Delta int
}

// Renumber is an ordered list of bands. A bound is moved by the first band it lies
// above; bounds below every band stay put.
type Renumber []Band

// Bound returns the new value of a single left or right bound.
func (r Renumber) Bound(v int) int {
	for _, b := range r {
		if v > b.Above {
			return v + b.Delta
		}
	}
	return v
}

func (r Renumber) Apply(i Interval) Interval {
	return Interval{Left: r.Bound(i.Left), Right: r.Bound(i.Right)}
}

// Floor is the lowest bound that the renumbering can touch; rows whose right bound is
// not above it are unaffected.
func (r Renumber) Floor() int {
	if len(r) == 0 {
		return 0
	}
	floor := r[0].Above
	for _, b := range r[1:] {
		if b.Above < floor {
			floor = b.Above
		}
	}
	return floor
}

// PlanInsert opens a two-unit slot at the parent's right bound. The returned interval is
// the slot taken by the new rightmost child.
func PlanInsert(parent Interval) (Renumber, Interval) {
	return Renumber{{Above: parent.Right - 1, Delta: 2}}, Interval{Left: parent.Right, Right: parent.Right + 1}
}

// PlanRemoveSubtree closes the gap left by deleting node together with its descendants.
func PlanRemoveSubtree(node Interval) Renumber {
	return Renumber{{Above: node.Right, Delta: -node.Width()}}
}

// PlanRemoveNode closes the gap left by deleting node alone. Its descendants move up
// one unit to take the freed left bound, everything after the node moves two units.
func PlanRemoveNode(node Interval) Renumber {
	return Renumber{
		{Above: node.Right, Delta: -2},
		{Above: node.Left, Delta: -1},
	}
}

// MovePlan describes the first two phases of a subtree move.
type MovePlan struct {
	// Park translates the subtree to non-positive coordinates, out of reach of every
	// band, which all operate above 0.
	Park int
	// Close shuts the gap the subtree leaves in its source tree.
	Close Renumber
}

func PlanMove(node Interval) MovePlan {
	return MovePlan{
		Park:  -node.Right,
		Close: PlanRemoveSubtree(node),
	}
}

// ParkedCeiling is the highest right bound a subtree parked by PlanMove can have.
const ParkedCeiling = 0

// Parked reports whether a bound belongs to a subtree parked by PlanMove.
func Parked(right int) bool { return right <= ParkedCeiling }

// PlanReattach opens a gap at the (post-close) right bound of the new parent and
// returns the translation that brings the parked subtree into it.
func PlanReattach(node Interval, parentRight int) (Renumber, int) {
	open := Renumber{{Above: parentRight - 1, Delta: node.Width()}}
	parkedLeft := node.Left - node.Right
	return open, parentRight - parkedLeft
}
