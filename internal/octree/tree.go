package octree

import "fmt"

// Tree is the root container: a mapping from first-octet value to the Node
// that owns the remainder of that /8. A key present in the map always refers
// to a non-empty subtree; a fully-aggregated first octet is represented by a
// single set bit on its Node's own heap rather than by removing the entry,
// since Tree itself holds no heap of its own (first-octet-spanning
// aggregation, i.e. masks below 8, is out of scope by design).
type Tree struct {
	seed  Seeding
	roots map[byte]*Node
}

// New returns an empty Tree using the given leaf-seeding policy.
func New(seed Seeding) *Tree {
	return &Tree{seed: seed, roots: make(map[byte]*Node)}
}

// Add inserts a single IPv4 address, given as four big-endian octets.
func (t *Tree) Add(addr [4]byte) {
	v := addr[0]
	root, ok := t.roots[v]
	if !ok {
		root = newNode(0, t.seed)
		t.roots[v] = root
	}
	root.Add(addr[:], t.seed)
}

// Walk returns the current aggregated CIDR set as a lazy, one-shot sequence.
// A fresh walk is obtained by calling Walk again on the still-living tree.
func (t *Tree) Walk() <-chan CIDR {
	out := make(chan CIDR)
	go func() {
		defer close(out)
		for _, v := range sortedKeys(t.roots) {
			sub := t.roots[v].Walk(0, 0)
			for c := range sub {
				out <- c
			}
		}
	}()
	return out
}

// Clear drops every entry, returning the tree to its empty state. Per spec
// the aggregator never calls this implicitly; it is exposed for the
// configurable "clear after dump" policy.
func (t *Tree) Clear() {
	t.roots = make(map[byte]*Node)
}

// String renders the current aggregate set, mainly for debugging.
func (t *Tree) String() string {
	s := ""
	for c := range t.Walk() {
		s += fmt.Sprintf("%d.%d.%d.%d/%d ",
			byte(c.Prefix>>24), byte(c.Prefix>>16), byte(c.Prefix>>8), byte(c.Prefix), c.Mask)
	}
	return s
}
