/*
Package octree implements the online subnet-aggregation trie: a four-level
tree over the octets of an IPv4 address that merges sibling prefixes into
coarser CIDR blocks as soon as both halves of a block are populated.

A single Node type is parameterised by its level (0..2 non-terminal, 3
terminal) rather than split into two dispatch-by-interface types, per the
level determining which variant applies.
*/
package octree

import (
	"sort"

	"github.com/ipaggregator/ipaggregator/internal/bitheap"
)

// leafLevel is the depth at which a Node is terminal: it owns no children,
// and (optionally) is seeded at creation time.
const leafLevel = 3

// Seeding controls whether freshly created terminal nodes are pre-populated
// with the network-address and/or broadcast-address bits of their /24,
// biasing aggregation toward the enclosing block when a single host is seen.
type Seeding struct {
	Zeroed    bool // seed bit for octet value 0 ("network address")
	Broadcast bool // seed bit for octet value 255 ("broadcast address")
}

// Node is one level of the trie. Levels 0..2 are "inner": they own a sparse
// map from octet value to child Node. Level 3 is terminal: it owns no
// children and represents the fourth (host) octet directly.
type Node struct {
	level    int
	heap     bitheap.Heap
	children map[byte]*Node
}

func newNode(level int, seed Seeding) *Node {
	n := &Node{level: level}
	if level < leafLevel {
		n.children = make(map[byte]*Node)
		return n
	}
	if seed.Zeroed {
		n.heap.Set(bitheap.LeafBase + 0)
	}
	if seed.Broadcast {
		n.heap.Set(bitheap.LeafBase + 255)
	}
	return n
}

// covered reports whether octet value v is already represented somewhere on
// the path from its leaf position up to the root of this node's heap: either
// the leaf bit itself is set, or a coarser ancestor bit is. Exactly one of
// these can ever be true by construction (invariant I1).
func covered(h *bitheap.Heap, v byte) bool {
	p := bitheap.LeafBase + uint32(v)
	for {
		if h.Test(p) {
			return true
		}
		if p == 1 {
			return false
		}
		p /= 2
	}
}

// Add inserts the remaining path into this node's subtree. path has length
// 4-level: the first byte is the octet value this node itself tracks, the
// rest is delegated to the matching child.
func (n *Node) Add(path []byte, seed Seeding) {
	v := path[0]
	if covered(&n.heap, v) {
		return
	}
	leafPos := bitheap.LeafBase + uint32(v)

	if n.level == leafLevel {
		n.heap.Set(leafPos)
		n.heap.MergeUp(leafPos)
		return
	}

	child, ok := n.children[v]
	if !ok {
		child = newNode(n.level+1, seed)
		n.children[v] = child
	}
	child.Add(path[1:], seed)

	if child.IsFull() {
		n.heap.Set(leafPos)
		n.heap.MergeUp(leafPos)
		delete(n.children, v)
	}
}

// IsFull reports whether this node's entire octet range is covered.
func (n *Node) IsFull() bool {
	return n.heap.IsFull()
}

// CIDR is an aggregated (prefix, mask) pair.
type CIDR struct {
	Prefix uint32
	Mask   uint8
}

// Walk streams this node's aggregated CIDR set on a channel, closing it when
// exhausted. prefix is the bits fixed by ancestors; baseMask is how many of
// them are significant. Heap positions are emitted before children, and
// children are visited in ascending octet order, so results are
// deterministic and reproducible across runs.
func (n *Node) Walk(prefix uint32, baseMask uint8) <-chan CIDR {
	out := make(chan CIDR)
	go func() {
		defer close(out)
		for _, p := range n.heap.SetPositions() {
			start, partial := bitheap.RangeStart(p)
			out <- CIDR{
				Prefix: prefix | (start << (24 - baseMask)),
				Mask:   baseMask + partial,
			}
		}
		if n.level == leafLevel {
			return
		}
		for _, v := range sortedKeys(n.children) {
			child := n.children[v]
			sub := child.Walk(prefix|(uint32(v)<<(24-baseMask)), baseMask+8)
			for c := range sub {
				out <- c
			}
		}
	}()
	return out
}

func sortedKeys(m map[byte]*Node) []byte {
	keys := make([]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
