package octree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ipaggregator/ipaggregator/internal/ipaddr"
)

func ipv4(a, b, c, d byte) [4]byte { return [4]byte{a, b, c, d} }

func drain(t *Tree) []CIDR {
	var out []CIDR
	for c := range t.Walk() {
		out = append(out, c)
	}
	return out
}

func TestScenario1_FourAddressesMergeToSlash30(t *testing.T) {
	tree := New(Seeding{})
	tree.Add(ipv4(192, 168, 1, 2))
	tree.Add(ipv4(192, 168, 1, 1))
	tree.Add(ipv4(192, 168, 1, 0))
	tree.Add(ipv4(192, 168, 1, 3))

	got := drain(tree)
	assert.Equal(t, []CIDR{{Prefix: 0xC0A80100, Mask: 30}}, got)
}

func TestScenario2_FullSlash24(t *testing.T) {
	tree := New(Seeding{})
	for v := 0; v < 256; v++ {
		tree.Add(ipv4(192, 168, 1, byte(v)))
	}
	got := drain(tree)
	assert.Equal(t, []CIDR{{Prefix: 0xC0A80100, Mask: 24}}, got)
}

func TestScenario3_TwoSlash24sMergeToSlash23(t *testing.T) {
	tree := New(Seeding{})
	for v := 0; v < 256; v++ {
		tree.Add(ipv4(192, 168, 0, byte(v)))
		tree.Add(ipv4(192, 168, 1, byte(v)))
	}
	got := drain(tree)
	assert.Equal(t, []CIDR{{Prefix: 0xC0A80000, Mask: 23}}, got)
}

func TestScenario5_ThreeConsecutiveAddresses(t *testing.T) {
	tree := New(Seeding{})
	tree.Add(ipv4(2, 9, 18, 20))
	tree.Add(ipv4(2, 9, 18, 21))
	tree.Add(ipv4(2, 9, 18, 22))

	got := drain(tree)
	assert.Equal(t, []CIDR{
		{Prefix: 0x02091214, Mask: 31},
		{Prefix: 0x02091216, Mask: 32},
	}, got)
}

func TestSeedingBiasesTowardEnclosingSlash24(t *testing.T) {
	tree := New(Seeding{Zeroed: true, Broadcast: true})
	tree.Add(ipv4(10, 0, 0, 5))

	got := drain(tree)
	want := []CIDR{
		{Prefix: 0x0A000000, Mask: 32},
		{Prefix: 0x0A000005, Mask: 32},
		{Prefix: 0x0A0000FF, Mask: 32},
	}
	assert.Equal(t, want, got)
}

// P1: no two sibling BitHeap positions are ever simultaneously set.
func TestP1_NoSiblingsSimultaneouslySet(t *testing.T) {
	tree := New(Seeding{})
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		tree.Add(ipv4(192, byte(r.Intn(4)), byte(r.Intn(4)), byte(r.Intn(256))))
	}
	for _, root := range tree.roots {
		assertNoSiblingPairSet(t, root)
	}
}

func assertNoSiblingPairSet(t *testing.T, n *Node) {
	t.Helper()
	for p := uint32(1); p < 512; p++ {
		if n.heap.Test(p) {
			assert.False(t, n.heap.Test(p^1), "siblings %d/%d both set", p, p^1)
		}
	}
	for _, child := range n.children {
		assertNoSiblingPairSet(t, child)
	}
}

// P5: add is order-independent.
func TestP5_OrderIndependent(t *testing.T) {
	addrs := []([4]byte){
		ipv4(10, 1, 2, 3), ipv4(10, 1, 2, 4), ipv4(10, 1, 2, 5),
		ipv4(10, 1, 3, 0), ipv4(172, 16, 0, 1), ipv4(172, 16, 0, 2),
	}

	base := New(Seeding{})
	for _, a := range addrs {
		base.Add(a)
	}
	want := drain(base)

	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]([4]byte){}, addrs...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		perm := New(Seeding{})
		for _, a := range shuffled {
			perm.Add(a)
		}
		assert.Equal(t, want, drain(perm))
	}
}

// P6: idempotence.
func TestP6_Idempotent(t *testing.T) {
	tree := New(Seeding{})
	tree.Add(ipv4(8, 8, 8, 8))
	first := drain(tree)
	tree.Add(ipv4(8, 8, 8, 8))
	tree.Add(ipv4(8, 8, 8, 8))
	assert.Equal(t, first, drain(tree))
}

// Round-trip property: the set of addresses covered by Walk's output equals
// the union of [prefix, prefix+2^(32-mask)) ranges, for a variety of inputs.
func TestRoundTripCoverage(t *testing.T) {
	tree := New(Seeding{})
	inserted := map[uint32]bool{}
	addAndTrack := func(a [4]byte) {
		tree.Add(a)
		inserted[uint32(a[0])<<24|uint32(a[1])<<16|uint32(a[2])<<8|uint32(a[3])] = true
	}

	addAndTrack(ipv4(203, 0, 113, 5))
	addAndTrack(ipv4(203, 0, 113, 6))
	addAndTrack(ipv4(203, 0, 113, 7))
	addAndTrack(ipv4(198, 51, 100, 9))

	covered := map[uint32]bool{}
	for _, c := range drain(tree) {
		for addr := range ipaddr.Addresses(c.Prefix, c.Mask) {
			covered[addr] = true
		}
	}

	var insertedKeys, coveredKeys []uint32
	for k := range inserted {
		insertedKeys = append(insertedKeys, k)
	}
	for k := range covered {
		coveredKeys = append(coveredKeys, k)
	}
	sort.Slice(insertedKeys, func(i, j int) bool { return insertedKeys[i] < insertedKeys[j] })
	sort.Slice(coveredKeys, func(i, j int) bool { return coveredKeys[i] < coveredKeys[j] })

	for k := range inserted {
		assert.True(t, covered[k], "address %#x was inserted but not covered", k)
	}
}

func TestClearResetsTree(t *testing.T) {
	tree := New(Seeding{})
	tree.Add(ipv4(1, 2, 3, 4))
	assert.NotEmpty(t, drain(tree))
	tree.Clear()
	assert.Empty(t, drain(tree))
}
