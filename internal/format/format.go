/*
Package format renders aggregated CIDR pairs into datagram-sized text
batches. Grounded in the original source's formatters.rs simple_formatter /
concat_to_size: greedily pack "a.b.c.d/m" tokens, space separated, into
chunks no larger than maxPayload bytes.
*/
package format

import (
	"fmt"
	"strings"

	"github.com/ipaggregator/ipaggregator/internal/octree"
)

// MaxUDPPayload is the conservative IPv4 UDP payload limit used as the
// default chunk size.
const MaxUDPPayload = 508

// Batches packs cidrs into the fewest possible token strings, each at most
// maxPayload bytes, preserving order. A single token larger than maxPayload
// is returned alone and does exceed the cap (there's no way to shrink it
// further).
func Batches(cidrs []octree.CIDR, maxPayload int) []string {
	var batches []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			batches = append(batches, cur.String())
			cur.Reset()
		}
	}

	for _, c := range cidrs {
		tok := CIDRString(c)
		grown := len(tok)
		if cur.Len() > 0 {
			grown += cur.Len() + 1
		}
		if cur.Len() > 0 && grown > maxPayload {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(tok)
	}
	flush()
	return batches
}

// CIDRString renders a single CIDR pair as "a.b.c.d/m".
func CIDRString(c octree.CIDR) string {
	return fmt.Sprintf("%d.%d.%d.%d/%d",
		byte(c.Prefix>>24), byte(c.Prefix>>16), byte(c.Prefix>>8), byte(c.Prefix), c.Mask)
}
