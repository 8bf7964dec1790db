/*
Package parse turns a raw datagram or message payload into IPv4 addresses.
Grounded in the original source's simple_parser: split on whitespace runs
(leading, trailing, and repeated separators all collapse), parse each token
as a dotted quad.
*/
package parse

import (
	"bytes"
	"fmt"
	"net"

	"github.com/ipaggregator/ipaggregator/internal/ipaggerr"
)

// StopSentinel is the exact payload that signals orderly receiver shutdown.
const StopSentinel = "STOP!"

// Addresses splits payload on whitespace and parses each token as a dotted
// quad IPv4 address. Malformed tokens are skipped rather than aborting the
// whole payload; if any token failed to parse, the first such error is
// returned alongside whatever addresses did parse, so the caller can log and
// continue per the InputParse policy.
func Addresses(payload []byte) ([][4]byte, error) {
	var out [][4]byte
	var firstErr error

	for _, tok := range bytes.Fields(payload) {
		addr, err := parseToken(tok)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %q", ipaggerr.ErrInputParse, tok)
			}
			continue
		}
		out = append(out, addr)
	}
	return out, firstErr
}

func parseToken(tok []byte) ([4]byte, error) {
	ip := net.ParseIP(string(tok))
	if ip == nil {
		return [4]byte{}, ipaggerr.ErrInputParse
	}
	v4 := ip.To4()
	if v4 == nil {
		return [4]byte{}, ipaggerr.ErrInputParse
	}
	return [4]byte{v4[0], v4[1], v4[2], v4[3]}, nil
}
