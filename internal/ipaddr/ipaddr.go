/*
Package ipaddr provides small IPv4 conversion and enumeration helpers; the
octree tests use Addresses to expand aggregated blocks. Adapted from the teacher's util/ip and
util/cidr packages: the uint32<->net.IP conversions follow IPv4ToUint32 /
Uint32ToIPv4, and Addresses follows IPsInNetwork's lazy channel-generator
shape.
*/
package ipaddr

import (
	"encoding/binary"
	"net"

	"github.com/ipaggregator/ipaggregator/internal/ipaggerr"
)

// ToUint32 converts a dotted-quad IPv4 net.IP to its big-endian uint32
// representation.
func ToUint32(ip net.IP) (uint32, error) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, ipaggerr.ErrInputParse
	}
	return binary.BigEndian.Uint32(v4), nil
}

// FromUint32 converts a big-endian uint32 back to a dotted-quad net.IP.
func FromUint32(n uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, n)
	return ip
}

// Octets splits a big-endian uint32 into its four constituent bytes.
func Octets(n uint32) [4]byte {
	return [4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}

// Addresses returns a channel that lazily generates every 32-bit address
// covered by the CIDR block (prefix, mask), in ascending order. Used by
// tests to verify round-trip coverage of the aggregator's output without
// materialising potentially large ranges up front.
func Addresses(prefix uint32, mask uint8) <-chan uint32 {
	out := make(chan uint32)
	size := uint64(1) << (32 - mask)
	go func() {
		defer close(out)
		for i := uint64(0); i < size; i++ {
			out <- prefix + uint32(i)
		}
	}()
	return out
}
