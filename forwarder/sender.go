package forwarder

import (
	"github.com/ethereum/go-ethereum/common"
)

// AppendSender appends the originator to call data, the way the forwarder
// passes the authenticated sender to trusting contracts.
func AppendSender(data []byte, from common.Address) []byte {
	out := make([]byte, 0, len(data)+common.AddressLength)
	out = append(out, data...)
	return append(out, from.Bytes()...)
}

// ResolveSender returns the authenticated caller of a frame and the call data
// stripped of the forwarding suffix. Only calls whose immediate caller is the
// trusted forwarder have their trailing 20 bytes interpreted as the sender.
func ResolveSender(trusted, caller common.Address, input []byte) (sender common.Address, payload []byte, forwarded bool) {
	if trusted == (common.Address{}) || caller != trusted || len(input) < common.AddressLength {
		return caller, input, false
	}

	split := len(input) - common.AddressLength
	return common.BytesToAddress(input[split:]), input[:split], true
}
