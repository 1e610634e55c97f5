package bluetooth

import (
	"bytes"
	"strconv"

	"github.com/darkhz/bleconnmgr/errorkinds"
)

// MacAddress represents a Bluetooth device address.
// The bytes are stored least significant first, as they appear on the wire.
type MacAddress [NumAddressBytes]byte

const (
	// MaxAddressStringLength is the length of a Bluetooth address string (with ':').
	MaxAddressStringLength = 17

	// NumAddressBytes is the total number of bytes in a MacAddress byte array.
	NumAddressBytes = 6
)

// ParseMAC parses the given address, which must be in 11:22:33:AA:BB:CC
// format. If it cannot be parsed, an error is returned.
func ParseMAC(s string) (MacAddress, error) {
	var mac MacAddress

	if len(s) != MaxAddressStringLength {
		return mac, errorkinds.ErrInvalidAddress
	}

	for i := range NumAddressBytes {
		pos := i * 3
		if i < NumAddressBytes-1 && s[pos+2] != ':' {
			return mac, errorkinds.ErrInvalidAddress
		}

		octet, err := strconv.ParseUint(s[pos:pos+2], 16, 8)
		if err != nil {
			return mac, errorkinds.ErrInvalidAddress
		}

		mac[NumAddressBytes-1-i] = byte(octet)
	}

	return mac, nil
}

// MustParseMAC is like ParseMAC but panics if the address cannot be parsed.
func MustParseMAC(s string) MacAddress {
	mac, err := ParseMAC(s)
	if err != nil {
		panic(`bluetooth: ParseMAC(` + strconv.Quote(s) + `): ` + err.Error())
	}

	return mac
}

// String returns a human-readable version of this address, such as
// 11:22:33:AA:BB:CC.
func (m MacAddress) String() string {
	const hexdigits = "0123456789ABCDEF"

	var b bytes.Buffer
	b.Grow(MaxAddressStringLength)

	for i := NumAddressBytes - 1; i >= 0; i-- {
		if i != NumAddressBytes-1 {
			b.WriteByte(':')
		}

		b.WriteByte(hexdigits[m[i]>>4])
		b.WriteByte(hexdigits[m[i]&0x0f])
	}

	return b.String()
}

// IsNil checks if the address is all zeros.
func (m MacAddress) IsNil() bool {
	return m == MacAddress{}
}

// Compare orders two addresses by their printed form.
func (m MacAddress) Compare(other MacAddress) int {
	for i := NumAddressBytes - 1; i >= 0; i-- {
		switch {
		case m[i] < other[i]:
			return -1
		case m[i] > other[i]:
			return 1
		}
	}

	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (m MacAddress) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so that addresses
// can be decoded directly from configuration and scenario files.
func (m *MacAddress) UnmarshalText(data []byte) error {
	mac, err := ParseMAC(string(data))
	if err != nil {
		return err
	}

	*m = mac

	return nil
}
