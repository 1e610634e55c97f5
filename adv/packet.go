// Package adv recognizes LE Audio announcements carried in the service
// data of LE advertising payloads.
package adv

import (
	"github.com/go-ble/ble"
	bleadv "github.com/go-ble/ble/linux/adv"
)

// MaxExtendedPacketLength bounds the advertising data accepted for parsing.
const MaxExtendedPacketLength = 1650

// Advertising data types.
const (
	typeServiceData16 = 0x16

	// LE General Discoverable, BR/EDR not supported.
	flagsGeneralLEOnly = 0x06
)

// Packet is a raw advertising or scan response payload, a sequence of
// AD structures.
type Packet []byte

// structures splits the payload into its AD structures, so that fields
// of the same type repeated in one payload are all seen. Splitting stops
// at the first zero length or truncated structure.
func (p Packet) structures() []*bleadv.Packet {
	var s []*bleadv.Packet

	b := []byte(p)
	if len(b) > MaxExtendedPacketLength {
		b = b[:MaxExtendedPacketLength]
	}

	for len(b) > 0 {
		l := 1 + int(b[0])
		if l == 1 || len(b) < l {
			break
		}

		s = append(s, bleadv.NewRawPacket(b[:l]))
		b = b[l:]
	}

	return s
}

// ServiceData returns every 16-bit UUID service data field of the payload,
// in the order they appear.
func (p Packet) ServiceData() []ble.ServiceData {
	var sd []ble.ServiceData

	for _, s := range p.structures() {
		if len(s.Field(typeServiceData16)) < 2 {
			continue
		}

		sd = append(sd, s.ServiceData()...)
	}

	return sd
}

// NewAnnouncement returns a discoverable advertising payload carrying an
// announcement of the given type in the Common Audio Service data.
// It fails with bleadv.ErrNotFit if the payload exceeds a legacy advertisement.
func NewAnnouncement(typ AnnouncementType, metadata []byte) (Packet, error) {
	data := append([]byte{byte(typ)}, metadata...)

	p, err := bleadv.NewPacket(
		bleadv.Flags(flagsGeneralLEOnly),
		bleadv.ServiceData16(CommonAudioServiceUUID, data),
	)
	if err != nil {
		return nil, err
	}

	return Packet(p.Bytes()), nil
}
