package adv

import (
	"slices"
	"testing"

	"github.com/go-ble/ble"
	bleadv "github.com/go-ble/ble/linux/adv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serviceData returns a 16-bit UUID service data structure.
func serviceData(uuid uint16, data ...byte) []byte {
	return append([]byte{byte(len(data) + 3), typeServiceData16, byte(uuid), byte(uuid >> 8)}, data...)
}

func packet(structures ...[]byte) Packet {
	return Packet(slices.Concat(structures...))
}

func TestPacketServiceData(t *testing.T) {
	p := packet(
		[]byte{0x02, 0x01, 0x06},
		[]byte{0x07, 0x09, 'e', 'a', 'r', 'b', 'u', 'd'},
		serviceData(0x180F, 0x64),
		serviceData(CommonAudioServiceUUID, 0x00, 0x01),
	)

	sd := p.ServiceData()
	require.Len(t, sd, 2)
	assert.True(t, sd[0].UUID.Equal(ble.UUID16(0x180F)))
	assert.Equal(t, []byte{0x64}, sd[0].Data)
	assert.True(t, sd[1].UUID.Equal(ble.UUID16(CommonAudioServiceUUID)))
	assert.Equal(t, []byte{0x00, 0x01}, sd[1].Data)
}

func TestPacketMalformed(t *testing.T) {
	// Length claims more bytes than available.
	p := Packet{0x05, typeServiceData16, 0x4E}
	assert.Nil(t, p.ServiceData())

	// Zero length terminates parsing.
	p = packet([]byte{0x00}, serviceData(AudioStreamControlServiceUUID, 0x00))
	assert.Nil(t, p.ServiceData())

	// Service data too short to carry a UUID.
	p = Packet{0x02, typeServiceData16, 0x4E}
	assert.Empty(t, p.ServiceData())

	// Structures before a truncated one are kept.
	p = packet(serviceData(CommonAudioServiceUUID, 0x01), []byte{0x09, 0xFF})
	assert.Equal(t, []AnnouncementType{TargetedAnnouncement}, p.Announcements())
}

func TestAnnouncement(t *testing.T) {
	tests := []struct {
		name   string
		packet Packet
		typ    AnnouncementType
		found  bool
	}{
		{
			name:   "ascs general",
			packet: packet(serviceData(AudioStreamControlServiceUUID, 0x00, 0x01, 0x02)),
			typ:    GeneralAnnouncement,
			found:  true,
		},
		{
			name:   "cas targeted",
			packet: packet(serviceData(CommonAudioServiceUUID, 0x01)),
			typ:    TargetedAnnouncement,
			found:  true,
		},
		{
			name: "second field matches",
			packet: packet(
				serviceData(0x180F, 0x01),
				serviceData(CommonAudioServiceUUID, 0x00),
			),
			typ:   GeneralAnnouncement,
			found: true,
		},
		{
			name: "general after targeted",
			packet: packet(
				serviceData(AudioStreamControlServiceUUID, 0x01),
				serviceData(CommonAudioServiceUUID, 0x00),
			),
			typ:   GeneralAnnouncement,
			found: true,
		},
		{
			name:   "other type only",
			packet: packet(serviceData(AudioStreamControlServiceUUID, 0x01)),
			typ:    GeneralAnnouncement,
		},
		{
			name:   "unrelated service",
			packet: packet(serviceData(0x180F, 0x00)),
		},
		{
			name:   "missing type octet",
			packet: packet(serviceData(AudioStreamControlServiceUUID)),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.found, test.packet.IsAnnouncement(test.typ))
		})
	}
}

func TestNewAnnouncement(t *testing.T) {
	p, err := NewAnnouncement(TargetedAnnouncement, []byte{0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []AnnouncementType{TargetedAnnouncement}, p.Announcements())
	assert.False(t, p.IsAnnouncement(GeneralAnnouncement))

	// A legacy advertisement holds at most 31 bytes.
	_, err = NewAnnouncement(GeneralAnnouncement, make([]byte, 300))
	assert.ErrorIs(t, err, bleadv.ErrNotFit)
}

func TestParseAnnouncementType(t *testing.T) {
	typ, err := ParseAnnouncementType("Targeted")
	require.NoError(t, err)
	assert.Equal(t, TargetedAnnouncement, typ)

	typ, err = ParseAnnouncementType("")
	require.NoError(t, err)
	assert.Equal(t, GeneralAnnouncement, typ)
	assert.Equal(t, "general", typ.String())

	_, err = ParseAnnouncementType("broadcast")
	assert.Error(t, err)
	assert.Equal(t, "unknown(0x07)", AnnouncementType(7).String())
}
