package adv

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-ble/ble"
)

// Service UUIDs whose service data carries an LE Audio announcement.
const (
	AudioStreamControlServiceUUID uint16 = 0x184E
	CommonAudioServiceUUID        uint16 = 0x1853
)

// AnnouncementType is the first octet of an LE Audio announcement.
type AnnouncementType byte

// The different announcement types.
const (
	GeneralAnnouncement  AnnouncementType = 0x00
	TargetedAnnouncement AnnouncementType = 0x01
)

// String returns the configuration name of the announcement type.
func (a AnnouncementType) String() string {
	switch a {
	case GeneralAnnouncement:
		return "general"

	case TargetedAnnouncement:
		return "targeted"
	}

	return fmt.Sprintf("unknown(0x%02x)", byte(a))
}

// ParseAnnouncementType parses a configuration name into an announcement type.
func ParseAnnouncementType(s string) (AnnouncementType, error) {
	switch strings.ToLower(s) {
	case "", "general":
		return GeneralAnnouncement, nil

	case "targeted":
		return TargetedAnnouncement, nil
	}

	return 0, fmt.Errorf("invalid announcement type %q (valid types are 'general', 'targeted')", s)
}

// Announcements returns the announcement types carried in the service data
// of the recognized audio services, in the order they appear.
func (p Packet) Announcements() []AnnouncementType {
	var types []AnnouncementType

	ascs := ble.UUID16(AudioStreamControlServiceUUID)
	cas := ble.UUID16(CommonAudioServiceUUID)

	for _, sd := range p.ServiceData() {
		if !sd.UUID.Equal(ascs) && !sd.UUID.Equal(cas) {
			continue
		}

		if len(sd.Data) < 1 {
			continue
		}

		types = append(types, AnnouncementType(sd.Data[0]))
	}

	return types
}

// IsAnnouncement reports whether any recognized service data field of the
// packet carries an announcement of the given type.
func (p Packet) IsAnnouncement(typ AnnouncementType) bool {
	return slices.Contains(p.Announcements(), typ)
}
