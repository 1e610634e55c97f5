package connmgr

import (
	"time"

	"github.com/google/uuid"

	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/eventbus"
)

// TransitionKind describes a state change of the connection manager.
type TransitionKind string

// The different transition kinds.
const (
	TransitionPeerTracked         TransitionKind = "peer_tracked"
	TransitionPeerErased          TransitionKind = "peer_erased"
	TransitionAcceptListAdded     TransitionKind = "accept_list_added"
	TransitionAcceptListRejected  TransitionKind = "accept_list_rejected"
	TransitionAcceptListRemoved   TransitionKind = "accept_list_removed"
	TransitionFilterEnabled       TransitionKind = "filter_enabled"
	TransitionFilterDisabled      TransitionKind = "filter_disabled"
	TransitionFastMode            TransitionKind = "fast_mode"
	TransitionSlowMode            TransitionKind = "slow_mode"
	TransitionDirectStarted       TransitionKind = "direct_started"
	TransitionDirectRemoved       TransitionKind = "direct_removed"
	TransitionDirectTimedOut      TransitionKind = "direct_timed_out"
	TransitionAnnouncementMatched TransitionKind = "announcement_matched"
	TransitionReset               TransitionKind = "reset"
)

// Transition is published on the event bus for every state change.
type Transition struct {
	ID      uuid.UUID
	Kind    TransitionKind
	Address bluetooth.MacAddress
	App     AppID
	Time    time.Time
}

// String returns a short description of the transition.
func (t Transition) String() string {
	if t.Address.IsNil() {
		return string(t.Kind)
	}

	return string(t.Kind) + " " + t.Address.String()
}

func (m *Manager) publish(kind TransitionKind, address bluetooth.MacAddress, app AppID) {
	m.events.Publish(eventbus.EventTransition, Transition{
		ID:      uuid.New(),
		Kind:    kind,
		Address: address,
		App:     app,
		Time:    m.clock.Now(),
	})
}
