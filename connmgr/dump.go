package connmgr

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/darkhz/bleconnmgr/bluetooth"
)

// DirectSnapshot describes a direct connection attempt.
type DirectSnapshot struct {
	App      AppID     `json:"app"`
	Deadline time.Time `json:"deadline"`
}

// PeerSnapshot describes the registry entry of a peer.
type PeerSnapshot struct {
	Address      bluetooth.MacAddress `json:"address"`
	Background   []AppID              `json:"background,omitempty"`
	Targeted     []AppID              `json:"targeted,omitempty"`
	Direct       []DirectSnapshot     `json:"direct,omitempty"`
	InAcceptList bool                 `json:"in_accept_list"`
	Filtering    bool                 `json:"filtering"`
}

// State is a point-in-time copy of the manager state.
type State struct {
	Peers          []PeerSnapshot `json:"peers"`
	FilterEnabled  bool           `json:"filter_enabled"`
	FilteringPeers int            `json:"filtering_peers"`
	DirectConnects int            `json:"direct_connects"`
}

// Peer returns the snapshot of the peer, if it is tracked.
func (s State) Peer(address bluetooth.MacAddress) (PeerSnapshot, bool) {
	for _, p := range s.Peers {
		if p.Address == address {
			return p, true
		}
	}

	return PeerSnapshot{}, false
}

// Snapshot returns a copy of the manager state, with peers in address order.
func (m *Manager) Snapshot() State {
	state := State{
		Peers:          make([]PeerSnapshot, 0, len(m.peers)),
		FilterEnabled:  m.filteringPeers > 0,
		FilteringPeers: m.filteringPeers,
		DirectConnects: m.directConnects,
	}

	for _, p := range m.sortedPeers() {
		peer := PeerSnapshot{
			Address:      p.address,
			Background:   p.background.sorted(),
			Targeted:     p.targeted.sorted(),
			InAcceptList: p.inAcceptList,
			Filtering:    p.filtering,
		}

		for _, app := range p.directApps() {
			peer.Direct = append(peer.Direct, DirectSnapshot{
				App:      app,
				Deadline: p.direct[app].deadline,
			})
		}

		state.Peers = append(state.Peers, peer)
	}

	return state
}

// Dump writes a human readable description of the manager state to w.
func (m *Manager) Dump(w io.Writer) error {
	state := m.Snapshot()
	now := m.clock.Now()

	fmt.Fprintf(w, "LE Connection Manager:\n")
	fmt.Fprintf(w, "  Tracked peers:   %d\n", len(state.Peers))
	fmt.Fprintf(w, "  Filter enabled:  %t (%d filtering)\n", state.FilterEnabled, state.FilteringPeers)
	fmt.Fprintf(w, "  Direct connects: %d\n", state.DirectConnects)

	if len(state.Peers) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  ADDRESS\tACCEPT LIST\tFILTERING\tBACKGROUND\tTARGETED\tDIRECT")

	for _, p := range state.Peers {
		direct := make([]string, 0, len(p.Direct))
		for _, d := range p.Direct {
			direct = append(direct, fmt.Sprintf("%s(%s)", d.App, d.Deadline.Sub(now).Round(time.Second)))
		}

		fmt.Fprintf(tw, "  %s\t%t\t%t\t%s\t%s\t%s\n",
			p.Address, p.InAcceptList, p.Filtering,
			JoinApps(p.Background), JoinApps(p.Targeted), orNone(strings.Join(direct, ",")),
		)
	}

	return tw.Flush()
}

// JoinApps formats a list of application IDs.
func JoinApps(apps []AppID) string {
	if len(apps) == 0 {
		return "-"
	}

	s := make([]string, 0, len(apps))
	for _, app := range apps {
		s = append(s, app.String())
	}

	return strings.Join(s, ",")
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
