// Package controller describes the controller-wide primitives the
// connection manager drives. Every method is invoked from the main loop.
package controller

import "github.com/darkhz/bleconnmgr/bluetooth"

// ScanResultFunc receives raw advertising data observed for a peer while
// the announcement filter is enabled. It may be called from any goroutine.
type ScanResultFunc func(address bluetooth.MacAddress, data []byte)

// AcceptList describes the controller's accept list.
type AcceptList interface {
	// AddToAcceptList adds a peer to the accept list. It reports false
	// when the controller rejects the request, for example when the list is full.
	AddToAcceptList(address bluetooth.MacAddress) bool

	// RemoveFromAcceptList removes a peer from the accept list.
	RemoveFromAcceptList(address bluetooth.MacAddress)

	// ClearAcceptList removes every peer from the accept list.
	ClearAcceptList()
}

// AnnouncementFilter describes the controller's targeted announcement
// advertisement filter.
type AnnouncementFilter interface {
	// SetAnnouncementFilterEnabled toggles the filter. While enabled,
	// matching scan results are delivered to observe.
	SetAnnouncementFilterEnabled(enabled bool, observe ScanResultFunc)
}

// ConnectionSpeed describes the global connection scan parameters.
type ConnectionSpeed interface {
	// SetFastConnectionMode switches to aggressive connection parameters,
	// and reports whether the mode actually changed.
	SetFastConnectionMode() bool

	// SetSlowConnectionMode switches back to the default parameters.
	SetSlowConnectionMode()
}

// FixedChannel describes the low-level fixed channel connection path.
type FixedChannel interface {
	// ConnectFixedChannel requests a connection over the LE fixed channel.
	ConnectFixedChannel(address bluetooth.MacAddress) bool
}

// Controller groups the primitives required by the connection manager.
type Controller interface {
	AcceptList
	AnnouncementFilter
	ConnectionSpeed
}
