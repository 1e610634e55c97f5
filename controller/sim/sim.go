// Package sim provides a simulated LE controller, used to drive the
// connection manager without hardware.
package sim

import (
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/controller"
)

// DefaultAcceptListSize is the accept list capacity of a simulated controller.
const DefaultAcceptListSize = 8

// Command names recorded in the controller history.
const (
	CmdAcceptListAdd    = "accept_list_add"
	CmdAcceptListReject = "accept_list_reject"
	CmdAcceptListRemove = "accept_list_remove"
	CmdAcceptListClear  = "accept_list_clear"
	CmdFilterEnable     = "filter_enable"
	CmdFilterDisable    = "filter_disable"
	CmdFastMode         = "fast_mode"
	CmdSlowMode         = "slow_mode"
	CmdFixedChannel     = "fixed_channel_connect"
)

// Command is a controller command issued by the host.
type Command struct {
	Name    string
	Address bluetooth.MacAddress
}

// Controller is a simulated controller with a bounded accept list.
// It is safe for concurrent use.
type Controller struct {
	capacity int

	acceptList *xsync.MapOf[bluetooth.MacAddress, struct{}]
	admission  sync.Mutex

	filterEnabled atomic.Bool
	fastMode      atomic.Bool
	rejectFixed   atomic.Bool
	fixedConnects atomic.Uint32

	observer atomic.Value

	historyLock sync.Mutex
	history     []Command

	logger *zap.Logger
}

var (
	_ controller.Controller   = (*Controller)(nil)
	_ controller.FixedChannel = (*Controller)(nil)
)

// New returns a simulated controller whose accept list holds at most capacity peers.
func New(capacity int, logger *zap.Logger) *Controller {
	if capacity <= 0 {
		capacity = DefaultAcceptListSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		capacity:   capacity,
		acceptList: xsync.NewMapOf[bluetooth.MacAddress, struct{}](),
		logger:     logger.Named("controller"),
	}
}

// AddToAcceptList adds a peer to the accept list, and fails if the list is full.
// Adding a peer that is already present succeeds.
func (c *Controller) AddToAcceptList(address bluetooth.MacAddress) bool {
	c.admission.Lock()
	defer c.admission.Unlock()

	if _, ok := c.acceptList.Load(address); ok {
		c.record(CmdAcceptListAdd, address)
		return true
	}

	if c.acceptList.Size() >= c.capacity {
		c.record(CmdAcceptListReject, address)
		c.logger.Debug("accept list full", zap.Stringer("address", address), zap.Int("capacity", c.capacity))

		return false
	}

	c.acceptList.Store(address, struct{}{})
	c.record(CmdAcceptListAdd, address)

	return true
}

// RemoveFromAcceptList removes a peer from the accept list.
func (c *Controller) RemoveFromAcceptList(address bluetooth.MacAddress) {
	c.admission.Lock()
	defer c.admission.Unlock()

	c.acceptList.Delete(address)
	c.record(CmdAcceptListRemove, address)
}

// ClearAcceptList removes every peer from the accept list.
func (c *Controller) ClearAcceptList() {
	c.admission.Lock()
	defer c.admission.Unlock()

	c.acceptList.Clear()
	c.record(CmdAcceptListClear, bluetooth.MacAddress{})
}

// SetAnnouncementFilterEnabled toggles the announcement filter.
func (c *Controller) SetAnnouncementFilterEnabled(enabled bool, observe controller.ScanResultFunc) {
	if enabled {
		c.observer.Store(observe)
		c.filterEnabled.Store(true)
		c.record(CmdFilterEnable, bluetooth.MacAddress{})

		return
	}

	c.filterEnabled.Store(false)
	c.record(CmdFilterDisable, bluetooth.MacAddress{})
}

// SetFastConnectionMode switches to fast connection parameters.
func (c *Controller) SetFastConnectionMode() bool {
	if !c.fastMode.CompareAndSwap(false, true) {
		return false
	}

	c.record(CmdFastMode, bluetooth.MacAddress{})

	return true
}

// SetSlowConnectionMode switches back to the default connection parameters.
func (c *Controller) SetSlowConnectionMode() {
	if c.fastMode.CompareAndSwap(true, false) {
		c.record(CmdSlowMode, bluetooth.MacAddress{})
	}
}

// ConnectFixedChannel requests a fixed channel connection.
func (c *Controller) ConnectFixedChannel(address bluetooth.MacAddress) bool {
	if c.rejectFixed.Load() {
		return false
	}

	c.fixedConnects.Inc()
	c.record(CmdFixedChannel, address)

	return true
}

// RejectFixedChannel makes subsequent fixed channel connections fail.
func (c *Controller) RejectFixedChannel(reject bool) {
	c.rejectFixed.Store(reject)
}

// InjectAdvertisement simulates a scan result. It is delivered to the
// registered observer only while the announcement filter is enabled.
func (c *Controller) InjectAdvertisement(address bluetooth.MacAddress, data []byte) bool {
	if !c.filterEnabled.Load() {
		return false
	}

	observe, ok := c.observer.Load().(controller.ScanResultFunc)
	if !ok || observe == nil {
		return false
	}

	observe(address, slices.Clone(data))

	return true
}

// InAcceptList reports whether the peer is on the accept list.
func (c *Controller) InAcceptList(address bluetooth.MacAddress) bool {
	_, ok := c.acceptList.Load(address)
	return ok
}

// AcceptList returns the peers on the accept list, in address order.
func (c *Controller) AcceptList() []bluetooth.MacAddress {
	addresses := make([]bluetooth.MacAddress, 0, c.acceptList.Size())

	c.acceptList.Range(func(address bluetooth.MacAddress, _ struct{}) bool {
		addresses = append(addresses, address)
		return true
	})

	slices.SortFunc(addresses, bluetooth.MacAddress.Compare)

	return addresses
}

// Capacity returns the accept list capacity.
func (c *Controller) Capacity() int {
	return c.capacity
}

// FilterEnabled reports whether the announcement filter is enabled.
func (c *Controller) FilterEnabled() bool {
	return c.filterEnabled.Load()
}

// FastMode reports whether fast connection parameters are active.
func (c *Controller) FastMode() bool {
	return c.fastMode.Load()
}

// FixedChannelConnects returns the number of fixed channel connections requested.
func (c *Controller) FixedChannelConnects() uint32 {
	return c.fixedConnects.Load()
}

// History returns a copy of the issued commands.
func (c *Controller) History() []Command {
	c.historyLock.Lock()
	defer c.historyLock.Unlock()

	return slices.Clone(c.history)
}

// ResetHistory clears the command history.
func (c *Controller) ResetHistory() {
	c.historyLock.Lock()
	defer c.historyLock.Unlock()

	c.history = nil
}

func (c *Controller) record(name string, address bluetooth.MacAddress) {
	c.historyLock.Lock()
	c.history = append(c.history, Command{name, address})
	c.historyLock.Unlock()

	c.logger.Debug(name, zap.Stringer("address", address))
}
