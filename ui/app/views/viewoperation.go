package views

import (
	"context"
	"errors"
	"sync"
)

// viewOperation holds an operation manager instance.
// Only one operation can run at a time.
type viewOperation struct {
	cancel context.CancelFunc
	lock   sync.Mutex

	root *Views
}

// newViewOperation returns a new operations manager.
func newViewOperation(root *Views) *viewOperation {
	return &viewOperation{root: root}
}

// startOperation sets up the cancellation handler,
// and starts the operation.
func (v *viewOperation) startOperation(name string, dofunc func(ctx context.Context) error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.cancel != nil {
		v.root.status.InfoMessage("Operation still in progress", false)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel

	go func() {
		defer v.cancelOperation()

		v.root.status.InfoMessage(name, true)

		err := dofunc(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			v.root.status.InfoMessage(name+": cancelled", false)

		case err != nil:
			v.root.status.ErrorMessage(err)

		default:
			v.root.status.InfoMessage(name+": done", false)
		}
	}()
}

// cancelOperation cancels the currently running operation.
func (v *viewOperation) cancelOperation() {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.cancel == nil {
		return
	}

	v.cancel()
	v.cancel = nil
}
