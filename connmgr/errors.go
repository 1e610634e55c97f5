package connmgr

import (
	"context"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/errorkinds"
)

// KindAdmissionRejected tags errors caused by the controller refusing an
// accept list entry.
const KindAdmissionRejected ftag.Kind = "ADMISSION_REJECTED"

func admissionError(at string, app AppID, address bluetooth.MacAddress) error {
	return fault.Wrap(errorkinds.ErrAdmissionRejected,
		fctx.With(context.Background(),
			"error_at", at,
			"address", address.String(),
			"app", app.String(),
		),
		ftag.With(KindAdmissionRejected),
		fmsg.With("Cannot add device to the accept list"),
	)
}

func notRegisteredError(at string, app AppID, address bluetooth.MacAddress) error {
	return fault.Wrap(errorkinds.ErrNotRegistered,
		fctx.With(context.Background(),
			"error_at", at,
			"address", address.String(),
			"app", app.String(),
		),
		ftag.With(ftag.NotFound),
		fmsg.With("No such connection request"),
	)
}

func alreadyConnectingError(app AppID, address bluetooth.MacAddress) error {
	return fault.Wrap(errorkinds.ErrAlreadyConnecting,
		fctx.With(context.Background(),
			"error_at", "direct-connect",
			"address", address.String(),
			"app", app.String(),
		),
		ftag.With(ftag.AlreadyExists),
		fmsg.With("A direct connection is already in progress"),
	)
}

func fixedChannelError(address bluetooth.MacAddress) error {
	return fault.Wrap(errorkinds.ErrFixedChannel,
		fctx.With(context.Background(),
			"error_at", "fixed-channel-connect",
			"address", address.String(),
		),
		ftag.With(ftag.Internal),
		fmsg.With("Cannot connect over the fixed channel"),
	)
}
