package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/darkhz/bleconnmgr/connmgr"
	"github.com/darkhz/bleconnmgr/errorkinds"
	"github.com/darkhz/bleconnmgr/session"
)

// Runner plays scenarios against a session.
type Runner struct {
	sess   *session.Session
	out    io.Writer
	logger *zap.Logger

	// OnStep is called after each step with its result.
	OnStep func(index int, step Step, err error)
}

// NewRunner returns a runner that writes dumps to out.
func NewRunner(sess *session.Session, out io.Writer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}

	return &Runner{
		sess:   sess,
		out:    out,
		logger: logger.Named("scenario"),
	}
}

// Run runs every step of the scenario in order. A step whose outcome does
// not match its expectation does not stop the scenario; all mismatches are
// returned together. Run stops early only if the context is cancelled or
// the session stops.
func (r *Runner) Run(ctx context.Context, sc *Scenario) error {
	var errs error

	r.logger.Info("running scenario", zap.String("name", sc.Name), zap.Int("steps", len(sc.Steps)))

	for i, step := range sc.Steps {
		err := r.step(ctx, step)
		if r.OnStep != nil {
			r.OnStep(i, step, err)
		}

		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}

		if errors.Is(err, errorkinds.ErrLoopStopped) {
			return multierr.Append(errs, err)
		}

		switch {
		case err != nil && !step.Fail:
			errs = multierr.Append(errs, stepError(ctx, err, i, step, "Step failed"))

		case err == nil && step.Fail:
			errs = multierr.Append(errs, stepError(ctx, errorkinds.ErrUnexpected, i, step, "Step succeeded but was expected to fail"))

		default:
			r.logger.Debug("step", zap.Int("index", i), zap.Stringer("step", step), zap.Error(err))
		}
	}

	if errs != nil {
		return errorkinds.GenericError{Errors: errs}
	}

	return nil
}

func (r *Runner) step(ctx context.Context, step Step) error {
	switch step.Op {
	case OpWait:
		return r.sess.Wait(ctx, step.Duration)

	case OpAdvertise:
		if !r.sess.Controller().InjectAdvertisement(step.Address, step.Data) {
			r.logger.Debug("advertisement filtered", zap.Stringer("address", step.Address))
			return nil
		}

		// The observation and any connection it triggers are posted
		// as separate tasks.
		for range 2 {
			if err := r.sess.Do(ctx, func(*connmgr.Manager) {}); err != nil {
				return err
			}
		}

		return nil
	}

	var err error

	doErr := r.sess.Do(ctx, func(m *connmgr.Manager) {
		switch step.Op {
		case OpBackground:
			err = m.AddBackground(step.App, step.Address)

		case OpTargeted:
			err = m.AddTargetedAnnouncement(step.App, step.Address)

		case OpRemoveBackground:
			err = m.RemoveInterest(step.App, step.Address, connmgr.InterestBackground)

		case OpRemoveTargeted:
			err = m.RemoveInterest(step.App, step.Address, connmgr.InterestTargetedAnnouncement)

		case OpRemoveAll:
			err = m.RemoveBackground(step.App, step.Address)

		case OpDirect:
			err = m.DirectConnect(step.App, step.Address)

		case OpRemoveDirect:
			err = m.RemoveDirectConnect(step.App, step.Address)

		case OpDeregister:
			m.AppDeregistered(step.App)

		case OpConnected:
			m.ConnectionComplete(step.Address)

		case OpReset:
			m.Reset(step.AfterControllerReset)

		case OpDump:
			err = m.Dump(r.out)

		default:
			err = fmt.Errorf("%w: %q", errorkinds.ErrUnknownStep, step.Op)
		}
	})
	if doErr != nil {
		return doErr
	}

	return err
}

func stepError(ctx context.Context, err error, index int, step Step, msg string) error {
	return fault.Wrap(err,
		fctx.With(ctx, "step", strconv.Itoa(index), "op", string(step.Op)),
		fmsg.With(fmt.Sprintf("%s: #%d %s", msg, index, step)),
	)
}
