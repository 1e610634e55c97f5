// Package scenario loads scripted sequences of connection requests and
// plays them against a session.
package scenario

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/knadh/koanf/parsers/hjson"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/multierr"

	"github.com/darkhz/bleconnmgr/adv"
	"github.com/darkhz/bleconnmgr/bluetooth"
	"github.com/darkhz/bleconnmgr/connmgr"
	"github.com/darkhz/bleconnmgr/errorkinds"
)

// Op is a scenario operation.
type Op string

// The different scenario operations.
const (
	OpBackground       Op = "background"
	OpTargeted         Op = "targeted"
	OpRemoveBackground Op = "remove-background"
	OpRemoveTargeted   Op = "remove-targeted"
	OpRemoveAll        Op = "remove-all"
	OpDirect           Op = "direct"
	OpRemoveDirect     Op = "remove-direct"
	OpDeregister       Op = "deregister"
	OpConnected        Op = "connected"
	OpAdvertise        Op = "advertise"
	OpReset            Op = "reset"
	OpWait             Op = "wait"
	OpDump             Op = "dump"
)

// operations lists the fields each operation needs.
var operations = map[Op]struct {
	app, address bool
}{
	OpBackground:       {true, true},
	OpTargeted:         {true, true},
	OpRemoveBackground: {true, true},
	OpRemoveTargeted:   {true, true},
	OpRemoveAll:        {true, true},
	OpDirect:           {true, true},
	OpRemoveDirect:     {true, true},
	OpDeregister:       {true, false},
	OpConnected:        {false, true},
	OpAdvertise:        {false, true},
	OpReset:            {false, false},
	OpWait:             {false, false},
	OpDump:             {false, false},
}

// Scenario is a named sequence of steps.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is a single scenario operation.
type Step struct {
	Op      Op
	App     connmgr.AppID
	Address bluetooth.MacAddress

	// Data is the advertising data injected by an advertise step.
	Data []byte

	// Duration is the time a wait step lets pass.
	Duration time.Duration

	// AfterControllerReset marks a reset step as recovering from a controller reset.
	AfterControllerReset bool

	// Fail marks steps that are expected to return an error.
	Fail bool
}

// String returns a short description of the step.
func (s Step) String() string {
	var sb strings.Builder

	sb.WriteString(string(s.Op))

	op := operations[s.Op]
	if op.app {
		sb.WriteString(" app=")
		sb.WriteString(s.App.String())
	}
	if op.address {
		sb.WriteString(" address=")
		sb.WriteString(s.Address.String())
	}
	if s.Op == OpWait {
		sb.WriteString(" ")
		sb.WriteString(s.Duration.String())
	}

	return sb.String()
}

type document struct {
	Name  string    `koanf:"name"`
	Steps []rawStep `koanf:"steps"`
}

type rawStep struct {
	Op                   string `koanf:"op"`
	App                  int    `koanf:"app"`
	Address              string `koanf:"address"`
	Data                 string `koanf:"data"`
	Announcement         string `koanf:"announcement"`
	Duration             string `koanf:"duration"`
	AfterControllerReset bool   `koanf:"after-controller-reset"`
	Fail                 bool   `koanf:"fail"`
}

// Load loads a scenario from an hjson file.
func Load(path string) (*Scenario, error) {
	return load(file.Provider(path))
}

// Parse parses an hjson scenario.
func Parse(data []byte) (*Scenario, error) {
	return load(rawbytes.Provider(data))
}

func load(provider koanf.Provider) (*Scenario, error) {
	k := koanf.New(".")
	if err := k.Load(provider, hjson.Parser()); err != nil {
		return nil, parseError(err, -1, "Cannot read scenario")
	}

	var f document
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, parseError(err, -1, "Cannot decode scenario")
	}

	sc := &Scenario{
		Name:  f.Name,
		Steps: make([]Step, 0, len(f.Steps)),
	}

	var errs error
	for i, raw := range f.Steps {
		step, err := raw.parse()
		if err != nil {
			errs = multierr.Append(errs, parseError(err, i, "Invalid scenario step"))
			continue
		}

		sc.Steps = append(sc.Steps, step)
	}

	if errs != nil {
		return nil, errorkinds.GenericError{Errors: errs}
	}

	return sc, nil
}

func (r rawStep) parse() (Step, error) {
	step := Step{
		Op:                   Op(r.Op),
		AfterControllerReset: r.AfterControllerReset,
		Fail:                 r.Fail,
	}

	op, ok := operations[step.Op]
	if !ok {
		return step, fmt.Errorf("%w: %q", errorkinds.ErrUnknownStep, r.Op)
	}

	if op.app {
		if r.App < 0 || r.App > 0xFF {
			return step, fmt.Errorf("%w: %d", errorkinds.ErrInvalidAppID, r.App)
		}

		step.App = connmgr.AppID(r.App)
	}

	if op.address {
		address, err := bluetooth.ParseMAC(r.Address)
		if err != nil {
			return step, fmt.Errorf("%w: %q", err, r.Address)
		}

		step.Address = address
	}

	switch step.Op {
	case OpWait:
		d, err := time.ParseDuration(r.Duration)
		if err != nil {
			return step, err
		}

		step.Duration = d

	case OpAdvertise:
		data, err := advertisingData(r.Data, r.Announcement)
		if err != nil {
			return step, err
		}

		step.Data = data
	}

	return step, nil
}

// advertisingData returns the raw advertising data given as hex, or builds
// an announcement of the named type.
func advertisingData(data, announcement string) ([]byte, error) {
	if data != "" {
		return hex.DecodeString(strings.ReplaceAll(data, " ", ""))
	}

	typ, err := adv.ParseAnnouncementType(announcement)
	if err != nil {
		return nil, err
	}

	return adv.NewAnnouncement(typ, nil)
}

func parseError(err error, step int, msg string) error {
	return fault.Wrap(fmt.Errorf("%w: %w", errorkinds.ErrScenarioParse, err),
		fctx.With(context.Background(), "error_at", "scenario-parse", "step", strconv.Itoa(step)),
		ftag.With(ftag.InvalidArgument),
		fmsg.With(msg),
	)
}
