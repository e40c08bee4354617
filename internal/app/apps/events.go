package apps

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/cyradotpink/influencer/internal"
	"github.com/cyradotpink/influencer/internal/pkg/stream"
	"github.com/cyradotpink/influencer/internal/pkg/validate"
)

// DefaultEventRate bounds how many events per second the app handles, so a
// misbehaving server cannot flood the output.
const DefaultEventRate = 50

// DefaultEventBurst is the limiter's burst allowance.
const DefaultEventBurst = 100

// pollInterval bounds each read so context cancellation is honored.
const pollInterval = 500 * time.Millisecond

// EventsAppCfg configures an EventsApp.
type EventsAppCfg interface {
	ApplyEventsApp(*EventsApp) error
}

// EventsApp subscribes to the event stream and prints each event as JSON.
type EventsApp struct {
	Host               string `validate:"required"`
	Port               uint16 `validate:"required"`
	Password           string
	Compact            bool
	EventSubscriptions *uint32

	out *os.File
}

// NewEventsApp creates a new EventsApp.
func NewEventsApp(cfgs ...EventsAppCfg) (*EventsApp, error) {
	app := &EventsApp{out: os.Stdout}
	for _, cfg := range cfgs {
		if err := cfg.ApplyEventsApp(app); err != nil {
			return nil, errors.Wrap(err, "apply EventsApp cfg failed")
		}
	}
	if app.Host == "" {
		app.Host = internal.Host
	}
	if app.Port == 0 {
		app.Port = internal.Port
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate EventsApp failed")
	}
	return app, nil
}

// Run streams events until the context ends or the transport fails
// fatally.
func (app *EventsApp) Run(ctx context.Context, args []string) error {
	conn, sess, cursor, err := connect(ctx,
		app.Host, app.Port, app.Password, app.EventSubscriptions,
		stream.WithPollInterval(pollInterval),
	)
	if err != nil {
		return errors.Wrap(err, "connect failed")
	}
	defer conn.Close()

	limiter := rate.NewLimiter(rate.Limit(DefaultEventRate), DefaultEventBurst)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		event, err := sess.NextEvent(cursor)
		if err != nil {
			if stream.IsWouldBlock(err) {
				select {
				case <-ctx.Done():
					return nil
				default:
					continue
				}
			}
			// A fatal error terminates the stream rather than looping.
			return errors.Wrap(err, "read event failed")
		}
		sess.Ack(cursor)
		if err := printJSON(app.out, app.Compact, event); err != nil {
			return errors.Wrap(err, "print event failed")
		}
	}
}
