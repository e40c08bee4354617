package apps

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/cyradotpink/influencer/internal"
	"github.com/cyradotpink/influencer/internal/pkg/log"
	"github.com/cyradotpink/influencer/internal/pkg/validate"
)

// RequestAppCfg configures a RequestApp.
type RequestAppCfg interface {
	ApplyRequestApp(*RequestApp) error
}

// RequestApp sends one request and prints the correlated response.
type RequestApp struct {
	Host     string `validate:"required"`
	Port     uint16 `validate:"required"`
	Password string
	Compact  bool

	out *os.File
}

// NewRequestApp creates a new RequestApp.
func NewRequestApp(cfgs ...RequestAppCfg) (*RequestApp, error) {
	app := &RequestApp{out: os.Stdout}
	for _, cfg := range cfgs {
		if err := cfg.ApplyRequestApp(app); err != nil {
			return nil, errors.Wrap(err, "apply RequestApp cfg failed")
		}
	}
	if app.Host == "" {
		app.Host = internal.Host
	}
	if app.Port == 0 {
		app.Port = internal.Port
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate RequestApp failed")
	}
	return app, nil
}

// Run sends the request named by args[0], with optional JSON data in
// args[1], and prints the response.
func (app *RequestApp) Run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("request type argument required")
	}
	requestType := args[0]
	var data json.RawMessage
	if len(args) > 1 {
		if !json.Valid([]byte(args[1])) {
			return errors.New("request data is not valid JSON")
		}
		data = json.RawMessage(args[1])
	}

	// Suppress events for the lifetime of this connection.
	noEvents := uint32(0)
	conn, sess, cursor, err := connect(ctx, app.Host, app.Port, app.Password, &noEvents)
	if err != nil {
		return errors.Wrap(err, "connect failed")
	}
	defer conn.Close()

	id, err := sess.SendRequest(requestType, data)
	if err != nil {
		return errors.Wrap(err, "send request failed")
	}
	if _, err := sess.Flush(); err != nil {
		return errors.Wrap(err, "flush request failed")
	}
	response, err := sess.NextResponse(cursor, id)
	if err != nil {
		return errors.Wrap(err, "await response failed")
	}
	sess.Ack(cursor)
	logger.WithFields(log.ResponseToFields(response)).Debug("response received")
	return printJSON(app.out, app.Compact, response)
}
