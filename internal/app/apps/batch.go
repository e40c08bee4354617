package apps

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/cyradotpink/influencer/internal"
	"github.com/cyradotpink/influencer/internal/pkg/message"
	"github.com/cyradotpink/influencer/internal/pkg/validate"
)

// BatchAppCfg configures a BatchApp.
type BatchAppCfg interface {
	ApplyBatchApp(*BatchApp) error
}

// BatchApp sends a request batch and prints the correlated batch response.
type BatchApp struct {
	Host          string `validate:"required"`
	Port          uint16 `validate:"required"`
	Password      string
	Compact       bool
	HaltOnFailure *bool
	ExecutionType *int

	out *os.File
}

// NewBatchApp creates a new BatchApp.
func NewBatchApp(cfgs ...BatchAppCfg) (*BatchApp, error) {
	app := &BatchApp{out: os.Stdout}
	for _, cfg := range cfgs {
		if err := cfg.ApplyBatchApp(app); err != nil {
			return nil, errors.Wrap(err, "apply BatchApp cfg failed")
		}
	}
	if app.Host == "" {
		app.Host = internal.Host
	}
	if app.Port == 0 {
		app.Port = internal.Port
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate BatchApp failed")
	}
	return app, nil
}

// Run sends the batch described by the JSON array in args[0] and prints
// the response.
func (app *BatchApp) Run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("batch requests argument required")
	}
	var requests []message.BatchRequest
	if err := json.Unmarshal([]byte(args[0]), &requests); err != nil {
		return errors.Wrap(err, "parse batch requests failed")
	}

	noEvents := uint32(0)
	conn, sess, cursor, err := connect(ctx, app.Host, app.Port, app.Password, &noEvents)
	if err != nil {
		return errors.Wrap(err, "connect failed")
	}
	defer conn.Close()

	id, err := sess.SendBatch(requests, app.HaltOnFailure, app.ExecutionType)
	if err != nil {
		return errors.Wrap(err, "send batch failed")
	}
	if _, err := sess.Flush(); err != nil {
		return errors.Wrap(err, "flush batch failed")
	}
	response, err := sess.NextBatchResponse(cursor, id)
	if err != nil {
		return errors.Wrap(err, "await batch response failed")
	}
	sess.Ack(cursor)
	return printJSON(app.out, app.Compact, response)
}
