// Package apps implements the runnable applications behind the CLI
// commands.
package apps

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cyradotpink/influencer/internal/pkg/session"
	"github.com/cyradotpink/influencer/internal/pkg/squeue"
	"github.com/cyradotpink/influencer/internal/pkg/stream"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// App is a runnable application.
type App interface {
	Run(ctx context.Context, args []string) error
}

// connect dials the server, performs the handshake and returns a ready
// session together with the cursor used for it, which stays usable for
// ordinary traffic.
func connect(ctx context.Context, host string, port uint16, password string, eventSubscriptions *uint32, cfgs ...stream.Cfg) (*stream.Conn, *session.Session, squeue.Cursor, error) {
	conn, err := stream.Dial(ctx, host, port, cfgs...)
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "dial failed")
	}
	var sessCfgs []session.Cfg
	if eventSubscriptions != nil {
		sessCfgs = append(sessCfgs, session.WithEventSubscriptions(*eventSubscriptions))
	}
	sess, err := session.NewSession(conn, sessCfgs...)
	if err != nil {
		_ = conn.Close()
		return nil, nil, 0, errors.Wrap(err, "create session failed")
	}
	cursor := sess.Subscribe()
	for {
		err := sess.Authenticate(cursor, password)
		if err == nil {
			break
		}
		if !stream.IsWouldBlock(err) {
			_ = conn.Close()
			return nil, nil, 0, errors.Wrap(err, "authenticate failed")
		}
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return nil, nil, 0, ctx.Err()
		default:
		}
	}
	logger.WithFields(logrus.Fields{
		"uuid":       conn.ID().String(),
		"rpcVersion": sess.RPCVersion(),
	}).Info("session ready")
	return conn, sess, cursor, nil
}

// printJSON writes v to out as one JSON document, indented unless compact.
func printJSON(out io.Writer, compact bool, v any) error {
	var (
		data []byte
		err  error
	)
	if compact {
		data, err = json.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "marshal output failed")
	}
	data = append(data, '\n')
	if _, err := out.Write(data); err != nil {
		return errors.Wrap(err, "write output failed")
	}
	return nil
}
