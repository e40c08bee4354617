// Package main is the influencer application entrypoint.
package main

import (
	"context"
	"fmt"

	"github.com/cyradotpink/influencer/internal"
	"github.com/cyradotpink/influencer/internal/app/apps"
	"github.com/cyradotpink/influencer/internal/app/cfg"
	"github.com/cyradotpink/influencer/internal/pkg/log"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLI command definitions.
var (
	logger logrus.FieldLogger = logrus.StandardLogger()

	rootCmd = &cobra.Command{
		Use:   "influencer",
		Short: "A remote-control protocol client.",
		RunE: func(*cobra.Command, []string) error {
			return nil
		},
	}

	requestCmd = &cobra.Command{
		Use:   "request TYPE [DATA]",
		Short: "Sends a request and waits for the response.",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCmd,
	}

	batchCmd = &cobra.Command{
		Use:   "batch DATA",
		Short: "Sends a batch of requests and waits for the response.",
		Args:  cobra.ExactArgs(1),
		RunE:  runCmd,
	}

	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Listens for events.",
		Args:  cobra.NoArgs,
		RunE:  runCmd,
	}
)

func newApp(_ context.Context, cmd *cobra.Command) (apps.App, error) {
	compact, err := cmd.Flags().GetBool("compact")
	if err != nil {
		return nil, errors.Wrap(err, "read compact flag failed")
	}
	switch cmd.Name() {
	case "request":
		app, err := apps.NewRequestApp(
			cfg.ConnFromEnv(),
			cfg.NewCompactCfg(compact),
		)
		if err != nil {
			return nil, errors.Wrap(err, "new request app failed")
		}
		return app, nil
	case "batch":
		var haltOnFailure *bool
		if cmd.Flags().Changed("halt-on-failure") {
			halt, err := cmd.Flags().GetBool("halt-on-failure")
			if err != nil {
				return nil, errors.Wrap(err, "read halt-on-failure flag failed")
			}
			haltOnFailure = &halt
		}
		var executionType *int
		if cmd.Flags().Changed("execution-type") {
			et, err := cmd.Flags().GetInt("execution-type")
			if err != nil {
				return nil, errors.Wrap(err, "read execution-type flag failed")
			}
			executionType = &et
		}
		app, err := apps.NewBatchApp(
			cfg.ConnFromEnv(),
			cfg.NewCompactCfg(compact),
			cfg.NewBatchOptionsCfg(haltOnFailure, executionType),
		)
		if err != nil {
			return nil, errors.Wrap(err, "new batch app failed")
		}
		return app, nil
	case "events":
		var mask *uint32
		if cmd.Flags().Changed("event-subs") {
			subs, err := cmd.Flags().GetUint32("event-subs")
			if err != nil {
				return nil, errors.Wrap(err, "read event-subs flag failed")
			}
			mask = &subs
		}
		app, err := apps.NewEventsApp(
			cfg.ConnFromEnv(),
			cfg.NewCompactCfg(compact),
			cfg.NewEventSubsCfg(mask),
		)
		if err != nil {
			return nil, errors.Wrap(err, "new events app failed")
		}
		return app, nil
	default:
		return nil, fmt.Errorf("unknown command: %s", cmd.Name())
	}
}

func runCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := chainedCheck(
		ctx,
		envCheck,
	); err != nil {
		return errors.Wrap(err, "chained check failed")
	}
	app, err := newApp(ctx, cmd)
	if err != nil {
		return errors.Wrapf(err, "new %s app failed", cmd.Name())
	}
	return errors.Wrap(app.Run(ctx, args), "run app failed")
}

func envCheck(ctx context.Context) error {
	err := internal.ValidateEnv()
	if err != nil {
		return errors.Wrap(err, "validate env failed")
	}
	log.SetLogger(internal.LogLevel)
	return nil
}

func chainedCheck(ctx context.Context, checks ...func(context.Context) error) error {
	for _, check := range checks {
		err := check(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	err := internal.RegisterCommandFlags(rootCmd, []*internal.Flag{
		&internal.HostFlag,
		&internal.PortFlag,
		&internal.PasswordFlag,
		&internal.LogLevelFlag,
	})
	if err != nil {
		logger.Fatalln(err)
	}

	for _, cmd := range []*cobra.Command{requestCmd, batchCmd, eventsCmd} {
		cmd.Flags().BoolP("compact", "c", false, "compact JSON output")
	}
	batchCmd.Flags().Bool("halt-on-failure", false, "stop processing requests after the first failure")
	batchCmd.Flags().Int("execution-type", 0, "batch execution type")
	eventsCmd.Flags().Uint32("event-subs", 0, "event types bitmask")

	rootCmd.AddCommand(
		requestCmd,
		batchCmd,
		eventsCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(errors.Wrap(err, "execute root command failed"))
	}
}
