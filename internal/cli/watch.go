package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-codereview-be/pkg/events"
	pktNats "ai-codereview-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newWatchCmd(deps Deps) *cobra.Command {
	var natsURL string
	cmd := &cobra.Command{
		Use:   "watch <run-id>",
		Short: "Follow the events of a run submitted to the REST service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if natsURL == "" {
				natsURL = loadConfig(cmd, deps).App.NatsURL
			}
			if natsURL == "" {
				return errors.New("no NATS server configured (--nats-url or NATS_URL)")
			}

			sub, err := pktNats.NewSubscriber(natsURL)
			if err != nil {
				return err
			}
			defer sub.Close()

			var failed error
			err = sub.Watch(cmd.Context(), args[0], func(ctx context.Context, event events.RunEvent) (bool, error) {
				fmt.Fprintln(cmd.OutOrStdout(), formatEvent(event))
				if event.Type == events.RunFailed {
					failed = fmt.Errorf("run %s failed", event.RunID)
				}
				return event.IsTerminal(), nil
			})
			if err != nil {
				return err
			}
			return failed
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server (default from NATS_URL)")
	return cmd
}

func formatEvent(e events.RunEvent) string {
	ts := e.OccurredAt.Local().Format(time.TimeOnly)
	label := e.Type
	switch e.Type {
	case events.RunCompleted:
		label = color.GreenString(e.Type)
	case events.RunFailed:
		label = color.RedString(e.Type)
	case events.StageCompleted:
		label = color.CyanString("%s %s", e.Type, e.Stage)
	}

	line := fmt.Sprintf("%s %s", ts, label)
	if len(e.Data) > 0 {
		line += fmt.Sprintf(" %v", e.Data)
	}
	return line
}
