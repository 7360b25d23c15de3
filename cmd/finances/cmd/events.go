package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"finances/internal/amqp"
)

func newEventsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print ledger events from RabbitMQ as they arrive",
		Long: `Consume the ledger events queue and print each event as one JSON line.
Runs until interrupted. Requires AMQP_URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ok := rt.app.Events.(*amqp.Client)
			if !ok {
				return errors.New("events are disabled: set AMQP_URL to a reachable broker")
			}
			out := cmd.OutOrStdout()
			err := client.ConsumeEvents(cmd.Context(), func(event *amqp.LedgerEvent) error {
				body, err := event.ToJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(body))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
