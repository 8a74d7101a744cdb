package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wildcam/internal/logging"
	"wildcam/internal/trigger"
)

type triggerFlags struct {
	temp       float64
	humidity   float64
	battery    int64
	lightState int64
}

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	var flags triggerFlags

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Publish a test trigger to the configured topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			payload := buildTriggerPayload(cmd, flags)
			if err := trigger.Publish(cmd.Context(), cfg, payload, logging.NewNop()); err != nil {
				return err
			}
			body, _ := trigger.Encode(payload)
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s to %s on %s\n", body, cfg.MQTT.TriggerTopic, cfg.BrokerURL())
			return nil
		},
	}

	cmd.Flags().Float64Var(&flags.temp, "temp", 0, "Temperature reading to include")
	cmd.Flags().Float64Var(&flags.humidity, "humidity", 0, "Humidity reading to include")
	cmd.Flags().Int64Var(&flags.battery, "battery", 0, "Battery level to include")
	cmd.Flags().Int64Var(&flags.lightState, "light", 0, "Light state to include (0 or 1)")
	return cmd
}

// buildTriggerPayload includes only the telemetry flags that were set.
func buildTriggerPayload(cmd *cobra.Command, flags triggerFlags) trigger.Payload {
	var payload trigger.Payload
	if cmd.Flags().Changed("temp") {
		v := flags.temp
		payload.Temp = &v
	}
	if cmd.Flags().Changed("humidity") {
		v := flags.humidity
		payload.Humidity = &v
	}
	if cmd.Flags().Changed("battery") {
		v := flags.battery
		payload.Battery = &v
	}
	if cmd.Flags().Changed("light") {
		v := flags.lightState
		payload.LightState = &v
	}
	return payload
}
