package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leandrodaf/midilooper/internal/logger"
	"github.com/leandrodaf/midilooper/internal/midi/portout"
	"github.com/leandrodaf/midilooper/internal/midi/serialport"
	"github.com/leandrodaf/midilooper/sdk/contracts"
	"github.com/leandrodaf/midilooper/sdk/looper"
)

// NewPortsCommand creates the ports command.
func NewPortsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ports",
		Short:         "List MIDI inputs and outputs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewNopLogger()
			if rootOpts.Verbose {
				log = logger.NewZapLogger()
			}
			listPorts(cmd.OutOrStdout(), log)
			return nil
		},
	}
}

func listPorts(w io.Writer, log contracts.Logger) {
	fmt.Fprintln(w, "Serial ports:")
	names, err := serialport.ListPorts()
	if err != nil {
		fmt.Fprintf(w, "  (none: %v)\n", err)
	}
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", name)
	}

	fmt.Fprintln(w, "System MIDI inputs:")
	input, err := looper.NewSystemInput(contracts.WithLogger(log))
	if err != nil {
		fmt.Fprintf(w, "  (none: %v)\n", err)
	} else {
		devices, err := input.ListDevices()
		if err != nil {
			fmt.Fprintf(w, "  (none: %v)\n", err)
		}
		for i, d := range devices {
			fmt.Fprintf(w, "  %d: %s\n", i, d)
		}
		_ = input.Stop()
	}

	fmt.Fprintln(w, "MIDI outputs:")
	outs := portout.Names()
	if len(outs) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, name := range outs {
		fmt.Fprintf(w, "  %s\n", name)
	}
}
