package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/linkarq/pkg/arq"
	"github.com/bft-labs/linkarq/pkg/crc"
)

func newCRCCommand() *cobra.Command {
	var (
		generator string
		bits      bool
		file      string
	)
	cmd := &cobra.Command{
		Use:   "crc [DATA]",
		Short: "Compute a CRC remainder",
		Long: strings.TrimSpace(`
Compute the CRC of DATA (or --file) with the given generator.

With --bits, DATA is a string of 0s and 1s divided by the generator
polynomial bit by bit; the remainder and the transmitted codeword are
printed. Presets: ` + strings.Join(crc.Presets(), ", ") + "."),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := crc.Parse(generator)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if bits {
				if len(args) != 1 {
					return fmt.Errorf("--bits needs a bit string argument")
				}
				rem, err := gen.RemainderBits(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "generator %s\nremainder %s\ncodeword  %s%s\n", gen, rem, args[0], rem)
				return nil
			}

			var data []byte
			switch {
			case file != "":
				if data, err = os.ReadFile(file); err != nil {
					return err
				}
			case len(args) == 1:
				data = []byte(args[0])
			default:
				return fmt.Errorf("nothing to checksum: pass DATA or --file")
			}
			digits := (gen.Degree() + 3) / 4
			fmt.Fprintf(out, "generator %s\nchecksum  0x%0*x\n", gen, digits, gen.Checksum(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&generator, "generator", "crc32", "CRC generator: preset name, 0x hex or binary pattern")
	cmd.Flags().BoolVar(&bits, "bits", false, "treat DATA as a bit string")
	cmd.Flags().StringVar(&file, "file", "", "read data from file")
	return cmd
}

func newEfficiencyCommand() *cobra.Command {
	var (
		window       int
		transmission time.Duration
		propagation  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "efficiency",
		Short: "Link utilization of a sliding window",
		Long: strings.TrimSpace(`
Print the utilization of an error-free link for a window size, given the
frame transmission time and the one-way propagation delay, and the
smallest window that keeps the link busy.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if transmission <= 0 {
				return fmt.Errorf("transmission time must be positive")
			}
			if propagation < 0 {
				return fmt.Errorf("propagation delay must not be negative")
			}
			if window < 1 {
				return fmt.Errorf("window must be at least 1")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "utilization %.4f\n", arq.Efficiency(window, transmission, propagation))
			fmt.Fprintf(out, "min window  %d\n", arq.MinWindow(transmission, propagation))
			return nil
		},
	}
	cmd.Flags().IntVar(&window, "window", 1, "window size in frames")
	cmd.Flags().DurationVar(&transmission, "transmission", time.Millisecond, "frame transmission time")
	cmd.Flags().DurationVar(&propagation, "propagation", 10*time.Millisecond, "one-way propagation delay")
	return cmd
}
