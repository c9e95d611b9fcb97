package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bft-labs/linkarq/internal/cliconfig"
	"github.com/bft-labs/linkarq/pkg/sink"
)

// previewBytes is how much of each payload the listing shows.
const previewBytes = 16

func newStoreCommand() *cobra.Command {
	var (
		index int64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "store PATH",
		Short: "Inspect a delivery database written by --store",
		Long: strings.TrimSpace(`
List the payloads a run delivered into a bbolt database, in delivery
order. With --index, print that single payload in hex.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cliconfig.FileExists(args[0]) {
				return fmt.Errorf("store %s not found", args[0])
			}
			store, err := sink.OpenBolt(args[0])
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()

			if index >= 0 {
				p, err := store.Get(uint64(index))
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("no payload at index %d", index)
				}
				fmt.Fprintf(out, "%x\n", p)
				return nil
			}

			n, err := store.Count()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d payloads\n", n)

			listed := 0
			return store.ForEach(func(i uint64, p []byte) error {
				if limit > 0 && listed == limit {
					return sink.ErrStopIteration
				}
				listed++
				preview := p
				if len(preview) > previewBytes {
					preview = preview[:previewBytes]
				}
				fmt.Fprintf(out, "%6d  %5d bytes  %x\n", i, len(p), preview)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&index, "index", -1, "print the payload at this delivery index")
	cmd.Flags().IntVar(&limit, "limit", 20, "list at most this many payloads (0 = all)")
	return cmd
}
