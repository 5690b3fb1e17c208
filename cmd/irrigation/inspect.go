package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boristopalov/irrigation/pkg/store"
)

func newInspectCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List the policies saved in the policy store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(flags)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			policies, err := store.NewStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer policies.Close()

			records, err := policies.ListPolicies(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "no policies in %s\n", cfg.Store.Path)
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(out, "%s\n  version   %s\n  created   %s\n  episodes  %d\n  states    %d\n  reward    %.2f\n",
					rec.Name, rec.VersionID, rec.CreatedAt.Local().Format(time.DateTime), rec.Episodes, rec.States, rec.MeanReward)
				if len(rec.Params) > 0 {
					fmt.Fprintf(out, "  params    %s\n", formatParams(rec.Params))
				}
			}
			return nil
		},
	}
}

func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, params[k])
	}
	return strings.Join(parts, " ")
}
