package main

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/profiles"
)

func newProfilesCmd(cfg *common.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the loaded vendor profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := profiles.Load(cfg.Profiles.Dir, slog.Default())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPREFIXES\tSOURCE\tDESCRIPTION")
			for _, name := range reg.Names() {
				p, _ := reg.Get(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, strings.Join(p.Match.Prefixes, ","), p.Source, p.Description)
			}
			return w.Flush()
		},
	}
}
