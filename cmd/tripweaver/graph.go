package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tripweaver/tripweaver/internal/graph"
	"github.com/tripweaver/tripweaver/internal/profile"
	"github.com/tripweaver/tripweaver/store"
	"github.com/tripweaver/tripweaver/store/db/sqlite"
)

var graphCmd = &cobra.Command{
	Use:   "graph [output.dot]",
	Short: "Export the place connection graph as Graphviz DOT",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Needs only the catalog, not the API client.
		p, err := profile.GetProfile(instance)
		if err != nil {
			return err
		}
		driver, err := sqlite.New(p.DSN())
		if err != nil {
			return err
		}
		st := store.New(driver)
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		places, err := st.ListPlaces(ctx, &store.FindPlace{})
		if err != nil {
			return err
		}

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return graph.WriteDOT(out, places)
	},
}
