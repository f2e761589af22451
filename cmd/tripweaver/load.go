package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tripweaver/tripweaver/internal/loader"
)

var loadCmd = &cobra.Command{
	Use:   "load <dataset.json>",
	Short: "Replace the place catalog with a travel dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.store.Close()

		l := loader.New(rt.store, rt.vectors, rt.gemini)
		n, err := l.LoadFile(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("imported %d documents\n", n)
		return nil
	},
}
