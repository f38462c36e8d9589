package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/extract"
)

var uriCmd = &cobra.Command{
	Use:   "uri URI...",
	Short: "Add the component facts of URIs",
	Long: `Add the facts describing each URI: the address it points at, its
port, scheme, path, basename and query.

A URI without scheme or host is reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runURI,
}

func init() {
	rootCmd.AddCommand(uriCmd)
}

func runURI(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	for _, uri := range args {
		facts, err := extract.URIFacts(ctx, a.factory(), uri)
		if err != nil {
			a.logger.Warn("skipping uri", zap.String("uri", uri), zap.Error(err))
			continue
		}
		for _, f := range facts {
			if err := a.submit(ctx, f); err != nil {
				return err
			}
		}
	}
	return nil
}
