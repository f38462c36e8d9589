package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search facts and objects",
}

var searchFactsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Search facts",
	Args:  cobra.NoArgs,
	RunE:  runSearchFacts,
}

var searchObjectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "Search objects",
	Args:  cobra.NoArgs,
	RunE:  runSearchObjects,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchFactsCmd, searchObjectsCmd)

	for _, c := range []*cobra.Command{searchFactsCmd, searchObjectsCmd} {
		c.Flags().String("keywords", "", "keyword search")
		c.Flags().StringSlice("object-type", nil, "object type names")
		c.Flags().StringSlice("object-value", nil, "object values")
		c.Flags().StringSlice("fact-type", nil, "fact type names")
		c.Flags().StringSlice("fact-value", nil, "fact values")
		c.Flags().StringSlice("origin", nil, "origin names or ids")
		c.Flags().Int("limit", domain.DefaultSearchLimit, "maximum number of results")
	}
	searchFactsCmd.Flags().Bool("include-retracted", false, "include retracted facts")
}

type searchFlags struct {
	keywords     string
	objectTypes  []string
	objectValues []string
	factTypes    []string
	factValues   []string
	origins      []string
	limit        int
}

func readSearchFlags(cmd *cobra.Command) searchFlags {
	f := cmd.Flags()
	var s searchFlags
	s.keywords, _ = f.GetString("keywords")
	s.objectTypes, _ = f.GetStringSlice("object-type")
	s.objectValues, _ = f.GetStringSlice("object-value")
	s.factTypes, _ = f.GetStringSlice("fact-type")
	s.factValues, _ = f.GetStringSlice("fact-value")
	s.origins, _ = f.GetStringSlice("origin")
	s.limit, _ = f.GetInt("limit")
	return s
}

// printPage writes each item followed by a summary when the page is partial.
func printPage[T any](a *app, rs *domain.ResultSet[T]) error {
	for _, item := range rs.All() {
		if err := a.print(item); err != nil {
			return err
		}
	}
	if !rs.Complete() {
		a.logger.Info("partial result", zap.Int("size", rs.Size), zap.Int("count", rs.Count))
	}
	return nil
}

func runSearchFacts(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireLive(a, "search"); err != nil {
		return err
	}

	s := readSearchFlags(cmd)
	retracted, _ := cmd.Flags().GetBool("include-retracted")
	rs, err := a.client.FactSearch(cmd.Context(), domain.FactQuery{
		Keywords:         s.keywords,
		ObjectTypes:      s.objectTypes,
		ObjectValues:     s.objectValues,
		FactTypes:        s.factTypes,
		FactValues:       s.factValues,
		Origins:          s.origins,
		IncludeRetracted: retracted,
		Limit:            s.limit,
	})
	if err != nil {
		return err
	}
	return printPage(a, rs)
}

func runSearchObjects(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireLive(a, "search"); err != nil {
		return err
	}

	s := readSearchFlags(cmd)
	rs, err := a.client.ObjectSearch(cmd.Context(), domain.ObjectQuery{
		Keywords:     s.keywords,
		ObjectTypes:  s.objectTypes,
		ObjectValues: s.objectValues,
		FactTypes:    s.factTypes,
		FactValues:   s.factValues,
		Origins:      s.origins,
		Limit:        s.limit,
	})
	if err != nil {
		return err
	}
	return printPage(a, rs)
}
