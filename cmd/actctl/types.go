package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Harshitk-cp/actgraph/internal/registry"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Inspect the platform's object and fact types",
}

var typesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List object and fact types",
	Args:  cobra.NoArgs,
	RunE:  runTypesList,
}

var typesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the type definitions as a YAML snapshot",
	Long: `Write the type definitions as a YAML snapshot. The snapshot can be
passed back with --types to validate facts offline.`,
	Args: cobra.NoArgs,
	RunE: runTypesExport,
}

func init() {
	rootCmd.AddCommand(typesCmd)
	typesCmd.AddCommand(typesListCmd, typesExportCmd)
	typesExportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runTypesList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	reg := a.client.Registry()
	objectTypes, err := reg.ListObjectTypes(cmd.Context())
	if err != nil {
		return err
	}
	factTypes, err := reg.ListFactTypes(cmd.Context())
	if err != nil {
		return err
	}

	for _, t := range objectTypes {
		fmt.Fprintf(a.out, "object\t%s\t%s\n", t.Name, t.ValidatorParameter)
	}
	for _, t := range factTypes {
		fmt.Fprintf(a.out, "fact\t%s", t.Name)
		for _, b := range t.RelevantObjectBindings {
			fmt.Fprintf(a.out, "\t%s", b)
		}
		for _, b := range t.RelevantFactBindings {
			fmt.Fprintf(a.out, "\tmeta:%s", b.Name)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

func runTypesExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var w io.Writer = a.out
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return registry.Export(cmd.Context(), a.client.Registry(), w)
}
