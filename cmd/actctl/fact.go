package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Harshitk-cp/actgraph/internal/domain"
	"github.com/Harshitk-cp/actgraph/internal/wire"
)

var factCmd = &cobra.Command{
	Use:   "fact",
	Short: "Add, fetch and retract facts",
}

var factAddCmd = &cobra.Command{
	Use:   "add TYPE [VALUE]",
	Short: "Add a fact",
	Long: `Add a fact of TYPE between the objects given with --source and
--destination, each written as type/value.

  actctl fact add seenIn --source ipv4/10.0.0.1 --destination threatActor/APT1`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFactAdd,
}

var factGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Fetch a fact by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runFactGet,
}

var factRetractCmd = &cobra.Command{
	Use:   "retract ID",
	Short: "Retract a fact",
	Args:  cobra.ExactArgs(1),
	RunE:  runFactRetract,
}

var factMetaCmd = &cobra.Command{
	Use:   "meta ID [TYPE VALUE]",
	Short: "List the meta facts of a fact, or add one",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 && len(args) != 3 {
			return fmt.Errorf("accepts 1 or 3 arg(s), received %d", len(args))
		}
		return nil
	},
	RunE: runFactMeta,
}

func init() {
	rootCmd.AddCommand(factCmd)
	factCmd.AddCommand(factAddCmd, factGetCmd, factRetractCmd, factMetaCmd)

	factAddCmd.Flags().String("source", "", "source object as type/value")
	factAddCmd.Flags().String("destination", "", "destination object as type/value")
	factAddCmd.Flags().Bool("bidirectional", false, "bind source and destination in both directions")
	factAddCmd.Flags().Float64("confidence", -1, "confidence between 0 and 1 (default: the fact type's)")
	factAddCmd.Flags().String("origin", "", "origin name or id (default: the session origin)")

	factRetractCmd.Flags().String("comment", "", "reason for the retraction")
}

// parseObject splits "type/value". Object values may contain "/", type names
// never do.
func parseObject(s string) (string, string, error) {
	typ, value, ok := strings.Cut(s, "/")
	if !ok || typ == "" || value == "" {
		return "", "", fmt.Errorf("object %q must be written as type/value", s)
	}
	return typ, value, nil
}

func parseFactID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Field: "fact.id", Value: s, Message: "fact id must be a UUID"}
	}
	return id, nil
}

func buildFact(ctx context.Context, a *app, cmd *cobra.Command, args []string) (*domain.Fact, error) {
	value := ""
	if len(args) == 2 {
		value = args[1]
	}
	f, err := a.factory().Fact(ctx, args[0], value)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	source, _ := flags.GetString("source")
	destination, _ := flags.GetString("destination")
	bidirectional, _ := flags.GetBool("bidirectional")

	var srcType, srcValue, dstType, dstValue string
	if source != "" {
		if srcType, srcValue, err = parseObject(source); err != nil {
			return nil, err
		}
	}
	if destination != "" {
		if dstType, dstValue, err = parseObject(destination); err != nil {
			return nil, err
		}
	}
	switch {
	case bidirectional:
		f.Bidirectional(srcType, srcValue, dstType, dstValue)
	default:
		if srcType != "" {
			f.Source(srcType, srcValue)
		}
		if dstType != "" {
			f.Destination(dstType, dstValue)
		}
	}

	if c, _ := flags.GetFloat64("confidence"); c >= 0 {
		f.WithConfidence(c)
	}
	if origin, _ := flags.GetString("origin"); origin != "" {
		if id, err := uuid.Parse(origin); err == nil {
			f.WithOrigin(&domain.Origin{ID: id})
		} else {
			f.WithOriginName(origin)
		}
	}
	return f, nil
}

// submit adds f, or prints its submit payload on a dry run.
func (a *app) submit(ctx context.Context, f *domain.Fact) error {
	if !a.dryRun {
		if err := a.client.Facts.Add(ctx, f); err != nil {
			return err
		}
		return a.print(f)
	}

	defaults := a.client.Facts.Defaults()
	if f.Origin == nil && defaults.Origin != nil {
		f.Origin = defaults.Origin.Clone()
	}
	if f.Organization == nil && defaults.Organization != nil {
		org := *defaults.Organization
		f.Organization = &org
	}
	if err := f.Validate(); err != nil {
		return err
	}
	if f.IsMeta() {
		return a.print(wire.EncodeMetaFact(f))
	}
	return a.print(wire.EncodeFact(f))
}

func runFactAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := buildFact(cmd.Context(), a, cmd, args)
	if err != nil {
		return err
	}
	return a.submit(cmd.Context(), f)
}

func runFactGet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireLive(a, "fact get"); err != nil {
		return err
	}

	id, err := parseFactID(args[0])
	if err != nil {
		return err
	}
	f := &domain.Fact{ID: id}
	if err := a.client.Facts.Get(cmd.Context(), f); err != nil {
		return err
	}
	return a.print(f)
}

func runFactRetract(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := requireLive(a, "fact retract"); err != nil {
		return err
	}

	id, err := parseFactID(args[0])
	if err != nil {
		return err
	}
	comment, _ := cmd.Flags().GetString("comment")

	f := &domain.Fact{ID: id}
	retraction, err := a.client.Facts.Retract(cmd.Context(), f, domain.RetractOptions{Comment: comment})
	if err != nil {
		return err
	}
	return a.print(retraction)
}

func runFactMeta(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	id, err := parseFactID(args[0])
	if err != nil {
		return err
	}
	parent := &domain.Fact{ID: id}

	if len(args) == 3 {
		if !a.dryRun {
			if err := a.client.Facts.Get(ctx, parent); err != nil {
				return err
			}
		}
		draft, err := a.factory().Fact(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		meta, err := parent.Meta(draft.Type, draft.Value)
		if err != nil {
			return err
		}
		meta.WithAccessMode(draft.AccessMode)
		return a.submit(ctx, meta)
	}

	if err := requireLive(a, "fact meta"); err != nil {
		return err
	}
	metas, err := a.client.Facts.GetMeta(ctx, parent, domain.MetaQuery{})
	if err != nil {
		return err
	}
	for _, m := range metas {
		if err := a.print(m); err != nil {
			return err
		}
	}
	return nil
}
