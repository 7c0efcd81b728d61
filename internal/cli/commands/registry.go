package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gpbraun/mdfluids"
	"github.com/gpbraun/mdfluids/internal/cli/ui"
	"github.com/gpbraun/mdfluids/pkg/api"
)

// builtinRegistries returns the registries a default session starts with.
func builtinRegistries() (*api.HandlerRegistry, *api.PhaseRegistry, error) {
	handlers := api.NewHandlerRegistry(api.NewDefaultPropertyRegistry())
	if err := mdfluids.RegisterBuiltinHandlers(handlers); err != nil {
		return nil, nil, err
	}
	return handlers, api.NewDefaultPhaseRegistry(), nil
}

// resolution names the first strategy that would compute meta.
func resolution(handlers *api.HandlerRegistry, meta api.PropertyMetadata) string {
	if _, ok := handlers.Lookup(meta.Key); ok {
		return string(api.StrategyHandler)
	}
	if meta.HasPrimary() {
		return string(api.StrategyPrimary)
	}
	return string(api.StrategyReference)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newPropsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "props",
		Short: "List registered properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			handlers, _, err := builtinRegistries()
			if err != nil {
				return err
			}
			props := handlers.Properties()

			table := ui.NewTable(cmd.OutOrStdout(),
				[]string{"KEY", "NAME", "SYMBOL", "PRIMARY", "REFERENCE", "RESOLVED BY"},
				&ui.TableOptions{NoColor: a.noColor})
			for _, key := range props.Keys() {
				meta, err := props.Get(key)
				if err != nil {
					return err
				}
				primary := "-"
				if meta.HasPrimary() {
					primary = meta.PrimaryIndex.String()
				}
				table.AddRow(meta.Key, meta.Name, orDash(meta.Symbol), primary,
					orDash(meta.ReferenceLabel), resolution(handlers, meta))
			}
			table.Render()
			return nil
		},
	}
}

func newPhasesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "phases",
		Short: "List registered phases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, phases, err := builtinRegistries()
			if err != nil {
				return err
			}

			table := ui.NewTable(cmd.OutOrStdout(),
				[]string{"KEY", "NAME", "PRIMARY INDEX", "REFERENCE"},
				&ui.TableOptions{NoColor: a.noColor, Aligns: []ui.Align{ui.AlignLeft, ui.AlignLeft, ui.AlignRight}})
			for _, key := range phases.Keys() {
				meta, err := phases.Get(key)
				if err != nil {
					return err
				}
				index := "-"
				if meta.PrimaryIndex != api.PhaseUnknown {
					index = strconv.Itoa(int(meta.PrimaryIndex))
				}
				table.AddRow(meta.Key, meta.Name, index, orDash(meta.ReferenceLabel))
			}
			table.Render()
			return nil
		},
	}
}

func newParseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse TOKEN...",
		Short: "Parse property strings",
		Long:  "Parse BASE(index)?*? property strings against the built-in registry and show how each resolves.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handlers, _, err := builtinRegistries()
			if err != nil {
				return err
			}

			reqs, err := api.ParsePropertyStrings(handlers.Properties(), args...)
			if err != nil {
				return err
			}

			table := ui.NewTable(cmd.OutOrStdout(),
				[]string{"TOKEN", "PROPERTY", "INDEX", "NORMALIZED", "RESOLVED BY"},
				&ui.TableOptions{NoColor: a.noColor})
			for i, req := range reqs {
				index := "-"
				if req.HasIndex() {
					index = strconv.Itoa(req.Index)
				}
				table.AddRow(args[i], req.Property.Key, index,
					strconv.FormatBool(req.Normalized), resolution(handlers, req.Property))
			}
			table.Render()
			return nil
		},
	}
}
