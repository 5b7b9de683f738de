package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vango-dev/refx/internal/preview"
	"github.com/vango-dev/refx/pkg/template"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	bindStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")).Padding(0, 1)
	inertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Padding(0, 1)
)

func checkCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Compile a template and report its binding sites",
		Long: `Compile a template against probe values and print one row per
interpolation: its action, binding kind, name and marker.

FILE may be a local path or s3://bucket/key.

Examples:
  refx check page.html
  refx check s3://site/pages/home.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			tpl, err := openTemplate(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			s, err := newSession(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			inst, err := preview.Bind(s.runtime, tpl, nil)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), sitesTable(inst.Result().Sites))
			st := s.runtime.Stats()
			success(cmd, "%d sites, %d bindings on %d elements", len(inst.Result().Sites), st.Hydration.Bindings, st.Hydration.Elements)
			if st.Hydration.Misses > 0 {
				warn(cmd, "%d markers had no pending bindings", st.Hydration.Misses)
			}
			return nil
		},
	}
}

// sitesTable renders the per-value compile report.
func sitesTable(sites []template.Site) string {
	rows := make([][]string, 0, len(sites))
	for _, s := range sites {
		kind, name := "", s.Name
		if s.Action == template.ActionBind || s.Inert {
			kind = s.Kind.String()
		}
		if s.Inert {
			name += " (inert)"
		}
		rows = append(rows, []string{strconv.Itoa(s.Index), s.Action.String(), kind, name, s.Marker.String()})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("#", "ACTION", "KIND", "NAME", "MARKER").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && rows[row][1] == template.ActionBind.String():
				return bindStyle
			case col == 1:
				return inertStyle
			}
			return cellStyle
		}).
		String()
}
