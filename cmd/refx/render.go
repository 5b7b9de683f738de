package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/refx/internal/preview"
)

func renderCmd(flags *globalFlags) *cobra.Command {
	var (
		sets   []string
		output string
	)

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a template headlessly and print the hydrated markup",
		Long: `Compile a template, mount it in a headless document, run the loop
until idle and print the body's markup.

Examples:
  refx render page.html --set title=Hello --set count=3
  refx render page.html -o out.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSets(sets)
			if err != nil {
				return err
			}
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

			for name := range values {
				if !slices.Contains(tpl.Names(), name) {
					warn(cmd, "template has no source named %q", name)
				}
			}

			inst, err := preview.Bind(s.runtime, tpl, values)
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), inst.HTML())
				return nil
			}
			if err := os.WriteFile(output, []byte(inst.HTML()+"\n"), 0o644); err != nil {
				return err
			}
			success(cmd, "Wrote %s", output)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Initial source value as name=value (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the markup to a file")
	return cmd
}

// parseSets parses name=value pairs.
func parseSets(sets []string) (map[string]string, error) {
	out := make(map[string]string, len(sets))
	for _, kv := range sets {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: want name=value", kv)
		}
		out[name] = value
	}
	return out, nil
}
