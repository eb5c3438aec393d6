package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"daily-app/internal/client"
	"daily-app/internal/domain"
)

func newPrefCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pref",
		Short: "Read or change display preferences",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Print a stored preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := client.New(app.Server, client.Options{})
			if err != nil {
				return err
			}
			store, err := app.prefsStore(cl.Origin())
			if err != nil {
				return err
			}
			v, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if v == "" {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("(default)"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <name> <value>",
		Short: "Select a preference value on the display panel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return selectPreference(cmd, app, args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear <name>",
		Short: "Return a preference to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return selectPreference(cmd, app, args[0], "")
		},
	})
	return cmd
}

func selectPreference(cmd *cobra.Command, app *App, name, value string) error {
	if err := domain.ValidatePreference(name); err != nil {
		return err
	}
	p, err := app.open(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	th, err := p.themeController()
	if err != nil {
		return err
	}
	if err := th.Select(cmd.Context(), name, value); err != nil {
		return err
	}
	if value == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s reset to default\n", name)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s set to %s\n", name, value)
	return nil
}

func newPanelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "panel",
		Short: "Show the display panel with the current selections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			th, err := p.themeController()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range []string{domain.PrefAppearance, domain.PrefTheme} {
				fmt.Fprintln(out, headingStyle.Render(name))
				for _, opt := range th.Options(name) {
					if opt.Checked {
						fmt.Fprintln(out, checkedStyle.Render("  (•) "+opt.Label))
						continue
					}
					fmt.Fprintln(out, "  ( ) "+opt.Label)
				}
			}
			return nil
		},
	}
}
