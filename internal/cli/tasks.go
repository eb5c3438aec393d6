package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"daily-app/internal/page"
	"daily-app/internal/tasklist"
)

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show today's open tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rows := p.tasks.Rows()
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("Nothing left for today."))
				return nil
			}
			for _, row := range rows {
				id, _ := page.Attr(row, tasklist.TaskIDAttr)
				fmt.Fprintf(out, "%s\t%s\n", id, page.Text(row))
			}
			return nil
		},
	}
}

func newAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			doc, err := p.session.Document()
			if err != nil {
				return err
			}
			title := strings.Join(args, " ")
			page.SetValue(p.tasks.Input(), title)
			doc.Dispatch(ctx, doc.ElementByID(tasklist.DefaultFormID), "submit")

			res, ok := p.presenter.Last()
			if !ok {
				return errors.New("nothing to add: title is blank")
			}
			if err := p.presenter.Err(); err != nil {
				return err
			}
			if res.Err != nil {
				app.logger.WithError(res.Err).Warn("task saved but the list could not be refreshed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Task added: %s\n", strings.TrimSpace(title))
			return nil
		},
	}
}

func newDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <task-id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			doc, err := p.session.Document()
			if err != nil {
				return err
			}
			id := args[0]
			checkbox, row := findRow(p.tasks.Rows(), id)
			if checkbox == nil {
				return fmt.Errorf("task %s is not on today's list", id)
			}
			page.SetChecked(checkbox, true)
			doc.Dispatch(ctx, checkbox, "change")

			if err := p.presenter.Err(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Task completed: %s\n", page.Text(row))
			return nil
		},
	}
}

func findRow(rows []*html.Node, id string) (checkbox, row *html.Node) {
	for _, r := range rows {
		if v, _ := page.Attr(r, tasklist.TaskIDAttr); v == id {
			return page.First(r, page.ByClass(tasklist.CheckboxClass)), r
		}
	}
	return nil, nil
}
