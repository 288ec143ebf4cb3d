package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newExamplesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Browse the example requirement sets offered by the service",
	}
	cmd.AddCommand(newExamplesListCmd(a))
	cmd.AddCommand(newExamplesShowCmd(a))
	return cmd
}

func newExamplesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List example requirement sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.requestTimeout())
			defer cancel()

			remote, err := a.remote()
			if err != nil {
				return err
			}
			list, err := remote.ListExamples(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, dimStyle.Render("(no examples)"))
				return nil
			}
			width := 2
			for _, ex := range list {
				width = max(width, len(ex.ID))
			}
			fmt.Fprintf(out, "%s  %s\n", headerStyle.Render(fmt.Sprintf("%-*s", width, "ID")), headerStyle.Render("TITLE"))
			for _, ex := range list {
				fmt.Fprintf(out, "%-*s  %s\n", width, ex.ID, ex.Title)
			}
			return nil
		},
	}
}

func newExamplesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the requirements text of an example",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.requestTimeout())
			defer cancel()

			remote, err := a.remote()
			if err != nil {
				return err
			}
			text, err := remote.LoadExample(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
