package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"denoisefx/internal/provider"
	"denoisefx/internal/registry"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Probe denoise backends and show which are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.buildStack(true)
			if err != nil {
				return err
			}
			defer s.shutdown.Shutdown()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderProviders(s.registry.Statuses()))

			ideal := s.registry.FindIdealProvider()
			if ideal == provider.Automatic {
				fmt.Fprintln(out, "Automatic: no usable provider, frames pass through")
				return nil
			}
			fmt.Fprintf(out, "Automatic: %s\n", ideal)
			return nil
		},
	}
}

func renderProviders(statuses []registry.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		detail := ""
		if st.Err != nil {
			detail = st.Err.Error()
		}
		rows = append(rows, []string{
			strconv.Itoa(int(st.ID)),
			st.ID.String(),
			strconv.Itoa(st.Priority),
			yesNo(st.Available),
			detail,
		})
	}
	return renderTable(
		[]string{"ID", "Provider", "Priority", "Available", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	)
}
