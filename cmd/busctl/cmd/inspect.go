package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sparkette/dmabus/bus"
	"github.com/sparkette/dmabus/modules"
	"github.com/sparkette/dmabus/rack"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the bus topology a rack layout resolves to.",
	Long: "`inspect --layout rack.yaml` places the modules of the layout, " +
		"processes one frame, and prints what every module found on its bus.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		layout, err := loadLayout(cmd)
		if err != nil {
			return err
		}

		r := rack.MakeBuilder().
			WithName(layout.Name).
			WithSampleRate(layout.Freq()).
			Build()

		if err := layout.Populate(r, modules.DefaultFactory()); err != nil {
			return err
		}

		r.Step()

		return printTopology(cmd.OutOrStdout(), r)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func printTopology(out io.Writer, r *rack.Rack) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tMODULE\tHOSTS\tCLIENTS\tBUS\tCLIENT ATTACHED\tCHANNELS")

	for i, h := range r.Modules() {
		m, err := r.Resolve(h)
		if err != nil {
			return err
		}

		ind := m.Indicators()
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%d\n",
			i,
			m.Name(),
			roleTypes(m.HostRoles()),
			roleTypes(m.ClientRoles()),
			busState(ind.Status, m.ClientRoles().Len() > 0),
			ind.ClientAttached,
			ind.DisplayedChannels)
	}

	return w.Flush()
}

func roleTypes(r *bus.Roles) string {
	if r.Len() == 0 {
		return "-"
	}

	s := ""
	for i := 0; i < r.Len(); i++ {
		if i > 0 {
			s += ","
		}

		s += r.Type(i).String()
	}

	return s
}

func busState(s bus.Status, isClient bool) string {
	switch {
	case !isClient:
		return "-"
	case s.Ready:
		return "ready"
	case s.HostFound:
		return "not ready"
	default:
		return "none"
	}
}
