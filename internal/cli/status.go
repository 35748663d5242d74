package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/warden/internal/constants"
)

// statusView is the status command's JSON shape: per-area rollups over the
// runtime state.
type statusView struct {
	Areas []areaStatus `json:"areas"`
}

// areaStatus is one area's rollup.
type areaStatus struct {
	AreaID  string         `json:"area_id"`
	Title   string         `json:"title"`
	Done    int            `json:"done"`
	Total   int            `json:"total"`
	Packets []packetStatus `json:"packets"`
}

// packetStatus is one packet's status row.
type packetStatus struct {
	PacketID   string                 `json:"packet_id"`
	WbsRef     string                 `json:"wbs_ref"`
	Title      string                 `json:"title"`
	Status     constants.PacketStatus `json:"status"`
	AssignedTo string                 `json:"assigned_to,omitempty"`
}

// AddStatusCommand registers the status command.
func AddStatusCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Dump full project status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, false)
			if err != nil {
				return err
			}

			doc, err := g.engine.Snapshot(ctx)
			if err != nil {
				return err
			}

			view := statusView{Areas: []areaStatus{}}
			for _, area := range g.def.Areas() {
				as := areaStatus{AreaID: area.ID, Title: area.Title, Packets: []packetStatus{}}
				for _, p := range g.def.PacketsInArea(area.ID) {
					row := packetStatus{
						PacketID: p.ID,
						WbsRef:   p.WbsRef,
						Title:    p.Title,
						Status:   constants.StatusPending,
					}
					if st, ok := doc.Packets[p.ID]; ok {
						row.Status = st.Status
						row.AssignedTo = st.AssignedTo
					}
					if row.Status == constants.StatusDone {
						as.Done++
					}
					as.Total++
					as.Packets = append(as.Packets, row)
				}
				view.Areas = append(view.Areas, as)
			}

			if flags.Output == OutputJSON {
				return printJSON(cmd, view)
			}
			for _, as := range view.Areas {
				cmd.Printf("%s (%s) %d/%d done\n", as.AreaID, as.Title, as.Done, as.Total)
				for _, row := range as.Packets {
					cmd.Printf("  %-12s %-8s %-12s %-16s %s\n",
						row.PacketID, row.WbsRef, row.Status, row.AssignedTo, row.Title)
				}
			}
			return nil
		},
	}
	parent.AddCommand(cmd)
}
