package assignments

import (
	"fmt"
	"net/url"

	"github.com/crucial707/itam/cmd/cli/client"
	"github.com/crucial707/itam/cmd/cli/output"
	"github.com/crucial707/itam/internal/ledger"
	"github.com/crucial707/itam/internal/models"
	"github.com/spf13/cobra"
)

// Command returns the assignments command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignments",
		Short: "Assign assets to people and take them back",
	}
	cmd.AddCommand(listCmd(), createCmd(), returnCmd(), deleteCmd())
	return cmd
}

var headers = []string{"ID", "USER", "ASSET", "STATUS", "ASSIGNED", "RETURNED"}

func rows(list []models.Assignment) [][]interface{} {
	out := make([][]interface{}, 0, len(list))
	for _, a := range list {
		returned := ""
		if a.ReturnDate != nil {
			returned = a.ReturnDate.Format("2006-01-02")
		}
		out = append(out, []interface{}{a.ID, a.UserID, a.AssetID, a.Status, a.AssignmentDate.Format("2006-01-02"), returned})
	}
	return out
}

func listCmd() *cobra.Command {
	var user, asset, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/assignments"
			switch {
			case user != "":
				path += "/user/" + url.PathEscape(user)
			case asset != "":
				path += "/asset/" + url.PathEscape(asset)
			case status != "":
				path += "/status/" + url.PathEscape(status)
			}

			c, err := client.New(true)
			if err != nil {
				return err
			}
			var list []models.Assignment
			if err := c.Do(cmd.Context(), "GET", path, nil, &list); err != nil {
				return err
			}
			return output.Render(cmd, list, headers, rows(list))
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only assignments of this userId")
	cmd.Flags().StringVar(&asset, "asset", "", "only assignments of this assetId")
	cmd.Flags().StringVar(&status, "status", "", "only assignments in this status (active, returned, pending)")
	cmd.MarkFlagsMutuallyExclusive("user", "asset", "status")
	return cmd
}

func createCmd() *cobra.Command {
	var in struct {
		UserID         string `json:"userId"`
		AssetID        string `json:"assetId"`
		AssignmentDate string `json:"assignmentDate,omitempty"`
		Notes          string `json:"notes,omitempty"`
	}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Assign an available asset to a person",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(true)
			if err != nil {
				return err
			}
			var a models.Assignment
			if err := c.Do(cmd.Context(), "POST", "/assignments", in, &a); err != nil {
				return err
			}
			return output.Render(cmd, a, headers, rows([]models.Assignment{a}))
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "userId of the assignee (required)")
	cmd.Flags().StringVar(&in.AssetID, "asset", "", "assetId to assign (required)")
	cmd.Flags().StringVar(&in.AssignmentDate, "date", "", "assignment date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("asset")
	return cmd
}

func returnCmd() *cobra.Command {
	var notes, date string

	cmd := &cobra.Command{
		Use:   "return [id]",
		Short: "Mark an active assignment returned and release its asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"status": models.AssignmentReturned}
			if cmd.Flags().Changed("notes") {
				body["notes"] = notes
			}
			if date != "" {
				body["returnDate"] = date
			}

			c, err := client.New(true)
			if err != nil {
				return err
			}
			var a models.Assignment
			if err := c.Do(cmd.Context(), "PUT", "/assignments/"+url.PathEscape(args[0]), body, &a); err != nil {
				return err
			}
			return output.Render(cmd, a, headers, rows([]models.Assignment{a}))
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "replace the assignment notes")
	cmd.Flags().StringVar(&date, "date", "", "return date, YYYY-MM-DD (default now)")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an assignment; an active one releases its asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(true)
			if err != nil {
				return err
			}
			if err := c.Do(cmd.Context(), "DELETE", "/assignments/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assignment %s deleted.\n", args[0])
			return nil
		},
	}
}

// ReconcileCommand reports, and with --repair fixes, assets whose status
// disagrees with their active assignments.
func ReconcileCommand() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check asset status against active assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(true)
			if err != nil {
				return err
			}
			method := "GET"
			if repair {
				method = "POST"
			}
			var rep ledger.Report
			if err := c.Do(cmd.Context(), method, "/assignments/reconcile", nil, &rep); err != nil {
				return err
			}
			if output.WantJSON(cmd) {
				return output.PrintJSON(cmd.OutOrStdout(), rep)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Checked %d assets: %d violations, %d repaired.\n",
				rep.Assets, len(rep.Violations), rep.Repaired)
			if len(rep.Violations) == 0 {
				return nil
			}
			vrows := make([][]interface{}, 0, len(rep.Violations))
			for _, v := range rep.Violations {
				vrows = append(vrows, []interface{}{v.AssetID, v.AssetStatus, v.ActiveAssignments, v.Problem, v.Repaired})
			}
			output.RenderTable(cmd.OutOrStdout(), []string{"ASSET", "STATUS", "ACTIVE", "PROBLEM", "REPAIRED"}, vrows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "repair what can be fixed unambiguously")
	return cmd
}
