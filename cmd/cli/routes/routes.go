package routes

import (
	"github.com/crucial707/itam/cmd/cli/client"
	"github.com/crucial707/itam/cmd/cli/output"
	"github.com/spf13/cobra"
)

// Command prints the gateway's route table from GET /api.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show the gateway route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(false)
			if err != nil {
				return err
			}
			var info struct {
				Message   string `json:"message"`
				Version   string `json:"version"`
				Endpoints []struct {
					Path        string `json:"path"`
					Target      string `json:"target"`
					Description string `json:"description"`
				} `json:"endpoints"`
			}
			if err := c.Do(cmd.Context(), "GET", "", nil, &info); err != nil {
				return err
			}
			rows := make([][]interface{}, 0, len(info.Endpoints))
			for _, e := range info.Endpoints {
				rows = append(rows, []interface{}{e.Path, e.Target, e.Description})
			}
			return output.Render(cmd, info, []string{"PREFIX", "TARGET", "DESCRIPTION"}, rows)
		},
	}
}
