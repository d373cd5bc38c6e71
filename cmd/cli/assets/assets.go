package assets

import (
	"fmt"
	"net/url"

	"github.com/crucial707/itam/cmd/cli/client"
	"github.com/crucial707/itam/cmd/cli/output"
	"github.com/crucial707/itam/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// Assets command
// ==========================
func Command() *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage assets",
	}

	assetsCmd.AddCommand(
		listAssetsCmd(),
		createAssetCmd(),
		deleteAssetCmd(),
	)
	return assetsCmd
}

var assetHeaders = []string{"ASSET ID", "NAME", "TYPE", "SERIAL", "STATUS", "LOCATION"}

func assetRows(list []models.Asset) [][]interface{} {
	rows := make([][]interface{}, 0, len(list))
	for _, a := range list {
		rows = append(rows, []interface{}{a.AssetID, a.Name, a.Type, a.SerialNumber, a.Status, a.Location})
	}
	return rows
}

// ==========================
// LIST
// ==========================
func listAssetsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(true)
			if err != nil {
				return err
			}
			path := "/assets"
			if status != "" {
				path = "/assets/status/" + url.PathEscape(status)
			}

			var list []models.Asset
			if err := c.Do(cmd.Context(), "GET", path, nil, &list); err != nil {
				return err
			}
			return output.Render(cmd, list, assetHeaders, assetRows(list))
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only assets in this status (available, assigned, maintenance, retired)")
	return cmd
}

// ==========================
// CREATE
// ==========================
func createAssetCmd() *cobra.Command {
	var in struct {
		AssetID      string `json:"assetId"`
		Name         string `json:"assetName"`
		Type         string `json:"assetType"`
		Model        string `json:"model,omitempty"`
		SerialNumber string `json:"serialNumber"`
		PurchaseDate string `json:"purchaseDate,omitempty"`
		Warranty     string `json:"warranty,omitempty"`
		Location     string `json:"location,omitempty"`
	}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(true)
			if err != nil {
				return err
			}
			var created models.Asset
			if err := c.Do(cmd.Context(), "POST", "/assets", in, &created); err != nil {
				return err
			}
			return output.Render(cmd, created, assetHeaders, assetRows([]models.Asset{created}))
		},
	}

	cmd.Flags().StringVar(&in.AssetID, "asset-id", "", "asset tag (required)")
	cmd.Flags().StringVar(&in.Name, "name", "", "asset name (required)")
	cmd.Flags().StringVar(&in.Type, "type", "", "asset type, e.g. laptop (required)")
	cmd.Flags().StringVar(&in.Model, "model", "", "model")
	cmd.Flags().StringVar(&in.SerialNumber, "serial", "", "serial number (required)")
	cmd.Flags().StringVar(&in.PurchaseDate, "purchase-date", "", "purchase date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.Warranty, "warranty", "", "warranty terms")
	cmd.Flags().StringVar(&in.Location, "location", "", "location")
	for _, f := range []string{"asset-id", "name", "type", "serial"} {
		cmd.MarkFlagRequired(f)
	}
	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteAssetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [assetId]",
		Short: "Delete an asset with no active assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(true)
			if err != nil {
				return err
			}
			if err := c.Do(cmd.Context(), "DELETE", "/assets/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %s deleted.\n", args[0])
			return nil
		},
	}
}
