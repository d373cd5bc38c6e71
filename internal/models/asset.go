package models

import "time"

// Asset lifecycle states. Only the assignment workflow moves an asset between
// available and assigned; maintenance and retired are set by administrators.
const (
	AssetAvailable   = "available"
	AssetAssigned    = "assigned"
	AssetMaintenance = "maintenance"
	AssetRetired     = "retired"
)

// AssetStatuses lists every valid asset status.
var AssetStatuses = []string{AssetAvailable, AssetAssigned, AssetMaintenance, AssetRetired}

type Asset struct {
	ID           int64     `json:"id"`
	AssetID      string    `json:"assetId"`
	Name         string    `json:"assetName"`
	Type         string    `json:"assetType"`
	Model        string    `json:"model"`
	SerialNumber string    `json:"serialNumber"`
	PurchaseDate time.Time `json:"purchaseDate"`
	Warranty     string    `json:"warranty"`
	Location     string    `json:"location"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ValidAssetStatus reports whether s is one of AssetStatuses.
func ValidAssetStatus(s string) bool {
	for _, v := range AssetStatuses {
		if v == s {
			return true
		}
	}
	return false
}
