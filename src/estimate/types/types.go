package types

import "github.com/shopspring/decimal"

// ItemStatus reports how much of an item's estimate could be assembled.
type ItemStatus string

const (
	StatusSucceeded       ItemStatus = "Succeeded"
	StatusPartiallyFailed ItemStatus = "PartiallyFailed"
	StatusFailed          ItemStatus = "Failed"
)

// InventoryItem is one item to be researched. Owned by the caller and
// read-only for the lifetime of a request.
type InventoryItem struct {
	ItemID           string          `json:"itemId" binding:"required,max=64"`
	ItemName         string          `json:"itemName" binding:"required,max=255"`
	Category         string          `json:"category" binding:"required,max=64"`
	CurrentCondition string          `json:"currentCondition" binding:"required,oneof=Poor Fair Good Excellent"`
	Location         string          `json:"location" binding:"max=255"`
	OriginalCost     decimal.Decimal `json:"originalCost"`
}

// UserLocation localizes search queries; shared read-only across all tool
// invocations in a request.
type UserLocation struct {
	City   string `json:"city" binding:"required,max=128"`
	Region string `json:"region" binding:"required,max=128"`
}

type EstimateRequest struct {
	InventoryItems []InventoryItem `json:"inventoryItems" binding:"required,min=1,max=100,dive"`
	UserLocation   UserLocation    `json:"userLocation" binding:"required"`
	Currency       string          `json:"currency" binding:"required,iso4217"`
}

// ItemEstimate aggregates up to three tool answers for one item. A findings
// field is present only when its tool succeeded; Errors maps failed tool
// names to reasons. Never mutated after construction.
type ItemEstimate struct {
	ItemID           string            `json:"itemId"`
	Status           ItemStatus        `json:"status"`
	LaborFindings    string            `json:"laborFindings,omitempty"`
	MaterialFindings string            `json:"materialFindings,omitempty"`
	RepairFindings   string            `json:"repairFindings,omitempty"`
	Errors           map[string]string `json:"errors,omitempty"`
}

// EstimateResponse is the full batch result. Results is ordered to match the
// input item order.
type EstimateResponse struct {
	Results           []ItemEstimate `json:"results"`
	RateLimited       bool           `json:"rateLimited"`
	RetryAfterSeconds int            `json:"retryAfterSeconds,omitempty"`
}
