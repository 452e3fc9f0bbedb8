// internal/core/domain/inventory.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BloodGroup represents one of the eight ABO/Rh blood groups
type BloodGroup string

// Blood group constants
const (
	GroupAPositive  BloodGroup = "A+"
	GroupANegative  BloodGroup = "A-"
	GroupBPositive  BloodGroup = "B+"
	GroupBNegative  BloodGroup = "B-"
	GroupABPositive BloodGroup = "AB+"
	GroupABNegative BloodGroup = "AB-"
	GroupOPositive  BloodGroup = "O+"
	GroupONegative  BloodGroup = "O-"
)

// AllBloodGroups lists every valid blood group in display order
var AllBloodGroups = []BloodGroup{
	GroupAPositive, GroupANegative,
	GroupBPositive, GroupBNegative,
	GroupABPositive, GroupABNegative,
	GroupOPositive, GroupONegative,
}

// Valid reports whether the blood group is one of the known eight
func (g BloodGroup) Valid() bool {
	switch g {
	case GroupAPositive, GroupANegative,
		GroupBPositive, GroupBNegative,
		GroupABPositive, GroupABNegative,
		GroupOPositive, GroupONegative:
		return true
	}
	return false
}

// InventoryStatus represents the lifecycle status of an inventory unit
type InventoryStatus string

// Inventory status constants
const (
	InventoryAvailable InventoryStatus = "available"
	InventoryReserved  InventoryStatus = "reserved"
	InventoryExpired   InventoryStatus = "expired"
)

// InventoryUnit represents a batch of blood units held by a bank
type InventoryUnit struct {
	ID          uuid.UUID       `json:"id"`
	BloodBankID uuid.UUID       `json:"blood_bank_id"`
	BloodGroup  BloodGroup      `json:"blood_group"`
	Quantity    int             `json:"quantity"`
	ExpiryDate  time.Time       `json:"expiry_date"`
	Status      InventoryStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate performs domain validation on the inventory unit
func (u *InventoryUnit) Validate() error {
	if u.BloodBankID == uuid.Nil {
		return fmt.Errorf("blood_bank_id is required")
	}
	if !u.BloodGroup.Valid() {
		return fmt.Errorf("blood_group %q is not a valid blood group", u.BloodGroup)
	}
	if u.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if u.ExpiryDate.IsZero() {
		return fmt.Errorf("expiry_date is required")
	}
	if u.Status == "" {
		u.Status = InventoryAvailable
	}
	return nil
}

// Usable reports whether the unit can satisfy a request as of the given day.
// A unit expiring today still counts.
func (u *InventoryUnit) Usable(today time.Time) bool {
	if u.Status != InventoryAvailable || u.Quantity <= 0 {
		return false
	}
	day := today.Truncate(24 * time.Hour)
	return !u.ExpiryDate.Before(day)
}

// PrepareForStorage prepares the unit for database storage
func (u *InventoryUnit) PrepareForStorage() {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Status == "" {
		u.Status = InventoryAvailable
	}
}

// BloodBank represents an active blood bank account
type BloodBank struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone,omitempty"`
	Location string    `json:"location,omitempty"`
	Active   bool      `json:"active"`
}

// MatchesName reports whether the bank name contains the query,
// case-insensitively. An empty query matches every bank.
func (b *BloodBank) MatchesName(query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Name), strings.ToLower(query))
}

// BankBloodType is one availability line inside an aggregated result
type BankBloodType struct {
	UnitID     uuid.UUID  `json:"unit_id"`
	BloodGroup BloodGroup `json:"blood_group"`
	Quantity   int        `json:"quantity"`
	ExpiryDate time.Time  `json:"expiry_date"`
}

// AggregatedBankResult is the search projection for a single bank.
// It is derived at query time and never persisted.
type AggregatedBankResult struct {
	BankID     uuid.UUID       `json:"bank_id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone,omitempty"`
	Location   string          `json:"location,omitempty"`
	BloodTypes []BankBloodType `json:"blood_types"`
	TotalUnits int             `json:"total_units"`
}
