// internal/core/domain/donation.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DonationStatus represents the lifecycle state of a donation appointment
type DonationStatus string

// Donation status constants
const (
	DonationScheduled DonationStatus = "scheduled"
	DonationCompleted DonationStatus = "completed"
	DonationCancelled DonationStatus = "cancelled"
)

// CanTransitionTo reports whether the donation status may move to target
func (s DonationStatus) CanTransitionTo(target DonationStatus) bool {
	if s != DonationScheduled {
		return false
	}
	return target == DonationCompleted || target == DonationCancelled
}

// Donation represents a scheduled or completed donation at a bank
type Donation struct {
	ID           uuid.UUID      `json:"id"`
	DonorID      uuid.UUID      `json:"donor_id"`
	BloodBankID  uuid.UUID      `json:"blood_bank_id"`
	BloodGroup   BloodGroup     `json:"blood_group"`
	Quantity     int            `json:"quantity"`
	DonationDate time.Time      `json:"donation_date"`
	Status       DonationStatus `json:"status"`
	Notes        string         `json:"notes,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Validate performs domain validation on the donation
func (d *Donation) Validate() error {
	if d.DonorID == uuid.Nil {
		return &ValidationError{Field: "donor_id", Reason: "is required"}
	}
	if d.BloodBankID == uuid.Nil {
		return &ValidationError{Field: "blood_bank_id", Reason: "is required"}
	}
	if !d.BloodGroup.Valid() {
		return &ValidationError{Field: "blood_group", Reason: fmt.Sprintf("%q is not a valid blood group", d.BloodGroup)}
	}
	if d.Quantity < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if d.DonationDate.IsZero() {
		return &ValidationError{Field: "donation_date", Reason: "is required"}
	}
	return nil
}

// PrepareForStorage prepares the donation for insertion
func (d *Donation) PrepareForStorage() {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DonationScheduled
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
}
