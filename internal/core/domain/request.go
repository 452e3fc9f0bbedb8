// internal/core/domain/request.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestStatus represents the lifecycle state of a blood request
type RequestStatus string

// Request status constants
const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestDenied    RequestStatus = "denied"
	RequestFulfilled RequestStatus = "fulfilled"
)

// CanTransitionTo reports whether the state machine permits moving from
// the current status to the target. Denied and fulfilled are terminal.
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	switch s {
	case RequestPending:
		return target == RequestApproved || target == RequestDenied
	case RequestApproved:
		return target == RequestFulfilled || target == RequestDenied
	}
	return false
}

// Terminal reports whether no further transitions are possible
func (s RequestStatus) Terminal() bool {
	return s == RequestDenied || s == RequestFulfilled
}

// Urgency represents the advisory priority of a request. It never
// affects ordering or allocation, only display and notification text.
type Urgency string

// Urgency constants
const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Valid reports whether the urgency is a known level
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// BloodRequest represents a recipient's request for units from a bank
type BloodRequest struct {
	ID            uuid.UUID     `json:"id"`
	RequesterID   uuid.UUID     `json:"requester_id"`
	BloodGroup    BloodGroup    `json:"blood_group"`
	Quantity      int           `json:"quantity"`
	Urgency       Urgency       `json:"urgency"`
	Status        RequestStatus `json:"status"`
	AssignedBank  uuid.UUID     `json:"assigned_bank"`
	PatientName   string        `json:"patient_name"`
	ContactNumber string        `json:"contact_number"`
	HospitalName  string        `json:"hospital_name"`
	Reason        string        `json:"reason"`
	RequiredBy    time.Time     `json:"required_by"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Validate performs domain validation on the request
func (r *BloodRequest) Validate() error {
	if r.RequesterID == uuid.Nil {
		return &ValidationError{Field: "requester_id", Reason: "is required"}
	}
	if r.AssignedBank == uuid.Nil {
		return &ValidationError{Field: "assigned_bank", Reason: "is required"}
	}
	if !r.BloodGroup.Valid() {
		return &ValidationError{Field: "blood_group", Reason: fmt.Sprintf("%q is not a valid blood group", r.BloodGroup)}
	}
	if r.Quantity < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if r.PatientName == "" {
		return &ValidationError{Field: "patient_name", Reason: "is required"}
	}
	if r.ContactNumber == "" {
		return &ValidationError{Field: "contact_number", Reason: "is required"}
	}
	if r.HospitalName == "" {
		return &ValidationError{Field: "hospital_name", Reason: "is required"}
	}
	if r.Reason == "" {
		return &ValidationError{Field: "reason", Reason: "is required"}
	}
	if r.RequiredBy.IsZero() {
		return &ValidationError{Field: "required_by", Reason: "is required"}
	}
	if r.Urgency == "" {
		r.Urgency = UrgencyMedium
	} else if !r.Urgency.Valid() {
		return &ValidationError{Field: "urgency", Reason: fmt.Sprintf("%q is not a valid urgency", r.Urgency)}
	}
	return nil
}

// PrepareForStorage prepares the request for insertion
func (r *BloodRequest) PrepareForStorage() {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = RequestPending
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}
