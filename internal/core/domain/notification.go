// internal/core/domain/notification.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType categorizes in-app notifications
type NotificationType string

// Notification type constants
const (
	NotificationBloodRequest      NotificationType = "blood_request"
	NotificationRequestUpdate     NotificationType = "request_update"
	NotificationDonationScheduled NotificationType = "donation_scheduled"
	NotificationSystem            NotificationType = "system"
)

// Notification represents a stored in-app notification for a user.
// Delivery to external channels (email, webhooks) happens asynchronously
// and never affects the stored row.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// PrepareForStorage prepares the notification for insertion
func (n *Notification) PrepareForStorage() {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Type == "" {
		n.Type = NotificationSystem
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
}

// NewRequestNotification builds the bank-facing notification for a newly
// submitted blood request.
func NewRequestNotification(req *BloodRequest) *Notification {
	return &Notification{
		UserID: req.AssignedBank,
		Title:  "New Blood Request",
		Message: fmt.Sprintf("New %s priority blood request: %d units of %s from %s",
			req.Urgency, req.Quantity, req.BloodGroup, req.HospitalName),
		Type: NotificationBloodRequest,
	}
}

// NewRequestUpdateNotification builds the requester-facing notification
// for a status change on their request.
func NewRequestUpdateNotification(req *BloodRequest) *Notification {
	return &Notification{
		UserID: req.RequesterID,
		Title:  "Blood Request Update",
		Message: fmt.Sprintf("Your request for %d units of %s is now %s",
			req.Quantity, req.BloodGroup, req.Status),
		Type: NotificationRequestUpdate,
	}
}

// NewDonationNotification builds the bank-facing notification for a newly
// scheduled donation.
func NewDonationNotification(d *Donation, donorName string) *Notification {
	return &Notification{
		UserID: d.BloodBankID,
		Title:  "Donation Scheduled",
		Message: fmt.Sprintf("%s scheduled a %s donation of %d units on %s",
			donorName, d.BloodGroup, d.Quantity, d.DonationDate.Format("2006-01-02")),
		Type: NotificationDonationScheduled,
	}
}
