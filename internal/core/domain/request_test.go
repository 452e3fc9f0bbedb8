package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akash684/bloodbank-be/internal/core/domain"
)

func TestRequestStatus_CanTransitionTo(t *testing.T) {
	statuses := []domain.RequestStatus{
		domain.RequestPending,
		domain.RequestApproved,
		domain.RequestDenied,
		domain.RequestFulfilled,
	}

	allowed := map[domain.RequestStatus]map[domain.RequestStatus]bool{
		domain.RequestPending: {
			domain.RequestApproved: true,
			domain.RequestDenied:   true,
		},
		domain.RequestApproved: {
			domain.RequestFulfilled: true,
			domain.RequestDenied:    true,
		},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[from][to]
			assert.Equal(t, want, from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestRequestStatus_Terminal(t *testing.T) {
	assert.False(t, domain.RequestPending.Terminal())
	assert.False(t, domain.RequestApproved.Terminal())
	assert.True(t, domain.RequestDenied.Terminal())
	assert.True(t, domain.RequestFulfilled.Terminal())
}

func TestBloodRequest_Validate(t *testing.T) {
	valid := func() *domain.BloodRequest {
		return &domain.BloodRequest{
			RequesterID:   uuid.New(),
			AssignedBank:  uuid.New(),
			BloodGroup:    domain.GroupOPositive,
			Quantity:      5,
			Urgency:       domain.UrgencyHigh,
			PatientName:   "Jordan Case",
			ContactNumber: "+1-555-0400",
			HospitalName:  "City General Hospital",
			Reason:        "Scheduled surgery",
			RequiredBy:    time.Now().Add(72 * time.Hour),
		}
	}

	tests := []struct {
		name      string
		mutate    func(*domain.BloodRequest)
		wantField string
	}{
		{
			name:   "valid_request",
			mutate: func(r *domain.BloodRequest) {},
		},
		{
			name:      "missing_requester",
			mutate:    func(r *domain.BloodRequest) { r.RequesterID = uuid.Nil },
			wantField: "requester_id",
		},
		{
			name:      "missing_bank",
			mutate:    func(r *domain.BloodRequest) { r.AssignedBank = uuid.Nil },
			wantField: "assigned_bank",
		},
		{
			name:      "unknown_blood_group",
			mutate:    func(r *domain.BloodRequest) { r.BloodGroup = "XYZ" },
			wantField: "blood_group",
		},
		{
			name:      "zero_quantity",
			mutate:    func(r *domain.BloodRequest) { r.Quantity = 0 },
			wantField: "quantity",
		},
		{
			name:      "negative_quantity",
			mutate:    func(r *domain.BloodRequest) { r.Quantity = -1 },
			wantField: "quantity",
		},
		{
			name:      "missing_patient_name",
			mutate:    func(r *domain.BloodRequest) { r.PatientName = "" },
			wantField: "patient_name",
		},
		{
			name:      "missing_contact_number",
			mutate:    func(r *domain.BloodRequest) { r.ContactNumber = "" },
			wantField: "contact_number",
		},
		{
			name:      "missing_hospital",
			mutate:    func(r *domain.BloodRequest) { r.HospitalName = "" },
			wantField: "hospital_name",
		},
		{
			name:      "missing_reason",
			mutate:    func(r *domain.BloodRequest) { r.Reason = "" },
			wantField: "reason",
		},
		{
			name:      "missing_required_by",
			mutate:    func(r *domain.BloodRequest) { r.RequiredBy = time.Time{} },
			wantField: "required_by",
		},
		{
			name:      "unknown_urgency",
			mutate:    func(r *domain.BloodRequest) { r.Urgency = "panic" },
			wantField: "urgency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)

			err := req.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestBloodRequest_Validate_DefaultsUrgency(t *testing.T) {
	req := &domain.BloodRequest{
		RequesterID:   uuid.New(),
		AssignedBank:  uuid.New(),
		BloodGroup:    domain.GroupABNegative,
		Quantity:      2,
		PatientName:   "Jordan Case",
		ContactNumber: "+1-555-0400",
		HospitalName:  "City General Hospital",
		Reason:        "Transfusion",
		RequiredBy:    time.Now().Add(24 * time.Hour),
	}

	require.NoError(t, req.Validate())
	assert.Equal(t, domain.UrgencyMedium, req.Urgency)
}

func TestDonationStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, domain.DonationScheduled.CanTransitionTo(domain.DonationCompleted))
	assert.True(t, domain.DonationScheduled.CanTransitionTo(domain.DonationCancelled))
	assert.False(t, domain.DonationCompleted.CanTransitionTo(domain.DonationCancelled))
	assert.False(t, domain.DonationCancelled.CanTransitionTo(domain.DonationCompleted))
	assert.False(t, domain.DonationScheduled.CanTransitionTo(domain.DonationScheduled))
}
