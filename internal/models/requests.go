package models

import "time"

// QuoteRequest represents a storefront pricing request
type QuoteRequest struct {
	PackageTier       string `json:"package_tier" validate:"required,oneof=classic premium vip"`
	InviteCount       int    `json:"invite_count" validate:"required,min=1"`
	AdditionalCards   int    `json:"additional_cards" validate:"min=0"`
	GateSupervisors   int    `json:"gate_supervisors" validate:"min=0"`
	ExtraHours        int    `json:"extra_hours" validate:"min=0"`
	ExpeditedDelivery bool   `json:"expedited_delivery"`
	EventCity         string `json:"event_city" validate:"required"`
}

// Selection converts the request into a PricingSelection.
func (r *QuoteRequest) Selection() PricingSelection {
	return PricingSelection{
		PackageTier:       PackageTier(r.PackageTier),
		InviteCount:       r.InviteCount,
		AdditionalCards:   r.AdditionalCards,
		GateSupervisors:   r.GateSupervisors,
		ExtraHours:        r.ExtraHours,
		ExpeditedDelivery: r.ExpeditedDelivery,
		EventCity:         r.EventCity,
	}
}

// CartItemRequest represents a request to add a configured package to the cart
type CartItemRequest struct {
	QuoteRequest
	EventTitle string    `json:"event_title" validate:"required,max=200"`
	EventDate  time.Time `json:"event_date" validate:"required"`
}

// CheckoutRequest represents a request to turn the session cart into an order
type CheckoutRequest struct {
	BillingEmail string `json:"billing_email" validate:"required,email"`
	BillingName  string `json:"billing_name" validate:"required,max=255"`
}

// RejectEventRequest represents an admin rejection of an invitation card
type RejectEventRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// AttendanceRequest records post-event attendance for a guest (vip only)
type AttendanceRequest struct {
	Attended bool `json:"attended"`
}
