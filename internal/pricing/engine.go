// Package pricing derives order totals from the package pricing table. All
// computations are pure: the same selection always yields the same breakdown,
// which the payment webhook relies on when it re-verifies a submitted total.
package pricing

import (
	"fmt"

	"invitation-platform/internal/models"
)

// LineItem is one labeled amount in a quote breakdown
type LineItem struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// Quote is the full price derivation for one selection. Total always equals
// the sum of line item amounts.
type Quote struct {
	LineItems []LineItem `json:"line_items"`
	Total     int        `json:"total"`
}

// ComputeTotal derives the total price and line-item breakdown for a selection.
//
// The selection must name an exact invite-count bracket of its tier; add-ons
// the tier or city does not permit are rejected rather than clamped, so a
// client that displays a disallowed add-on gets an explicit error instead of a
// silently different total.
func ComputeTotal(sel models.PricingSelection) (*Quote, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	table, ok := models.PricingFor(sel.PackageTier)
	if !ok {
		return nil, &models.ValidationError{Field: "package_tier", Message: "unknown package tier"}
	}

	basePrice, ok := table.BasePrices[sel.InviteCount]
	if !ok {
		return nil, &models.InvalidInviteCountError{
			Tier:        sel.PackageTier,
			InviteCount: sel.InviteCount,
			Brackets:    models.InviteBrackets(sel.PackageTier),
		}
	}

	quote := &Quote{}
	quote.add(fmt.Sprintf("%s package (%d invites)", sel.PackageTier, sel.InviteCount), basePrice)

	if sel.AdditionalCards > 0 {
		quote.add(fmt.Sprintf("%d additional cards", sel.AdditionalCards),
			sel.AdditionalCards*table.CardPrice)
	}

	if sel.ExtraHours > 0 {
		if !sel.PackageTier.AllowsExtraHours() {
			return nil, &models.UnsupportedAddOnError{
				AddOn:  "extra_hours",
				Tier:   sel.PackageTier,
				Reason: "extra hours are offered on premium and vip packages only",
			}
		}
		if sel.ExtraHours > table.MaxExtraHours {
			return nil, &models.ValidationError{
				Field:   "extra_hours",
				Message: fmt.Sprintf("at most %d extra hours can be booked", table.MaxExtraHours),
			}
		}
		quote.add(fmt.Sprintf("%d extra hours", sel.ExtraHours), sel.ExtraHours*table.HourPrice)
	}

	if sel.GateSupervisors > 0 {
		if !models.CityAllowsSupervisors(sel.EventCity) {
			return nil, &models.UnsupportedAddOnError{
				AddOn:  "gate_supervisors",
				Tier:   sel.PackageTier,
				Reason: fmt.Sprintf("gate supervisors are not available in %q", sel.EventCity),
			}
		}
		if sel.GateSupervisors > models.MaxGateSupervisors {
			return nil, &models.ValidationError{
				Field:   "gate_supervisors",
				Message: fmt.Sprintf("at most %d gate supervisors can be booked", models.MaxGateSupervisors),
			}
		}
		quote.add(fmt.Sprintf("%d gate supervisors", sel.GateSupervisors),
			sel.GateSupervisors*models.GateSupervisorPrice)
	}

	if sel.ExpeditedDelivery {
		quote.add("expedited delivery", table.ExpeditedPrice)
	}

	return quote, nil
}

// VerifyTotal recomputes the price for a selection and reports whether it
// matches a submitted total exactly. Used on the payment-confirmation path.
func VerifyTotal(sel models.PricingSelection, submitted int) (bool, error) {
	quote, err := ComputeTotal(sel)
	if err != nil {
		return false, err
	}
	return quote.Total == submitted, nil
}

func (q *Quote) add(label string, amount int) {
	q.LineItems = append(q.LineItems, LineItem{Label: label, Amount: amount})
	q.Total += amount
}
