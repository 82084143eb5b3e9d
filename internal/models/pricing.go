package models

import (
	"sort"
	"strings"
)

// PackageTier represents an invitation package level
type PackageTier string

const (
	TierClassic PackageTier = "classic"
	TierPremium PackageTier = "premium"
	TierVIP     PackageTier = "vip"
)

// TierPricing holds the fixed pricing table for a package tier. Base prices
// are keyed by invite-count bracket; all amounts are whole currency units.
type TierPricing struct {
	BasePrices       map[int]int
	CardPrice        int
	HourPrice        int // 0 means extra hours are not offered for this tier
	MaxExtraHours    int
	ExpeditedPrice   int
	MaxCollaborators int
}

var tierPricing = map[PackageTier]TierPricing{
	TierClassic: {
		BasePrices:       map[int]int{100: 1999, 200: 2999, 300: 3999},
		CardPrice:        5,
		HourPrice:        0,
		MaxExtraHours:    0,
		ExpeditedPrice:   250,
		MaxCollaborators: 0,
	},
	TierPremium: {
		BasePrices:       map[int]int{200: 4999, 300: 6499, 400: 7999},
		CardPrice:        7,
		HourPrice:        400,
		MaxExtraHours:    4,
		ExpeditedPrice:   350,
		MaxCollaborators: 2,
	},
	TierVIP: {
		BasePrices:       map[int]int{300: 9999, 400: 11999, 500: 13999},
		CardPrice:        10,
		HourPrice:        500,
		MaxExtraHours:    6,
		ExpeditedPrice:   500,
		MaxCollaborators: 10,
	},
}

// Gate supervisor pricing applies across all tiers but only in supported cities.
const (
	GateSupervisorPrice = 450
	MaxGateSupervisors  = 10
)

// supervisorCities lists the cities where gate supervisors can be booked.
var supervisorCities = map[string]bool{
	"riyadh": true,
	"jeddah": true,
	"dammam": true,
	"khobar": true,
}

// allowedCountryCodes lists the phone country codes guests may be registered with.
var allowedCountryCodes = []string{
	"+966", // Saudi Arabia
	"+971", // UAE
	"+973", // Bahrain
	"+965", // Kuwait
	"+968", // Oman
	"+974", // Qatar
	"+20",  // Egypt
}

// PricingFor returns the pricing table for a tier.
func PricingFor(tier PackageTier) (TierPricing, bool) {
	p, ok := tierPricing[tier]
	return p, ok
}

// ValidTier returns true if the tier is one of the known package tiers.
func ValidTier(tier PackageTier) bool {
	_, ok := tierPricing[tier]
	return ok
}

// InviteBrackets returns the invite-count brackets offered for a tier, sorted.
func InviteBrackets(tier PackageTier) []int {
	p, ok := tierPricing[tier]
	if !ok {
		return nil
	}
	brackets := make([]int, 0, len(p.BasePrices))
	for count := range p.BasePrices {
		brackets = append(brackets, count)
	}
	sort.Ints(brackets)
	return brackets
}

// AllowsExtraHours returns true if the tier offers the extra-hours add-on.
func (t PackageTier) AllowsExtraHours() bool {
	p, ok := tierPricing[t]
	return ok && p.HourPrice > 0
}

// AllowsCollaborators returns true if the tier permits collaborator allocation.
func (t PackageTier) AllowsCollaborators() bool {
	p, ok := tierPricing[t]
	return ok && p.MaxCollaborators > 0
}

// AllowsGuestEditing returns true if collaborators on this tier can be granted
// edit/delete permissions.
func (t PackageTier) AllowsGuestEditing() bool {
	return t == TierVIP
}

// CityAllowsSupervisors returns true if gate supervisors can be booked for the city.
func CityAllowsSupervisors(city string) bool {
	return supervisorCities[strings.ToLower(strings.TrimSpace(city))]
}

// PhoneCountryAllowed returns true if the phone number starts with a supported
// country code.
func PhoneCountryAllowed(phone string) bool {
	phone = strings.TrimSpace(phone)
	for _, code := range allowedCountryCodes {
		if strings.HasPrefix(phone, code) {
			return true
		}
	}
	return false
}

// PricingSelection represents one configured invitation package as selected in
// the storefront. All add-on quantities are absolute, not increments.
type PricingSelection struct {
	PackageTier       PackageTier `json:"package_tier"`
	InviteCount       int         `json:"invite_count"`
	AdditionalCards   int         `json:"additional_cards"`
	GateSupervisors   int         `json:"gate_supervisors"`
	ExtraHours        int         `json:"extra_hours"`
	ExpeditedDelivery bool        `json:"expedited_delivery"`
	EventCity         string      `json:"event_city"`
}

// Validate checks structural constraints of the selection. Tier/add-on
// compatibility is checked by the pricing engine, which owns the rule table.
func (s *PricingSelection) Validate() error {
	if !ValidTier(s.PackageTier) {
		return &ValidationError{Field: "package_tier", Message: "unknown package tier"}
	}
	if s.InviteCount <= 0 {
		return &ValidationError{Field: "invite_count", Message: "invite count must be positive"}
	}
	if s.AdditionalCards < 0 {
		return &ValidationError{Field: "additional_cards", Message: "additional cards cannot be negative"}
	}
	if s.GateSupervisors < 0 {
		return &ValidationError{Field: "gate_supervisors", Message: "gate supervisors cannot be negative"}
	}
	if s.ExtraHours < 0 {
		return &ValidationError{Field: "extra_hours", Message: "extra hours cannot be negative"}
	}
	return nil
}
