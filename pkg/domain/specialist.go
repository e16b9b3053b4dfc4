package domain

import "strings"

// Specialist identifies one of the domain experts a walk can be routed to.
type Specialist string

const (
	Finance   Specialist = "finance_expert"
	Legal     Specialist = "legal_expert"
	Fitness   Specialist = "fitness_expert"
	Business  Specialist = "business_expert"
	Health    Specialist = "health_expert"
	GeneralQA Specialist = "general_qa"
)

// DefaultSpecialist is the safe catch-all used for unset or unknown routes.
const DefaultSpecialist = GeneralQA

// Specialists returns the closed set in a stable order.
func Specialists() []Specialist {
	return []Specialist{Finance, Legal, Fitness, Business, Health, GeneralQA}
}

// Regulated returns the default set of specialists whose answers are always high-risk.
func Regulated() []Specialist {
	return []Specialist{Legal, Health, Finance}
}

// ParseSpecialist matches raw against the closed set, ignoring case and surrounding space.
func ParseSpecialist(raw string) (Specialist, bool) {
	s := Specialist(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Valid reports whether s belongs to the closed set.
func (s Specialist) Valid() bool {
	for _, known := range Specialists() {
		if s == known {
			return true
		}
	}
	return false
}

// Title renders the identity the way answers are headed, e.g. FINANCE_EXPERT.
func (s Specialist) Title() string {
	return strings.ToUpper(string(s))
}

// RiskBanner is prepended, exactly once, to answers classified high-risk.
const RiskBanner = "**MANDATORY HIGH-RISK WARNING**\n\n"
