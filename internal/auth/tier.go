// ABOUTME: Four-tier permission hierarchy with ordinal comparison
// ABOUTME: Maps tiers to capability flags and parses tier names from tokens and flags

package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTier is returned when a tier name is not recognized
var ErrUnknownTier = errors.New("unknown tier")

// Tier is a user's position in the permission hierarchy.
type Tier int

const (
	TierVisitor Tier = iota
	TierStudent
	TierModerator
	TierAdmin
)

var tierNames = map[Tier]string{
	TierVisitor:   "visitor",
	TierStudent:   "student",
	TierModerator: "moderator",
	TierAdmin:     "admin",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// AtLeast reports whether t grants at least the privileges of other.
func (t Tier) AtLeast(other Tier) bool {
	return t >= other
}

// ParseTier converts a tier name into a Tier. Matching is case-insensitive.
func ParseTier(name string) (Tier, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for tier, n := range tierNames {
		if n == name {
			return tier, nil
		}
	}
	return TierVisitor, fmt.Errorf("%w: %q", ErrUnknownTier, name)
}

// Capability is a named permission flag carried by a SessionContext.
type Capability string

const (
	CapabilityTutor    Capability = "tutor"
	CapabilityModerate Capability = "moderate"
	CapabilityManage   Capability = "manage"
)

// CapabilitiesFor returns the capability flags granted by a tier.
func CapabilitiesFor(t Tier) []Capability {
	var caps []Capability
	if t.AtLeast(TierStudent) {
		caps = append(caps, CapabilityTutor)
	}
	if t.AtLeast(TierModerator) {
		caps = append(caps, CapabilityModerate)
	}
	if t.AtLeast(TierAdmin) {
		caps = append(caps, CapabilityManage)
	}
	return caps
}
