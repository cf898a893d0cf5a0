package recommend

import (
	"fmt"
	"math"
	"strings"
)

// Profile is a user's latent preference vector from the trained
// recommendation model. A user without a profile is a valid state.
type Profile struct {
	userID  string
	factors []float32
}

// NewProfile validates and creates a Profile.
func NewProfile(userID string, factors []float32) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, fmt.Errorf("user id is required")
	}
	if len(factors) == 0 {
		return Profile{}, fmt.Errorf("profile for %q has no factors", userID)
	}
	for i, f := range factors {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return Profile{}, fmt.Errorf("profile for %q: factor %d is not finite", userID, i)
		}
	}
	c := make([]float32, len(factors))
	copy(c, factors)
	return Profile{userID: userID, factors: c}, nil
}

// UserID returns the profile owner.
func (p *Profile) UserID() string { return p.userID }

// Factors returns the user latent vector.
func (p *Profile) Factors() []float32 { return p.factors }

// Score is the dot product of the user factors and an item's factors.
// Mismatched dimensions score over the shared prefix.
func (p *Profile) Score(item []float32) float64 {
	n := len(p.factors)
	if len(item) < n {
		n = len(item)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(p.factors[i]) * float64(item[i])
	}
	return s
}
