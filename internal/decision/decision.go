// Package decision turns three pairwise similarity scores into a verification result.
package decision

import (
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
)

// Mensajes fijos por resultado
const (
	MessageAlta         = "Identidad verificada con alta confianza"
	MessageMedia        = "Identidad verificada con confianza media"
	MessageBaja         = "Similitud baja: no es posible confirmar la identidad"
	MessageInconsistent = "Las selfies no son consistentes entre sí: parecen ser de personas distintas"
	MessageInsufficient = "Similitud insuficiente con la foto del documento"
)

// Profile holds the thresholds of one scoring regime. All values are in [0,1].
// MinPlausible > 0 enables the baja band: document scores under Floor but at
// or above MinPlausible yield a non-matching baja result instead of fallida.
type Profile struct {
	Name         string  `json:"name"`
	Consistency  float64 `json:"consistency"`
	Floor        float64 `json:"floor"`
	MinPlausible float64 `json:"min_plausible,omitempty"`
	Medium       float64 `json:"medium"`
	High         float64 `json:"high"`
}

// GeometricProfile is tuned for landmark geometry, which compresses scores
// toward the middle; it keeps a baja band.
var GeometricProfile = Profile{
	Name:         string(domain.StrategyGeometric),
	Consistency:  0.70,
	Floor:        0.60,
	MinPlausible: 0.45,
	Medium:       0.60,
	High:         0.75,
}

// DeepProfile is the stricter three-tier table for deep embeddings
var DeepProfile = Profile{
	Name:        string(domain.StrategyDeep),
	Consistency: 0.70,
	Floor:       0.60,
	Medium:      0.65,
	High:        0.80,
}

// ProfileFor returns the profile matching a scoring strategy
func ProfileFor(strategy domain.ComparisonStrategy) Profile {
	if strategy == domain.StrategyDeep {
		return DeepProfile
	}
	return GeometricProfile
}

// ProfileByName resolves "deep" or "geometric"
func ProfileByName(name string) (Profile, error) {
	switch name {
	case DeepProfile.Name:
		return DeepProfile, nil
	case GeometricProfile.Name:
		return GeometricProfile, nil
	default:
		return Profile{}, domain.ErrValidationFailed.WithError(fmt.Errorf("unknown decision profile %q", name))
	}
}

// HasBajaBand reports whether the profile distinguishes baja from fallida
func (p Profile) HasBajaBand() bool {
	return p.MinPlausible > 0
}

// Validate checks ranges and ordering of the thresholds
func (p Profile) Validate() error {
	for name, v := range map[string]float64{
		"consistency":   p.Consistency,
		"floor":         p.Floor,
		"min_plausible": p.MinPlausible,
		"medium":        p.Medium,
		"high":          p.High,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return domain.ErrInvalidThreshold.WithError(fmt.Errorf("%s=%v", name, v))
		}
	}
	if p.Medium > p.High {
		return domain.ErrInvalidThreshold.WithError(fmt.Errorf("medium %v above high %v", p.Medium, p.High))
	}
	if p.MinPlausible > p.Floor {
		return domain.ErrInvalidThreshold.WithError(fmt.Errorf("min_plausible %v above floor %v", p.MinPlausible, p.Floor))
	}
	return nil
}

// Decide applies, in order, the selfie consistency gate, the document floor
// gate and average-based tiering. It is pure: equal inputs give equal results.
// Scores outside [0,1] (or NaN) are clamped first.
func Decide(p Profile, docVsNear, docVsFar, nearVsFar float64, person domain.DocumentFields) domain.VerificationResult {
	docVsNear, docVsFar, nearVsFar = clamp01(docVsNear), clamp01(docVsFar), clamp01(nearVsFar)

	result := domain.VerificationResult{
		Tier:       domain.TierFallida,
		DocVsNear:  docVsNear,
		DocVsFar:   docVsFar,
		NearVsFar:  nearVsFar,
		Person:     person,
		Message:    MessageInsufficient,
		ProfileKey: p.Name,
	}

	if nearVsFar < p.Consistency {
		result.Message = MessageInconsistent
		return result
	}

	lowest := math.Min(docVsNear, docVsFar)
	if lowest < p.Floor {
		if p.HasBajaBand() && lowest >= p.MinPlausible {
			result.Tier = domain.TierBaja
			result.Message = MessageBaja
		}
		return result
	}

	avg := (docVsNear + docVsFar) / 2
	switch {
	case avg > p.High:
		result.Match = true
		result.Tier = domain.TierAlta
		result.Message = MessageAlta
	case avg > p.Medium:
		result.Match = true
		result.Tier = domain.TierMedia
		result.Message = MessageMedia
	case p.HasBajaBand():
		result.Tier = domain.TierBaja
		result.Message = MessageBaja
	}

	return result
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
