package document

import (
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
)

// CrossValidate compares CURP and elector key between front and back.
// A field missing on either side is not comparable and counts as matching.
func CrossValidate(front, back domain.DocumentFields) domain.ValidationResult {
	result := domain.ValidationResult{
		CURPMatches:       true,
		ElectorKeyMatches: true,
	}

	if !sameValue(front.CURP, back.CURP) {
		result.CURPMatches = false
		result.Mismatches = append(result.Mismatches,
			fmt.Sprintf("La CURP no coincide: frente %s, reverso %s", front.CURP, back.CURP))
	}

	if !sameValue(front.ElectorKey, back.ElectorKey) {
		result.ElectorKeyMatches = false
		result.Mismatches = append(result.Mismatches,
			fmt.Sprintf("La clave de elector no coincide: frente %s, reverso %s", front.ElectorKey, back.ElectorKey))
	}

	result.Valid = result.CURPMatches && result.ElectorKeyMatches
	return result
}

// Process extracts both sides, cross-validates them and merges the person
// fields, front first
func Process(frontLines, backLines []string) domain.ProcessedDocument {
	front := ExtractFront(frontLines)
	back := ExtractBack(backLines)

	return domain.ProcessedDocument{
		Front:      front,
		Back:       back,
		Person:     front.Merge(back),
		Validation: CrossValidate(front, back),
	}
}

func sameValue(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return true
	}
	return strings.EqualFold(a, b)
}
