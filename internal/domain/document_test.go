package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentFields_IsEmpty(t *testing.T) {
	assert.True(t, DocumentFields{}.IsEmpty())
	assert.False(t, DocumentFields{Section: "1234"}.IsEmpty())
}

func TestDocumentFields_Merge(t *testing.T) {
	front := DocumentFields{FullName: "JUAN PEREZ LOPEZ", CURP: "GARC850101HDFRRL09"}
	back := DocumentFields{CURP: "XXXX000000HDFXXX00", IssuanceNumber: "03"}

	merged := front.Merge(back)

	assert.Equal(t, "JUAN PEREZ LOPEZ", merged.FullName)
	assert.Equal(t, "GARC850101HDFRRL09", merged.CURP, "receiver wins on conflict")
	assert.Equal(t, "03", merged.IssuanceNumber)
}

func TestConfidenceTier_Rank(t *testing.T) {
	assert.Less(t, TierFallida.Rank(), TierBaja.Rank())
	assert.Less(t, TierBaja.Rank(), TierMedia.Rank())
	assert.Less(t, TierMedia.Rank(), TierAlta.Rank())
	assert.Equal(t, -1, ConfidenceTier("desconocida").Rank())
}
