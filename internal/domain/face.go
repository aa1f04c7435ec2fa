package domain

// ConfidenceTier classifica quão forte é a crença de que duas faces coincidem.
// Ordem: fallida < baja < media < alta.
type ConfidenceTier string

const (
	TierFallida ConfidenceTier = "fallida"
	TierBaja    ConfidenceTier = "baja"
	TierMedia   ConfidenceTier = "media"
	TierAlta    ConfidenceTier = "alta"
)

// Rank returns the ordinal position of the tier; unknown tiers rank below fallida.
func (t ConfidenceTier) Rank() int {
	switch t {
	case TierFallida:
		return 0
	case TierBaja:
		return 1
	case TierMedia:
		return 2
	case TierAlta:
		return 3
	default:
		return -1
	}
}

// VerificationResult é a saída terminal do motor de decisão
type VerificationResult struct {
	Match      bool           `json:"coincide"`
	Tier       ConfidenceTier `json:"confianza"`
	DocVsNear  float64        `json:"similitud_doc_cercana"`
	DocVsFar   float64        `json:"similitud_doc_lejana"`
	NearVsFar  float64        `json:"similitud_selfies"`
	Person     DocumentFields `json:"persona"`
	Message    string         `json:"mensaje"`
	ProfileKey string         `json:"perfil"`
}

// ComparisonStrategy names the scoring strategy that produced a similarity
type ComparisonStrategy string

const (
	StrategyDeep      ComparisonStrategy = "deep"
	StrategyGeometric ComparisonStrategy = "geometric"
)

// Comparison is one pairwise similarity together with the strategy that produced it
type Comparison struct {
	Similarity float64            `json:"similarity"`
	Strategy   ComparisonStrategy `json:"strategy"`
}
