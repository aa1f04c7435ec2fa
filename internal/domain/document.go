package domain

// DocumentFields holds the structured identity fields read from one side of
// a voter credential. Empty strings mean the field was not found.
type DocumentFields struct {
	FullName       string `json:"nombre_completo,omitempty"`
	Address        string `json:"domicilio,omitempty"`
	CURP           string `json:"curp,omitempty"`
	ElectorKey     string `json:"clave_elector,omitempty"`
	BirthDate      string `json:"fecha_nacimiento,omitempty"`
	Sex            string `json:"sexo,omitempty"`
	State          string `json:"estado,omitempty"`
	Section        string `json:"seccion,omitempty"`
	ValidityYear   string `json:"vigencia,omitempty"`
	IssuanceNumber string `json:"numero_emision,omitempty"`
}

// IsEmpty reports whether no extraction rule produced a value
func (f DocumentFields) IsEmpty() bool {
	return f == DocumentFields{}
}

// Merge fills the empty fields of f with values from other; f wins on conflicts.
func (f DocumentFields) Merge(other DocumentFields) DocumentFields {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}

	return DocumentFields{
		FullName:       pick(f.FullName, other.FullName),
		Address:        pick(f.Address, other.Address),
		CURP:           pick(f.CURP, other.CURP),
		ElectorKey:     pick(f.ElectorKey, other.ElectorKey),
		BirthDate:      pick(f.BirthDate, other.BirthDate),
		Sex:            pick(f.Sex, other.Sex),
		State:          pick(f.State, other.State),
		Section:        pick(f.Section, other.Section),
		ValidityYear:   pick(f.ValidityYear, other.ValidityYear),
		IssuanceNumber: pick(f.IssuanceNumber, other.IssuanceNumber),
	}
}

// ValidationResult is the outcome of cross-checking front and back
type ValidationResult struct {
	CURPMatches       bool     `json:"curp_coincide"`
	ElectorKeyMatches bool     `json:"clave_elector_coincide"`
	Valid             bool     `json:"es_valida"`
	Mismatches        []string `json:"errores,omitempty"`
}

// ProcessedDocument bundles both sides and their cross-validation
type ProcessedDocument struct {
	Front      DocumentFields   `json:"frente"`
	Back       DocumentFields   `json:"reverso"`
	Person     DocumentFields   `json:"persona"`
	Validation ValidationResult `json:"validacion"`
}
