// Package document extracts identity fields from recognized text of a Mexican
// voter credential (INE) and cross-checks front against back.
package document

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/saturnino-fabrica-de-software/verifica/internal/domain"
)

// Side identifies which face of the card the text came from
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

const (
	nameSearchLines  = 10
	nameMinCandidate = 5
	nameMinLength    = 8
	nameMinAlpha     = 0.7

	addressMaxLines = 3
	addressMarker   = "DOMICILIO"
)

// nameStopKeywords are card captions and institutional words that never form
// part of a name. They match anywhere in the line, since OCR often merges a
// caption into a single token ("CREDENCIALPARAVOTAR").
var nameStopKeywords = []string{
	"INSTITUTO", "NACIONAL", "ELECTORAL", "FEDERAL",
	"MEXICO", "ESTADOS", "UNIDOS", "MEXICANOS",
	"CREDENCIAL", "VOTAR", "NOMBRE", "DOMICILIO", "CLAVE", "ELECTOR", "CURP",
	"SECCION", "VIGENCIA", "EMISION", "REGISTRO",
	"FECHA", "NACIMIENTO", "SEXO", "ESTADO",
	"MUNICIPIO", "LOCALIDAD",
}

// nameStopTokens are short captions that also occur inside real names
// (VALENTINE, AFIFE), so they only match as whole words
var nameStopTokens = map[string]struct{}{
	"INE": {}, "IFE": {}, "ANO": {},
}

// addressStops end the address block
var addressStops = []string{"CURP", "CLAVE DE ELECTOR", "SECCION"}

// Extract runs the rules for side over the recognized lines
func Extract(side Side, lines []string) domain.DocumentFields {
	if side == SideBack {
		return ExtractBack(lines)
	}
	return ExtractFront(lines)
}

// ExtractFront reads the front of the credential. Absent fields stay empty.
func ExtractFront(lines []string) domain.DocumentFields {
	normalized := normalizeLines(lines)
	text := strings.Join(normalized, "\n")

	fields := codes(text)
	fields.Section = firstGroup(sectionPattern.FindStringSubmatch(text))
	fields.ValidityYear = firstGroup(validityPattern.FindStringSubmatch(text))
	fields.FullName = extractName(lines, normalized)
	fields.Address = extractAddress(lines, normalized)

	return withCURPInfo(fields)
}

// ExtractBack reads the back of the credential
func ExtractBack(lines []string) domain.DocumentFields {
	text := strings.Join(normalizeLines(lines), "\n")

	fields := codes(text)
	fields.IssuanceNumber = firstGroup(issuancePattern.FindStringSubmatch(text))

	return withCURPInfo(fields)
}

func normalizeLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = normalize(strings.TrimSpace(l))
	}
	return out
}

// codes finds CURP and elector key in the text with all whitespace removed
func codes(text string) domain.DocumentFields {
	flat := compact(text)
	return domain.DocumentFields{
		CURP:       curpPattern.FindString(flat),
		ElectorKey: electorKeyPattern.FindString(flat),
	}
}

func withCURPInfo(fields domain.DocumentFields) domain.DocumentFields {
	if fields.CURP == "" {
		return fields
	}
	info := DecodeCURP(fields.CURP)
	fields.BirthDate = info.BirthDate
	fields.Sex = info.Sex
	fields.State = info.State
	return fields
}

func firstGroup(match []string) string {
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// extractName returns the first of the leading lines that looks like a person name
func extractName(lines, normalized []string) string {
	for i := 0; i < len(normalized) && i < nameSearchLines; i++ {
		if isNameCandidate(normalized[i]) {
			return strings.TrimSpace(lines[i])
		}
	}
	return ""
}

func isNameCandidate(line string) bool {
	length := utf8.RuneCountInString(line)
	if length < nameMinCandidate || length < nameMinLength {
		return false
	}

	for _, keyword := range nameStopKeywords {
		if strings.Contains(line, keyword) {
			return false
		}
	}
	for _, word := range strings.FieldsFunc(line, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if _, stop := nameStopTokens[word]; stop {
			return false
		}
	}

	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters)/float64(length) >= nameMinAlpha
}

// extractAddress collects up to addressMaxLines following the DOMICILIO
// caption line, stopping at the next code or section caption
func extractAddress(lines, normalized []string) string {
	start := -1
	for i, l := range normalized {
		if strings.Contains(l, addressMarker) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return ""
	}

	var parts []string
	for i := start; i < len(normalized) && len(parts) < addressMaxLines; i++ {
		if isAddressStop(normalized[i]) {
			break
		}
		if l := strings.TrimSpace(lines[i]); l != "" {
			parts = append(parts, l)
		}
	}

	return strings.Join(parts, ", ")
}

func isAddressStop(line string) bool {
	for _, stop := range addressStops {
		if strings.Contains(line, stop) {
			return true
		}
	}
	return false
}
