package document

import "regexp"

const (
	curpBody       = `[A-Z]{4}\d{6}[HM][A-Z]{5}[A-Z0-9]{2}`
	electorKeyBody = `[A-Z]{6}\d{8}[A-Z]\d{3}`
)

var (
	curpPattern       = regexp.MustCompile(curpBody)
	electorKeyPattern = regexp.MustCompile(electorKeyBody)

	curpExact       = regexp.MustCompile(`^` + curpBody + `$`)
	electorKeyExact = regexp.MustCompile(`^` + electorKeyBody + `$`)

	sectionPattern  = regexp.MustCompile(`SECCION[\s:.]*(\d{4})\b`)
	validityPattern = regexp.MustCompile(`VIGENCIA[\s:.]*(\d{4})\b`)
	issuancePattern = regexp.MustCompile(`EMISION[\s:.]*(\d{2})\b`)
)

// IsValidCURP reports whether s is exactly an 18-character CURP
func IsValidCURP(s string) bool {
	return curpExact.MatchString(s)
}

// IsValidElectorKey reports whether s is exactly an 18-character elector key
func IsValidElectorKey(s string) bool {
	return electorKeyExact.MatchString(s)
}
