package document

import (
	"fmt"
	"strconv"
	"time"
)

const (
	SexMale   = "Hombre"
	SexFemale = "Mujer"

	// centuryPivot: two-digit years above it are 19xx, the rest 20xx
	centuryPivot = 25
)

// CURPInfo holds the fields encoded by position in a CURP. Fields that
// fail to decode are left empty.
type CURPInfo struct {
	BirthDate string
	Sex       string
	State     string
}

// DecodeCURP reads birth date (positions 4-9, YYMMDD), sex (10) and entity
// code (11-12) from a CURP
func DecodeCURP(curp string) CURPInfo {
	var info CURPInfo
	if len(curp) != 18 {
		return info
	}

	if date, ok := decodeBirthDate(curp[4:10]); ok {
		info.BirthDate = date
	}

	switch curp[10] {
	case 'H':
		info.Sex = SexMale
	case 'M':
		info.Sex = SexFemale
	}

	if name, ok := StateName(curp[11:13]); ok {
		info.State = name
	}

	return info
}

func decodeBirthDate(yymmdd string) (string, bool) {
	yy, err1 := strconv.Atoi(yymmdd[0:2])
	mm, err2 := strconv.Atoi(yymmdd[2:4])
	dd, err3 := strconv.Atoi(yymmdd[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}

	year := 2000 + yy
	if yy > centuryPivot {
		year = 1900 + yy
	}

	t := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != mm || t.Day() != dd {
		return "", false
	}

	return fmt.Sprintf("%02d/%02d/%04d", dd, mm, year), true
}
