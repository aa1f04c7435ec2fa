package document

// states maps the two-letter CURP entity code to the entity name
var states = map[string]string{
	"AS": "Aguascalientes",
	"BC": "Baja California",
	"BS": "Baja California Sur",
	"CC": "Campeche",
	"CL": "Coahuila",
	"CM": "Colima",
	"CS": "Chiapas",
	"CH": "Chihuahua",
	"DF": "Ciudad de México",
	"DG": "Durango",
	"GT": "Guanajuato",
	"GR": "Guerrero",
	"HG": "Hidalgo",
	"JC": "Jalisco",
	"MC": "Estado de México",
	"MN": "Michoacán",
	"MS": "Morelos",
	"NT": "Nayarit",
	"NL": "Nuevo León",
	"OC": "Oaxaca",
	"PL": "Puebla",
	"QT": "Querétaro",
	"QR": "Quintana Roo",
	"SP": "San Luis Potosí",
	"SL": "Sinaloa",
	"SR": "Sonora",
	"TC": "Tabasco",
	"TS": "Tamaulipas",
	"TL": "Tlaxcala",
	"VZ": "Veracruz",
	"YN": "Yucatán",
	"ZS": "Zacatecas",
	"NE": "Nacido en el extranjero",
}

// StateName resolves a CURP entity code; ok is false for unknown codes
func StateName(code string) (string, bool) {
	name, ok := states[code]
	return name, ok
}
