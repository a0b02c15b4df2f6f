package models

// RiskItem is one weighted risk category.
type RiskItem struct {
	Area        string  `json:"osa_alue"`
	Level       float64 `json:"riski_taso"`
	Share       int     `json:"osuus_prosenttia"`
	Description string  `json:"kuvaus"`
}

// RiskReport is the validated risk score of a property. Fallback marks a
// default payload substituted for an unusable model answer.
type RiskReport struct {
	Overall  float64    `json:"kokonaisriskitaso"`
	Items    []RiskItem `json:"riskimittari"`
	Summary  string     `json:"yhteenveto,omitempty"`
	Fallback bool       `json:"oletusarvio,omitempty"`
}
