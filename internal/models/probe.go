package models

// ProbeReading is the payload published by remote temperature probes.
type ProbeReading struct {
	Chamber int     `json:"chamber"` // 1-based
	Celsius float64 `json:"celsius"`
}
