package model

// Portfolio identity and currency context. Immutable for the duration of a
// calculation.
type Portfolio struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Owner             string `json:"owner"`
	BaseCurrency      string `json:"baseCurrency"`
	ReportingCurrency string `json:"reportingCurrency"`
}

// Currency returns the currency valuations are reported in, falling back to
// the base currency when no reporting currency is set.
func (p Portfolio) Currency() string {
	if p.ReportingCurrency != "" {
		return p.ReportingCurrency
	}
	return p.BaseCurrency
}
