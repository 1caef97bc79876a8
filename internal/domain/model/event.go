package model

import "github.com/shopspring/decimal"

// CorporateEventType is a closed enum of supported corporate actions.
type CorporateEventType string

const (
	EventDividend CorporateEventType = "DIVIDEND"
	EventSplit    CorporateEventType = "SPLIT"
)

// CorporateEvent is a dividend or split affecting holders of an asset as of
// its record date. Applied at most once per (asset, record date, type).
type CorporateEvent struct {
	ID         string             `json:"id"`
	AssetID    string             `json:"assetId"`
	Type       CorporateEventType `json:"type"`
	RecordDate Date               `json:"recordDate"`
	// PayDate may be zero, in which case the record date is used.
	PayDate Date `json:"payDate"`
	// Rate is the dividend per share or the split ratio, by Type.
	Rate         decimal.Decimal `json:"rate"`
	Jurisdiction string          `json:"jurisdiction"`
	Source       string          `json:"source"`
}

// EffectiveDate is the date a synthetic transaction for this event is dated.
func (e CorporateEvent) EffectiveDate() Date {
	if !e.PayDate.IsZero() {
		return e.PayDate
	}
	return e.RecordDate
}
