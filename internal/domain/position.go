package domain

// PositionStatus tracks whether the session currently holds the base asset.
type PositionStatus string

const (
	PositionStatusFlat PositionStatus = "flat"
	PositionStatusLong PositionStatus = "long"
)

// Position is the mutable per-symbol session state. EntryPrice and
// HighWaterMark are meaningful only while Status is Long. CooldownUntil is the
// candle index before which new entries are forbidden after a stop-loss exit.
// Exactly one position can be open at a time.
type Position struct {
	Status        PositionStatus `json:"status"`
	EntryPrice    float64        `json:"entry_price"`
	HighWaterMark float64        `json:"high_water_mark"`
	CooldownUntil int            `json:"cooldown_until"`
}

// NewPosition returns a flat position with no cooldown in effect.
func NewPosition() Position {
	return Position{Status: PositionStatusFlat}
}

// IsLong reports whether the position currently holds the base asset.
func (p Position) IsLong() bool { return p.Status == PositionStatusLong }

// StopReference returns the price the stop-loss threshold is applied to:
// the high-water mark for trailing stops, the entry price for fixed stops.
func (p Position) StopReference(trailing bool) float64 {
	if trailing {
		return p.HighWaterMark
	}
	return p.EntryPrice
}
