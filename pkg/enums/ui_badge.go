package enums

// BadgeTone is the colour family a client renders a status badge with.
type BadgeTone string

const (
	ToneNeutral BadgeTone = "neutral"
	ToneInfo    BadgeTone = "info"
	ToneAccent  BadgeTone = "accent"
	ToneSuccess BadgeTone = "success"
	ToneWarning BadgeTone = "warning"
	ToneDanger  BadgeTone = "danger"
)

// UIBadge represents the badge shown next to an order or payment status.
type UIBadge struct {
	Tone  BadgeTone `json:"tone"`
	Label string    `json:"label"`
}
