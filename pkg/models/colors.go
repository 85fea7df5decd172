package models

import "hash/fnv"

// ColorName identifies one of the fixed conversation colors. The palette is
// closed; persisted values outside it decode as DefaultColorName.
type ColorName string

const (
	ColorCrimson     ColorName = "crimson"
	ColorVermilion   ColorName = "vermilion"
	ColorBurlap      ColorName = "burlap"
	ColorForest      ColorName = "forest"
	ColorWintergreen ColorName = "wintergreen"
	ColorTeal        ColorName = "teal"
	ColorBlue        ColorName = "blue"
	ColorIndigo      ColorName = "indigo"
	ColorViolet      ColorName = "violet"
	ColorPlum        ColorName = "plum"
	ColorTaupe       ColorName = "taupe"
	ColorSteel       ColorName = "steel"
)

// DefaultColorName substitutes for unknown or missing persisted values.
const DefaultColorName = ColorSteel

// ConversationColors lists the palette in stable order. Color assignment
// indexes into this slice, so the order is part of the persisted contract.
var ConversationColors = []ColorName{
	ColorCrimson, ColorVermilion, ColorBurlap, ColorForest,
	ColorWintergreen, ColorTeal, ColorBlue, ColorIndigo,
	ColorViolet, ColorPlum, ColorTaupe, ColorSteel,
}

// Valid reports whether the name belongs to the palette.
func (c ColorName) Valid() bool {
	for _, v := range ConversationColors {
		if v == c {
			return true
		}
	}
	return false
}

// ParseColorName maps a persisted string onto the palette, substituting
// DefaultColorName for anything unknown.
func ParseColorName(s string) ColorName {
	if c := ColorName(s); c.Valid() {
		return c
	}
	return DefaultColorName
}

// StableColorNameForNewConversation picks a palette entry from an opaque
// seed (the contact identifier or group id). Equal seeds yield equal colors
// in every process; no randomness is involved.
func StableColorNameForNewConversation(seed string) ColorName {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return ConversationColors[h.Sum64()%uint64(len(ConversationColors))]
}
