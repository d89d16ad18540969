package registration

import "github.com/shopspring/decimal"

// Term fee tiers in RM by weekly class count.
var feeTiers = []int64{0, 120, 200, 280, 320}

// FeeForClasses returns the standard term fee for the given class count.
// Counts above the top tier all pay the top-tier fee.
func FeeForClasses(classCount int) decimal.Decimal {
	if classCount <= 0 {
		return decimal.Zero
	}
	if classCount >= len(feeTiers) {
		classCount = len(feeTiers) - 1
	}
	return decimal.NewFromInt(feeTiers[classCount])
}
