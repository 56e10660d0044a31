package utils

// All ledger fee arithmetic is integer-only, truncating toward zero.
// Rates are expressed as numerator/denominator pairs so no floating
// point ever touches a balance.

const (
	// Commission on credit redemption: 1.5%.
	CommissionNumerator   = 1500
	CommissionDenominator = 100000

	// Over-collateralization a lender must hold before matching: 110%.
	CoverageNumerator   = 110
	CoverageDenominator = 100

	// Fixed markup applied to loan principal: ~26.67%.
	MarkupNumerator   = 12667
	MarkupDenominator = 10000
)

// Commission returns the platform fee taken on redeeming amount credit
// units: floor(amount * 1500 / 100000).
func Commission(amount int64) int64 {
	return amount * CommissionNumerator / CommissionDenominator
}

// SplitCommission returns the net payout and commission for a
// redemption. net + commission == amount exactly.
func SplitCommission(amount int64) (net, commission int64) {
	commission = Commission(amount)
	return amount - commission, commission
}

// RequiredCoverage returns the credit a lender must hold to cover a
// loan of the given principal: floor(principal * 110 / 100).
func RequiredCoverage(principal int64) int64 {
	return principal * CoverageNumerator / CoverageDenominator
}

// AmountDue returns what the borrower owes at repayment:
// floor(principal * 12667 / 10000).
func AmountDue(principal int64) int64 {
	return principal * MarkupNumerator / MarkupDenominator
}

// MinimumPrincipal returns the smallest principal whose amount due
// still covers principal + fixedSpread. Below this the repayment split
// would leave the platform share negative, so origination rejects it.
func MinimumPrincipal(fixedSpread int64) int64 {
	p := fixedSpread * MarkupDenominator / (MarkupNumerator - MarkupDenominator)
	if p < 1 {
		p = 1
	}
	for AmountDue(p)-p < fixedSpread {
		p++
	}
	return p
}
