package params

// These are the multipliers for ZEP token denominations.
// Example: To get the base unit value of an amount in 'zep', use
//
//	new(big.Int).Mul(value, big.NewInt(params.ZEP))
const (
	Unit = 1
	ZEP  = 1e18

	// ZEPDecimals is the number of decimal places of one ZEP.
	ZEPDecimals = 18
)
