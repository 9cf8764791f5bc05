package confidential

import "errors"

// Typed validation and execution errors. Error text deliberately names the
// violated rule and never the offending value: these strings can end up in
// public logs and API responses.
var (
	ErrInvalidAmount      = errors.New("bridge amount must be greater than zero")
	ErrInvalidChain       = errors.New("chain tag must be non-empty and at most 32 characters")
	ErrInvalidTxHash      = errors.New("transaction hash must be non-empty")
	ErrInvalidCiphertext  = errors.New("ciphertext length outside allowed window")
	ErrInvalidRate        = errors.New("exchange rate must be greater than zero")
	ErrExcessiveSlippage  = errors.New("slippage tolerance exceeds ceiling")
	ErrInvalidAddress     = errors.New("address fails length or charset validation")
	ErrInvalidRandomBound = errors.New("random bound must be greater than zero")
	ErrOverflow           = errors.New("arithmetic overflow in confidential computation")
	ErrSealFailed         = errors.New("sealing output failed")
	ErrOpenFailed         = errors.New("sealed blob cannot be opened with this key")
	ErrEntropyUnavailable = errors.New("entropy source unavailable")
)
