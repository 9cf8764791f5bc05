package confidential

import (
	"strings"

	"zenbridge-backend/internal/utils"
)

// Bounds enforced before any transform is queued. The same checks run again
// inside the transform, so a misbehaving coordinator cannot push an invalid
// input past the boundary.
const (
	MinCiphertextLength = 8
	MaxCiphertextLength = 512
	MinAddressLength    = 26
	MaxAddressLength    = 62
	MaxSlippagePercent  = 50
)

// PrivacyLevelMaximum tags every owner-sealed bridge transaction.
const PrivacyLevelMaximum = "maximum"

// ProtocolTag is the fixed protocol marker embedded in bridge proofs.
const ProtocolTag = "ZENBRIDGE_V1"

// BridgeAmount is the plaintext-domain confidential input for amount
// encryption and proof generation.
type BridgeAmount struct {
	Amount      uint64   `json:"amount"`
	SourceChain string   `json:"source_chain"`
	DestChain   string   `json:"dest_chain"`
	Timestamp   uint64   `json:"timestamp"`
	UserKey     [32]byte `json:"user_key"`
}

// Validate checks domain bounds and canonicalizes chain tags in place.
func (b *BridgeAmount) Validate() error {
	if b.Amount == 0 {
		return ErrInvalidAmount
	}
	source, err := utils.NormalizeChainName(b.SourceChain)
	if err != nil {
		return ErrInvalidChain
	}
	dest, err := utils.NormalizeChainName(b.DestChain)
	if err != nil {
		return ErrInvalidChain
	}
	b.SourceChain = source
	b.DestChain = dest
	return nil
}

// BridgeVerification is the confidential input for a tx-hash check against
// privately fetched ground truth.
type BridgeVerification struct {
	TxHash         string `json:"tx_hash"`
	ExpectedAmount []byte `json:"expected_amount"`
	Blockchain     string `json:"blockchain"`
	Timestamp      uint64 `json:"timestamp"`
}

func (v *BridgeVerification) Validate() error {
	v.TxHash = strings.TrimSpace(v.TxHash)
	if v.TxHash == "" {
		return ErrInvalidTxHash
	}
	if len(v.ExpectedAmount) < MinCiphertextLength || len(v.ExpectedAmount) > MaxCiphertextLength {
		return ErrInvalidCiphertext
	}
	chain, err := utils.NormalizeChainName(v.Blockchain)
	if err != nil {
		return ErrInvalidChain
	}
	v.Blockchain = chain
	return nil
}

// SwapCalculation is the confidential input for rate conversion with a
// slippage haircut.
type SwapCalculation struct {
	SourceAmount      []byte `json:"source_amount"`
	ExchangeRate      uint64 `json:"exchange_rate"`
	SlippageTolerance uint64 `json:"slippage_tolerance"`
}

func (s *SwapCalculation) Validate() error {
	if len(s.SourceAmount) < MinCiphertextLength || len(s.SourceAmount) > MaxCiphertextLength {
		return ErrInvalidCiphertext
	}
	if s.ExchangeRate == 0 {
		return ErrInvalidRate
	}
	if s.SlippageTolerance > MaxSlippagePercent {
		return ErrExcessiveSlippage
	}
	return nil
}

// BTCAddress is the confidential withdrawal target. The address must never
// appear in error messages or public state; validation errors carry only the
// violated rule.
type BTCAddress struct {
	Address      string   `json:"address"`
	RecipientKey [32]byte `json:"recipient_key"`
	Timestamp    uint64   `json:"timestamp"`
}

func (a *BTCAddress) Validate() error {
	if len(a.Address) < MinAddressLength || len(a.Address) > MaxAddressLength {
		return ErrInvalidAddress
	}
	if strings.ContainsAny(a.Address, " \t\r\n") {
		return ErrInvalidAddress
	}
	return nil
}

// EncryptedBridgeTx is the owner-scoped view of one encrypted bridge
// transfer. It travels only inside a sealed blob.
type EncryptedBridgeTx struct {
	EncryptedAmount []byte `json:"encrypted_amount"`
	SourceChain     string `json:"source_chain"`
	DestChain       string `json:"dest_chain"`
	ComputationID   string `json:"computation_id"`
	PrivacyLevel    string `json:"privacy_level"`
}

// RelayerTask is the relayer-scoped view: routing metadata only, with no
// user identity and no amount plaintext.
type RelayerTask struct {
	TaskID         string `json:"task_id"`
	TaskType       string `json:"task_type"`
	Priority       string `json:"priority"`
	RoutingHint    string `json:"routing_hint"`
	CallbackRef    string `json:"callback_ref"`
	TimeoutSeconds uint64 `json:"timeout_seconds"`
	ComputationID  string `json:"computation_id"`
}

// ComplianceAudit is the compliance-scoped view: hashed identity and coarse
// amount banding, never raw values.
type ComplianceAudit struct {
	TxRef          string   `json:"tx_ref"`
	HashedUserID   string   `json:"hashed_user_id"`
	AmountCategory string   `json:"amount_category"`
	RiskLevel      string   `json:"risk_level"`
	Flags          []string `json:"flags"`
	Blockchain     string   `json:"blockchain"`
	Timestamp      uint64   `json:"timestamp"`
	ComputationID  string   `json:"computation_id"`
}

// FanOut carries the three differently-shaped sealed views produced from one
// confidential input under a single computation ID.
type FanOut struct {
	ComputationID ComputationID
	Owner         Sealed
	Relayer       Sealed
	Compliance    Sealed
}
