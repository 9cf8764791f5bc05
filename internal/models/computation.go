package models

import "time"

// computation lifecycle status enum - one terminal transition per record
type ComputationStatus string

const (
	ComputationStatusQueued    ComputationStatus = "queued"    // accepted, awaiting fabric callback
	ComputationStatusCompleted ComputationStatus = "completed" // callback delivered a success payload
	ComputationStatusAborted   ComputationStatus = "aborted"   // fabric aborted the computation
)

// Terminal reports whether a status admits no further transition.
func (s ComputationStatus) Terminal() bool {
	return s == ComputationStatusCompleted || s == ComputationStatusAborted
}

// transform identifiers, matching the registered confidential instructions
const (
	TransformEncryptBridgeAmount       = "encrypt_bridge_amount"
	TransformEncryptBridgeAmountSealed = "encrypt_bridge_amount_sealed"
	TransformVerifyBridgeTransaction   = "verify_bridge_transaction"
	TransformCalculateSwapAmount       = "calculate_swap_amount"
	TransformEncryptBTCAddress         = "encrypt_btc_address"
	TransformVerifySufficientBalance   = "verify_sufficient_balance"
	TransformGenerateBridgeProof       = "generate_bridge_proof"
)

// ComputationRecord is the coordinator-owned lifecycle record for one queued
// confidential computation. Only content-safe fields are persisted: the
// commitment digest, chain tags, and base64 sealed blobs. Terminal records
// are retained for audit, never deleted.
type ComputationRecord struct {
	ID          string            `json:"id" gorm:"primaryKey;size:66"` // 0x + 64 hex chars
	TransformID string            `json:"transform_id" gorm:"not null;index"`
	Status      ComputationStatus `json:"status" gorm:"not null;index"`
	Commitment  string            `json:"commitment" gorm:"not null;size:66"`
	SourceChain string            `json:"source_chain" gorm:"size:32"`
	DestChain   string            `json:"dest_chain" gorm:"size:32"`
	ResultData  string            `json:"result_data" gorm:"type:text"` // sealed outputs, base64, JSON keyed by scope
	ErrorCode   string            `json:"error_code" gorm:"size:64"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at"`
}

// reserve asset enum, mirroring the on-chain bridge config
type ReserveAsset string

const (
	ReserveAssetBTC ReserveAsset = "BTC"
	ReserveAssetZEC ReserveAsset = "ZEC"
)

// BridgeConfig is the reserve ledger state: bounded mint capacity against a
// backing reserve, a pause flag, and per-tx limits.
type BridgeConfig struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	ReserveAsset ReserveAsset `json:"reserve_asset" gorm:"not null;size:8"`
	MaxMintPerTx uint64       `json:"max_mint_per_tx" gorm:"not null"`
	Paused       bool         `json:"paused" gorm:"not null;default:false"`
	TotalMinted  uint64       `json:"total_minted" gorm:"not null;default:0"`
	TotalBurned  uint64       `json:"total_burned" gorm:"not null;default:0"`
	BTCReserve   uint64       `json:"btc_reserve" gorm:"not null;default:0"`
	ZECReserve   uint64       `json:"zec_reserve" gorm:"not null;default:0"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
