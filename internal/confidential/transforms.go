package confidential

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"zenbridge-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// The transforms in this file are the only code that sees bridge plaintext.
// They run inside the confidential-compute boundary; everything they emit is
// sealed to exactly one capability scope. A validation failure terminates the
// transform before any output is sealed.

// Priority banding thresholds for relayer tasks.
const (
	priorityHighThreshold     = 1_000_000
	priorityStandardThreshold = 100_000
)

// Amount category boundaries (half-open, lower bound inclusive).
const (
	categoryMediumFloor = 10_000
	categoryLargeFloor  = 100_000
	categoryXLargeFloor = 1_000_000
)

// Risk scoring thresholds.
const (
	amountRiskMediumThreshold = 50_000
	amountRiskHighThreshold   = 500_000
)

// LowRiskChain is the designated low-risk chain tag for compliance scoring.
const LowRiskChain = "BTC"

// DefaultRelayerTimeout bounds how long a relayer may sit on a task.
const DefaultRelayerTimeout uint64 = 3600

// RelayerTaskTypeBridge is the single task type emitted by the sealed fan-out.
const RelayerTaskTypeBridge = "bridge_transfer"

// EncryptBridgeAmount produces the owner-sealed transaction record for one
// bridge transfer. The computation ID is minted by the coordinator once per
// invocation and stamped into the output for correlation.
func EncryptBridgeAmount(id ComputationID, in *BridgeAmount, ownerKey RecipientKey) (Sealed, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var amountBytes [8]byte
	binary.LittleEndian.PutUint64(amountBytes[:], in.Amount)

	tx := EncryptedBridgeTx{
		EncryptedAmount: amountBytes[:],
		SourceChain:     in.SourceChain,
		DestChain:       in.DestChain,
		ComputationID:   id.Hex(),
		PrivacyLevel:    PrivacyLevelMaximum,
	}
	return sealJSON(ownerKey, &tx)
}

// EncryptBridgeAmountSealed fans one confidential input out to three
// differently-shaped sealed views sharing one computation ID. The relayer
// view carries no user identity and no amount; the compliance view carries a
// hashed identity and coarse bandings only.
func EncryptBridgeAmountSealed(id ComputationID, in *BridgeAmount, ownerKey, relayerKey, complianceKey RecipientKey) (*FanOut, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	owner, err := EncryptBridgeAmount(id, in, ownerKey)
	if err != nil {
		return nil, err
	}

	taskID, err := NewComputationID()
	if err != nil {
		return nil, err
	}
	task := RelayerTask{
		TaskID:         taskID.Hex(),
		TaskType:       RelayerTaskTypeBridge,
		Priority:       PriorityTier(in.Amount),
		RoutingHint:    in.SourceChain + "->" + in.DestChain,
		CallbackRef:    fmt.Sprintf("bridge.%s.Relayer.TaskCallback", in.DestChain),
		TimeoutSeconds: DefaultRelayerTimeout,
		ComputationID:  id.Hex(),
	}
	relayer, err := sealJSON(relayerKey, &task)
	if err != nil {
		return nil, err
	}

	risk := RiskLevel(in.Amount, in.SourceChain)
	flags := []string{"confidential_bridge"}
	if risk == "high" {
		flags = append(flags, "enhanced_review")
	}
	audit := ComplianceAudit{
		TxRef:          id.Hex(),
		HashedUserID:   HashUserIdentity(in.UserKey),
		AmountCategory: AmountCategory(in.Amount),
		RiskLevel:      risk,
		Flags:          flags,
		Blockchain:     in.SourceChain,
		Timestamp:      in.Timestamp,
		ComputationID:  id.Hex(),
	}
	compliance, err := sealJSON(complianceKey, &audit)
	if err != nil {
		return nil, err
	}

	return &FanOut{
		ComputationID: id,
		Owner:         owner,
		Relayer:       relayer,
		Compliance:    compliance,
	}, nil
}

// VerifyBridgeTransaction compares the expected-amount data against ground
// truth fetched inside the boundary, in constant time, and seals the verdict.
// Neither operand leaves the transform.
func VerifyBridgeTransaction(in *BridgeVerification, groundTruth []byte, ownerKey RecipientKey) (Sealed, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	verified := len(groundTruth) == len(in.ExpectedAmount) &&
		subtle.ConstantTimeCompare(in.ExpectedAmount, groundTruth) == 1

	return sealBool(ownerKey, verified)
}

// CalculateSwapAmount extracts the confidential source amount, applies the
// exchange rate and slippage haircut with overflow-checked intermediates:
// floor(amount * rate * (100 - slippage) / 100).
func CalculateSwapAmount(in *SwapCalculation, ownerKey RecipientKey) (Sealed, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	amount := binary.LittleEndian.Uint64(in.SourceAmount[:8])

	base, err := utils.CheckedMulU64(amount, in.ExchangeRate)
	if err != nil {
		return nil, ErrOverflow
	}
	scaled, err := utils.CheckedMulU64(base, 100-in.SlippageTolerance)
	if err != nil {
		return nil, ErrOverflow
	}
	result := scaled / 100

	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], result)
	return SealTo(ownerKey, out[:])
}

// EncryptBTCAddress seals a withdrawal address so relayers never see it.
func EncryptBTCAddress(in *BTCAddress, ownerKey RecipientKey) (Sealed, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return SealTo(ownerKey, []byte(in.Address))
}

// GenerateRelayerRandom draws an unbiased-by-source value in [0, max) from
// the boundary's entropy reader. A deterministic or locally-seeded substitute
// is not acceptable here; callers inject the fabric's entropy source.
func GenerateRelayerRandom(max uint64, entropy io.Reader) (uint64, error) {
	if max == 0 {
		return 0, ErrInvalidRandomBound
	}
	var buf [8]byte
	if _, err := io.ReadFull(entropy, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return binary.LittleEndian.Uint64(buf[:]) % max, nil
}

// VerifySufficientBalance compares a balance against a required amount and
// seals the verdict to the requester. The balance itself stays under the
// boundary's own scope and never appears in the output.
func VerifySufficientBalance(balance, required uint64, requesterKey RecipientKey) (Sealed, error) {
	return sealBool(requesterKey, balance >= required)
}

// GenerateBridgeProof builds the canonical auditable proof blob:
// amount LE || source chain || dest chain || timestamp LE || protocol tag ||
// computation ID, sealed to the owner.
func GenerateBridgeProof(id ComputationID, in *BridgeAmount, ownerKey RecipientKey) (Sealed, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	proof := make([]byte, 0, 8+len(in.SourceChain)+len(in.DestChain)+8+len(ProtocolTag)+32)

	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], in.Amount)
	proof = append(proof, scratch[:]...)
	proof = append(proof, in.SourceChain...)
	proof = append(proof, in.DestChain...)
	binary.LittleEndian.PutUint64(scratch[:], in.Timestamp)
	proof = append(proof, scratch[:]...)
	proof = append(proof, ProtocolTag...)
	proof = append(proof, id[:]...)

	return SealTo(ownerKey, proof)
}

// PriorityTier bands an amount into the relayer priority tiers.
func PriorityTier(amount uint64) string {
	switch {
	case amount > priorityHighThreshold:
		return "high"
	case amount > priorityStandardThreshold:
		return "standard"
	default:
		return "low"
	}
}

// AmountCategory buckets an amount for compliance, half-open with inclusive
// lower bounds.
func AmountCategory(amount uint64) string {
	switch {
	case amount < categoryMediumFloor:
		return "small"
	case amount < categoryLargeFloor:
		return "medium"
	case amount < categoryXLargeFloor:
		return "large"
	default:
		return "xlarge"
	}
}

// RiskLevel combines amount risk and chain risk into an additive score:
// 1-2 low, 3-4 medium, 5+ high.
func RiskLevel(amount uint64, sourceChain string) string {
	score := amountRisk(amount) + chainRisk(sourceChain)
	switch {
	case score <= 2:
		return "low"
	case score <= 4:
		return "medium"
	default:
		return "high"
	}
}

func amountRisk(amount uint64) int {
	switch {
	case amount < amountRiskMediumThreshold:
		return 1
	case amount < amountRiskHighThreshold:
		return 2
	default:
		return 3
	}
}

func chainRisk(chain string) int {
	if chain == LowRiskChain {
		return 1
	}
	return 2
}

// HashUserIdentity derives the non-reversible compliance identity tag.
func HashUserIdentity(userKey [32]byte) string {
	return "0x" + common.Bytes2Hex(crypto.Keccak256(userKey[:]))
}

func sealJSON(key RecipientKey, v interface{}) (Sealed, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealFailed, err)
	}
	return SealTo(key, data)
}

func sealBool(key RecipientKey, b bool) (Sealed, error) {
	out := []byte{0x00}
	if b {
		out[0] = 0x01
	}
	return SealTo(key, out)
}

