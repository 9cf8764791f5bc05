package clients

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"sync"

	"zenbridge-backend/internal/confidential"
	"zenbridge-backend/internal/models"
)

// Sealed output scopes, keyed into ComputationResult.Outputs.
const (
	ScopeOwner      = "owner"
	ScopeRelayer    = "relayer"
	ScopeCompliance = "compliance"
)

// TransformArgs carries the already-validated input for one queued
// confidential computation. Exactly one input field is set, matching the
// transform ID.
type TransformArgs struct {
	BridgeAmount *confidential.BridgeAmount
	Verification *confidential.BridgeVerification
	Swap         *confidential.SwapCalculation
	BTCAddress   *confidential.BTCAddress
	BalanceCheck *BalanceCheckArgs

	OwnerKey      confidential.RecipientKey
	RelayerKey    *confidential.RecipientKey
	ComplianceKey *confidential.RecipientKey
}

// BalanceCheckArgs names the account whose balance is checked. The balance
// itself lives inside the boundary and is resolved by the fabric's oracle.
type BalanceCheckArgs struct {
	UserKey  [32]byte
	Required uint64
}

// ComputationResult is the callback payload: either sealed outputs keyed by
// scope, or an abort with a non-sensitive reason code.
type ComputationResult struct {
	Aborted bool
	Reason  string
	Outputs map[string]confidential.Sealed
}

// CallbackFunc receives exactly one result per computation ID.
type CallbackFunc func(id confidential.ComputationID, result *ComputationResult)

// ExecutionFabric is the capability interface over the confidential-compute
// fabric. The coordinator queues work through it and never observes
// intermediate state; tests substitute a deterministic fake.
type ExecutionFabric interface {
	Queue(ctx context.Context, transformID string, id confidential.ComputationID, args *TransformArgs, callback CallbackFunc) error

	// Random draws from the fabric's distributed randomness in [0, max).
	Random(max uint64) (uint64, error)
}

// LocalFabric executes the registered transforms in-process. It stands in for
// the remote MPC cluster in single-node deployments and in integration tests;
// the confidentiality boundary is the process.
type LocalFabric struct {
	// GroundTruth privately resolves the reference amount bytes for a
	// transaction hash on a chain. Required for verify_bridge_transaction.
	GroundTruth func(txHash, blockchain string) []byte

	// BalanceOracle resolves a user's boundary-held balance. Required for
	// verify_sufficient_balance.
	BalanceOracle func(userKey [32]byte) uint64

	wg sync.WaitGroup
}

// NewLocalFabric creates an in-process fabric with the given oracles.
func NewLocalFabric(groundTruth func(txHash, blockchain string) []byte, balanceOracle func(userKey [32]byte) uint64) *LocalFabric {
	return &LocalFabric{
		GroundTruth:   groundTruth,
		BalanceOracle: balanceOracle,
	}
}

// Queue runs the transform asynchronously and delivers exactly one callback.
func (f *LocalFabric) Queue(ctx context.Context, transformID string, id confidential.ComputationID, args *TransformArgs, callback CallbackFunc) error {
	if callback == nil {
		return fmt.Errorf("callback binding is required")
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		result := f.execute(transformID, id, args)
		callback(id, result)
	}()

	return nil
}

// Random draws relayer-selection randomness from the process CSPRNG.
func (f *LocalFabric) Random(max uint64) (uint64, error) {
	return confidential.GenerateRelayerRandom(max, rand.Reader)
}

// Wait blocks until all queued computations have delivered their callbacks.
// Used on shutdown.
func (f *LocalFabric) Wait() {
	f.wg.Wait()
}

func (f *LocalFabric) execute(transformID string, id confidential.ComputationID, args *TransformArgs) *ComputationResult {
	outputs := make(map[string]confidential.Sealed)
	var err error

	switch transformID {
	case models.TransformEncryptBridgeAmount:
		var sealed confidential.Sealed
		sealed, err = confidential.EncryptBridgeAmount(id, args.BridgeAmount, args.OwnerKey)
		if err == nil {
			outputs[ScopeOwner] = sealed
		}

	case models.TransformEncryptBridgeAmountSealed:
		if args.RelayerKey == nil || args.ComplianceKey == nil {
			err = fmt.Errorf("sealed fan-out requires relayer and compliance keys")
			break
		}
		var fanOut *confidential.FanOut
		fanOut, err = confidential.EncryptBridgeAmountSealed(id, args.BridgeAmount, args.OwnerKey, *args.RelayerKey, *args.ComplianceKey)
		if err == nil {
			outputs[ScopeOwner] = fanOut.Owner
			outputs[ScopeRelayer] = fanOut.Relayer
			outputs[ScopeCompliance] = fanOut.Compliance
		}

	case models.TransformVerifyBridgeTransaction:
		if f.GroundTruth == nil {
			err = fmt.Errorf("ground truth oracle not configured")
			break
		}
		truth := f.GroundTruth(args.Verification.TxHash, args.Verification.Blockchain)
		var sealed confidential.Sealed
		sealed, err = confidential.VerifyBridgeTransaction(args.Verification, truth, args.OwnerKey)
		if err == nil {
			outputs[ScopeOwner] = sealed
		}

	case models.TransformCalculateSwapAmount:
		var sealed confidential.Sealed
		sealed, err = confidential.CalculateSwapAmount(args.Swap, args.OwnerKey)
		if err == nil {
			outputs[ScopeOwner] = sealed
		}

	case models.TransformEncryptBTCAddress:
		var sealed confidential.Sealed
		sealed, err = confidential.EncryptBTCAddress(args.BTCAddress, args.OwnerKey)
		if err == nil {
			outputs[ScopeOwner] = sealed
		}

	case models.TransformVerifySufficientBalance:
		if f.BalanceOracle == nil {
			err = fmt.Errorf("balance oracle not configured")
			break
		}
		balance := f.BalanceOracle(args.BalanceCheck.UserKey)
		var sealed confidential.Sealed
		sealed, err = confidential.VerifySufficientBalance(balance, args.BalanceCheck.Required, args.OwnerKey)
		if err == nil {
			outputs[ScopeOwner] = sealed
		}

	case models.TransformGenerateBridgeProof:
		var sealed confidential.Sealed
		sealed, err = confidential.GenerateBridgeProof(id, args.BridgeAmount, args.OwnerKey)
		if err == nil {
			outputs[ScopeOwner] = sealed
		}

	default:
		err = fmt.Errorf("unknown transform: %s", transformID)
	}

	if err != nil {
		// The abort reason is the typed condition only; input values never
		// reach the callback payload.
		log.Printf("[LocalFabric] computation %s aborted: %v", id.Hex(), err)
		return &ComputationResult{Aborted: true, Reason: err.Error()}
	}

	return &ComputationResult{Outputs: outputs}
}
