package services

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"zenbridge-backend/internal/clients"
	"zenbridge-backend/internal/commitment"
	"zenbridge-backend/internal/confidential"
	"zenbridge-backend/internal/events"
	"zenbridge-backend/internal/metrics"
	"zenbridge-backend/internal/models"
	"zenbridge-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QueuedAck is the immediate response to a submission: never a result, only
// the computation ID and the public commitment digest.
type QueuedAck struct {
	ComputationID string `json:"computation_id"`
	Commitment    string `json:"commitment"`
	Status        string `json:"status"`
}

// CoordinatorService drives the lifecycle of confidential computations:
// Submitted -> Queued -> {Completed | Aborted}. It owns the computation
// records for their full lifetime; terminal records are retained for audit.
type CoordinatorService struct {
	repo      repository.ComputationRepository
	fabric    clients.ExecutionFabric
	publisher events.Publisher
	reserve   *ReserveService

	relayerLanes uint64

	// pendingMint holds, per queued mint-triggering computation, the numeric
	// amount that will be passed to the reserve ledger on completion. Only
	// the amount crosses to the ledger, nothing else.
	mu          sync.Mutex
	pendingMint map[string]uint64
}

// NewCoordinatorService creates the lifecycle coordinator.
func NewCoordinatorService(
	repo repository.ComputationRepository,
	fabric clients.ExecutionFabric,
	publisher events.Publisher,
	reserve *ReserveService,
	relayerLanes uint64,
) *CoordinatorService {
	if relayerLanes == 0 {
		relayerLanes = 8
	}
	return &CoordinatorService{
		repo:         repo,
		fabric:       fabric,
		publisher:    publisher,
		reserve:      reserve,
		relayerLanes: relayerLanes,
		pendingMint:  make(map[string]uint64),
	}
}

// SubmitEncryptBridgeAmount queues the core privacy transform for one bridge
// transfer. On completion the numeric amount is handed to the reserve ledger
// to authorize the wrapped mint.
func (s *CoordinatorService) SubmitEncryptBridgeAmount(ctx context.Context, in *confidential.BridgeAmount, ownerKey confidential.RecipientKey) (*QueuedAck, error) {
	if err := in.Validate(); err != nil {
		metrics.ValidationFailures.WithLabelValues(models.TransformEncryptBridgeAmount, err.Error()).Inc()
		return nil, err
	}

	digest := commitment.CommitBridgeAmount(in.Amount, in.SourceChain, in.DestChain, in.UserKey)
	args := &clients.TransformArgs{BridgeAmount: in, OwnerKey: ownerKey}

	return s.queue(ctx, models.TransformEncryptBridgeAmount, digest, in.SourceChain, in.DestChain, args, in.Amount, 0)
}

// SubmitEncryptBridgeAmountSealed queues the multi-recipient fan-out variant.
// A relayer lane is drawn from the fabric's randomness so off-chain relayers
// can shard work without learning anything about the transfer.
func (s *CoordinatorService) SubmitEncryptBridgeAmountSealed(ctx context.Context, in *confidential.BridgeAmount, ownerKey, relayerKey, complianceKey confidential.RecipientKey) (*QueuedAck, error) {
	if err := in.Validate(); err != nil {
		metrics.ValidationFailures.WithLabelValues(models.TransformEncryptBridgeAmountSealed, err.Error()).Inc()
		return nil, err
	}

	lane, err := s.fabric.Random(s.relayerLanes)
	if err != nil {
		return nil, fmt.Errorf("failed to draw relayer lane: %w", err)
	}

	digest := commitment.CommitBridgeAmount(in.Amount, in.SourceChain, in.DestChain, in.UserKey)
	args := &clients.TransformArgs{
		BridgeAmount:  in,
		OwnerKey:      ownerKey,
		RelayerKey:    &relayerKey,
		ComplianceKey: &complianceKey,
	}

	return s.queue(ctx, models.TransformEncryptBridgeAmountSealed, digest, in.SourceChain, in.DestChain, args, in.Amount, lane)
}

// SubmitVerifyBridgeTransaction queues a private tx-hash verification.
func (s *CoordinatorService) SubmitVerifyBridgeTransaction(ctx context.Context, in *confidential.BridgeVerification, ownerKey confidential.RecipientKey) (*QueuedAck, error) {
	if err := in.Validate(); err != nil {
		metrics.ValidationFailures.WithLabelValues(models.TransformVerifyBridgeTransaction, err.Error()).Inc()
		return nil, err
	}

	digest := commitment.CommitVerification(in.TxHash, in.ExpectedAmount, in.Blockchain, in.Timestamp)
	args := &clients.TransformArgs{Verification: in, OwnerKey: ownerKey}

	return s.queue(ctx, models.TransformVerifyBridgeTransaction, digest, in.Blockchain, "", args, 0, 0)
}

// SubmitCalculateSwapAmount queues a private rate conversion.
func (s *CoordinatorService) SubmitCalculateSwapAmount(ctx context.Context, in *confidential.SwapCalculation, ownerKey confidential.RecipientKey) (*QueuedAck, error) {
	if err := in.Validate(); err != nil {
		metrics.ValidationFailures.WithLabelValues(models.TransformCalculateSwapAmount, err.Error()).Inc()
		return nil, err
	}

	digest := commitment.CommitSwap(in.SourceAmount, in.ExchangeRate, in.SlippageTolerance)
	args := &clients.TransformArgs{Swap: in, OwnerKey: ownerKey}

	return s.queue(ctx, models.TransformCalculateSwapAmount, digest, "", "", args, 0, 0)
}

// SubmitEncryptBTCAddress queues withdrawal-address sealing. Only the
// address digest ever reaches public state.
func (s *CoordinatorService) SubmitEncryptBTCAddress(ctx context.Context, in *confidential.BTCAddress, ownerKey confidential.RecipientKey) (*QueuedAck, error) {
	if err := in.Validate(); err != nil {
		metrics.ValidationFailures.WithLabelValues(models.TransformEncryptBTCAddress, err.Error()).Inc()
		return nil, err
	}

	digest := commitment.CommitBTCAddress(in.Address, in.RecipientKey, in.Timestamp)
	args := &clients.TransformArgs{BTCAddress: in, OwnerKey: ownerKey}

	return s.queue(ctx, models.TransformEncryptBTCAddress, digest, "", "", args, 0, 0)
}

// SubmitVerifySufficientBalance queues a private balance-sufficiency check.
func (s *CoordinatorService) SubmitVerifySufficientBalance(ctx context.Context, userKey [32]byte, required uint64, ownerKey confidential.RecipientKey) (*QueuedAck, error) {
	if required == 0 {
		metrics.ValidationFailures.WithLabelValues(models.TransformVerifySufficientBalance, confidential.ErrInvalidAmount.Error()).Inc()
		return nil, confidential.ErrInvalidAmount
	}

	var packed [40]byte
	copy(packed[:32], userKey[:])
	binary.LittleEndian.PutUint64(packed[32:], required)
	digest := commitment.CommitBytes(packed[:])

	args := &clients.TransformArgs{
		BalanceCheck: &clients.BalanceCheckArgs{UserKey: userKey, Required: required},
		OwnerKey:     ownerKey,
	}

	return s.queue(ctx, models.TransformVerifySufficientBalance, digest, "", "", args, 0, 0)
}

// SubmitGenerateBridgeProof queues auditable proof generation.
func (s *CoordinatorService) SubmitGenerateBridgeProof(ctx context.Context, in *confidential.BridgeAmount, ownerKey confidential.RecipientKey) (*QueuedAck, error) {
	if err := in.Validate(); err != nil {
		metrics.ValidationFailures.WithLabelValues(models.TransformGenerateBridgeProof, err.Error()).Inc()
		return nil, err
	}

	digest := commitment.CommitBridgeAmount(in.Amount, in.SourceChain, in.DestChain, in.UserKey)
	args := &clients.TransformArgs{BridgeAmount: in, OwnerKey: ownerKey}

	return s.queue(ctx, models.TransformGenerateBridgeProof, digest, in.SourceChain, in.DestChain, args, 0, 0)
}

// queue reserves the computation ID, persists the queued record, registers
// the single callback binding, and hands the work to the fabric. Validation
// has already happened; from here on the only failure surface is
// infrastructure.
func (s *CoordinatorService) queue(ctx context.Context, transformID string, digest commitment.Digest, sourceChain, destChain string, args *clients.TransformArgs, mintAmount, relayerLane uint64) (*QueuedAck, error) {
	id, err := confidential.NewComputationID()
	if err != nil {
		return nil, err
	}

	record := &models.ComputationRecord{
		ID:          id.Hex(),
		TransformID: transformID,
		Status:      models.ComputationStatusQueued,
		Commitment:  digest.Hex(),
		SourceChain: sourceChain,
		DestChain:   destChain,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create computation record: %w", err)
	}

	if mintAmount > 0 {
		s.mu.Lock()
		s.pendingMint[record.ID] = mintAmount
		s.mu.Unlock()
	}

	if err := s.fabric.Queue(ctx, transformID, id, args, s.onCallback); err != nil {
		// No callback will ever arrive for this record; finalize it now so it
		// cannot linger as queued and no mint stays pending for it.
		log.Printf("[Coordinator] failed to queue computation %s: %v", record.ID, err)
		s.mu.Lock()
		delete(s.pendingMint, record.ID)
		s.mu.Unlock()

		now := time.Now()
		record.Status = models.ComputationStatusAborted
		record.ErrorCode = "queue_failed"
		record.UpdatedAt = now
		record.CompletedAt = &now
		if updateErr := s.repo.Update(ctx, record); updateErr != nil {
			log.Printf("[Coordinator] failed to finalize unqueued computation %s: %v", record.ID, updateErr)
		}
		metrics.ComputationsAborted.WithLabelValues(transformID).Inc()
		s.publishTerminal(events.EventComputationAborted, record, record.ErrorCode)
		return nil, fmt.Errorf("failed to queue computation: %w", err)
	}

	metrics.ComputationsQueued.WithLabelValues(transformID).Inc()
	if err := s.publisher.PublishLifecycle(&events.LifecycleEvent{
		EventType:     events.EventComputationQueued,
		ComputationID: record.ID,
		TransformID:   transformID,
		Commitment:    record.Commitment,
		SourceChain:   sourceChain,
		DestChain:     destChain,
		RelayerLane:   relayerLane,
	}); err != nil {
		logrus.WithFields(logrus.Fields{
			"computation_id": record.ID,
			"event":          events.EventComputationQueued,
		}).WithError(err).Warn("failed to publish lifecycle event")
	}

	return &QueuedAck{
		ComputationID: record.ID,
		Commitment:    record.Commitment,
		Status:        string(models.ComputationStatusQueued),
	}, nil
}

// onCallback adapts HandleCallback to the fabric's callback signature. An
// abort surfaces as ErrAbortedComputation after the record has been
// finalized, so it is reported as a processed transition, not a rejection.
func (s *CoordinatorService) onCallback(id confidential.ComputationID, result *clients.ComputationResult) {
	err := s.HandleCallback(context.Background(), id, result)
	switch {
	case err == nil:
	case errors.Is(err, ErrAbortedComputation):
		logrus.WithFields(logrus.Fields{
			"computation_id": id.Hex(),
			"reason":         result.Reason,
		}).Info("computation aborted by fabric")
	default:
		logrus.WithFields(logrus.Fields{
			"computation_id": id.Hex(),
		}).WithError(err).Warn("callback rejected")
	}
}

// HandleCallback applies exactly one terminal transition per computation ID.
// The first callback wins; any later one is rejected and the record is left
// untouched.
func (s *CoordinatorService) HandleCallback(ctx context.Context, id confidential.ComputationID, result *clients.ComputationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.repo.GetByID(ctx, id.Hex())
	if err != nil {
		metrics.CallbacksRejected.WithLabelValues("unknown_id").Inc()
		if err == gorm.ErrRecordNotFound {
			return ErrUnknownComputation
		}
		return fmt.Errorf("failed to load computation record: %w", err)
	}

	if record.Status.Terminal() {
		metrics.CallbacksRejected.WithLabelValues("duplicate").Inc()
		return ErrDuplicateCallback
	}

	now := time.Now()

	if result.Aborted {
		record.Status = models.ComputationStatusAborted
		record.ErrorCode = result.Reason
		record.UpdatedAt = now
		record.CompletedAt = &now
		if err := s.repo.Update(ctx, record); err != nil {
			return fmt.Errorf("failed to persist aborted record: %w", err)
		}
		delete(s.pendingMint, record.ID)

		metrics.ComputationsAborted.WithLabelValues(record.TransformID).Inc()
		metrics.ComputationDuration.WithLabelValues(record.TransformID).Observe(now.Sub(record.CreatedAt).Seconds())
		s.publishTerminal(events.EventComputationAborted, record, result.Reason)
		return ErrAbortedComputation
	}

	resultData, err := encodeSealedOutputs(result.Outputs)
	if err != nil {
		return err
	}

	record.Status = models.ComputationStatusCompleted
	record.ResultData = resultData
	record.UpdatedAt = now
	record.CompletedAt = &now
	if err := s.repo.Update(ctx, record); err != nil {
		return fmt.Errorf("failed to persist completed record: %w", err)
	}

	if amount, ok := s.pendingMint[record.ID]; ok {
		delete(s.pendingMint, record.ID)
		if s.reserve != nil {
			if mintErr := s.reserve.Mint(amount); mintErr != nil {
				logrus.WithFields(logrus.Fields{
					"computation_id": record.ID,
				}).WithError(mintErr).Warn("reserve ledger rejected mint")
			}
		}
	}

	metrics.ComputationsCompleted.WithLabelValues(record.TransformID).Inc()
	metrics.ComputationDuration.WithLabelValues(record.TransformID).Observe(now.Sub(record.CreatedAt).Seconds())
	s.publishTerminal(events.EventComputationCompleted, record, "")
	return nil
}

// GetComputation returns the content-safe record for a computation ID.
func (s *CoordinatorService) GetComputation(ctx context.Context, idHex string) (*models.ComputationRecord, error) {
	if _, err := confidential.ParseComputationID(idHex); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, idHex)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUnknownComputation
		}
		return nil, err
	}
	return record, nil
}

func (s *CoordinatorService) publishTerminal(eventType string, record *models.ComputationRecord, reason string) {
	if err := s.publisher.PublishLifecycle(&events.LifecycleEvent{
		EventType:     eventType,
		ComputationID: record.ID,
		TransformID:   record.TransformID,
		Commitment:    record.Commitment,
		SourceChain:   record.SourceChain,
		DestChain:     record.DestChain,
		Reason:        reason,
	}); err != nil {
		logrus.WithFields(logrus.Fields{
			"computation_id": record.ID,
			"event":          eventType,
		}).WithError(err).Warn("failed to publish lifecycle event")
	}
}

// encodeSealedOutputs stores sealed blobs as base64 keyed by scope. Sealed
// ciphertext is safe to persist; plaintext never reaches this function.
func encodeSealedOutputs(outputs map[string]confidential.Sealed) (string, error) {
	encoded := make(map[string]string, len(outputs))
	for scope, blob := range outputs {
		encoded[scope] = base64.StdEncoding.EncodeToString(blob)
	}
	data, err := json.Marshal(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to encode sealed outputs: %w", err)
	}
	return string(data), nil
}
