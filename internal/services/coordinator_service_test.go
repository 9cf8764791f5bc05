package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"zenbridge-backend/internal/clients"
	"zenbridge-backend/internal/confidential"
	"zenbridge-backend/internal/events"
	"zenbridge-backend/internal/models"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory ComputationRepository.
type fakeRepo struct {
	mu      sync.Mutex
	records map[string]models.ComputationRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]models.ComputationRecord)}
}

func (r *fakeRepo) Create(_ context.Context, record *models.ComputationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = *record
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*models.ComputationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := record
	return &copied, nil
}

func (r *fakeRepo) Update(_ context.Context, record *models.ComputationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = *record
	return nil
}

func (r *fakeRepo) FindByStatus(_ context.Context, status models.ComputationStatus) ([]*models.ComputationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ComputationRecord
	for id := range r.records {
		record := r.records[id]
		if record.Status == status {
			out = append(out, &record)
		}
	}
	return out, nil
}

func (r *fakeRepo) List(_ context.Context, _, _ int) ([]*models.ComputationRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ComputationRecord
	for id := range r.records {
		record := r.records[id]
		out = append(out, &record)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// fakeFabric records queued work and leaves callback delivery to the test.
type fakeFabric struct {
	mu     sync.Mutex
	queued []string
}

func (f *fakeFabric) Queue(_ context.Context, transformID string, _ confidential.ComputationID, _ *clients.TransformArgs, callback clients.CallbackFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, transformID)
	return nil
}

func (f *fakeFabric) Random(max uint64) (uint64, error) {
	return max / 2, nil
}

// failingFabric rejects every queue attempt.
type failingFabric struct{}

func (failingFabric) Queue(_ context.Context, _ string, _ confidential.ComputationID, _ *clients.TransformArgs, _ clients.CallbackFunc) error {
	return errors.New("fabric unavailable")
}

func (failingFabric) Random(max uint64) (uint64, error) { return max / 2, nil }

func newTestCoordinator(t *testing.T, reserve *ReserveService) (*CoordinatorService, *fakeRepo, *fakeFabric) {
	t.Helper()
	repo := newFakeRepo()
	fabric := &fakeFabric{}
	svc := NewCoordinatorService(repo, fabric, events.NoopPublisher{}, reserve, 8)
	return svc, repo, fabric
}

func testInput(amount uint64) *confidential.BridgeAmount {
	var userKey [32]byte
	userKey[0] = 0x01
	return &confidential.BridgeAmount{
		Amount:      amount,
		SourceChain: "btc",
		DestChain:   "solana",
		Timestamp:   1700000000,
		UserKey:     userKey,
	}
}

func ownerKey(t *testing.T) confidential.RecipientKey {
	t.Helper()
	pub, _, err := confidential.GenerateRecipientKey()
	require.NoError(t, err)
	return pub
}

func successResult() *clients.ComputationResult {
	return &clients.ComputationResult{
		Outputs: map[string]confidential.Sealed{
			clients.ScopeOwner: confidential.Sealed("sealed-bytes"),
		},
	}
}

func TestSubmitQueuesRecordWithCommitment(t *testing.T) {
	svc, repo, fabric := newTestCoordinator(t, nil)

	ack, err := svc.SubmitEncryptBridgeAmount(context.Background(), testInput(5000), ownerKey(t))
	require.NoError(t, err)
	require.NotEmpty(t, ack.ComputationID)
	require.NotEmpty(t, ack.Commitment)
	require.Equal(t, "queued", ack.Status)

	record, err := repo.GetByID(context.Background(), ack.ComputationID)
	require.NoError(t, err)
	require.Equal(t, models.ComputationStatusQueued, record.Status)
	require.Equal(t, ack.Commitment, record.Commitment)
	require.Equal(t, "BTC", record.SourceChain)
	require.Equal(t, []string{models.TransformEncryptBridgeAmount}, fabric.queued)
}

func TestSubmitValidationFailureCreatesNoRecord(t *testing.T) {
	svc, repo, fabric := newTestCoordinator(t, nil)

	_, err := svc.SubmitEncryptBridgeAmount(context.Background(), testInput(0), ownerKey(t))
	require.ErrorIs(t, err, confidential.ErrInvalidAmount)
	require.Zero(t, repo.count())
	require.Empty(t, fabric.queued)

	_, err = svc.SubmitCalculateSwapAmount(context.Background(), &confidential.SwapCalculation{
		SourceAmount:      make([]byte, 8),
		ExchangeRate:      5,
		SlippageTolerance: 51,
	}, ownerKey(t))
	require.ErrorIs(t, err, confidential.ErrExcessiveSlippage)
	require.Zero(t, repo.count())
}

func TestCallbackCompletesComputation(t *testing.T) {
	svc, repo, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	ack, err := svc.SubmitEncryptBridgeAmount(ctx, testInput(5000), ownerKey(t))
	require.NoError(t, err)

	id, err := confidential.ParseComputationID(ack.ComputationID)
	require.NoError(t, err)

	require.NoError(t, svc.HandleCallback(ctx, id, successResult()))

	record, err := repo.GetByID(ctx, ack.ComputationID)
	require.NoError(t, err)
	require.Equal(t, models.ComputationStatusCompleted, record.Status)
	require.Contains(t, record.ResultData, "owner")
	require.NotNil(t, record.CompletedAt)
}

func TestDuplicateCallbackRejectedAndRecordUnchanged(t *testing.T) {
	svc, repo, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	ack, err := svc.SubmitEncryptBridgeAmount(ctx, testInput(5000), ownerKey(t))
	require.NoError(t, err)
	id, err := confidential.ParseComputationID(ack.ComputationID)
	require.NoError(t, err)

	require.NoError(t, svc.HandleCallback(ctx, id, successResult()))
	first, err := repo.GetByID(ctx, ack.ComputationID)
	require.NoError(t, err)

	// A second callback, even an abort, must be rejected without mutation.
	err = svc.HandleCallback(ctx, id, &clients.ComputationResult{Aborted: true, Reason: "late abort"})
	require.ErrorIs(t, err, ErrDuplicateCallback)

	second, err := repo.GetByID(ctx, ack.ComputationID)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAbortedCallback(t *testing.T) {
	reserve, err := NewReserveService(nil, events.NoopPublisher{}, models.ReserveAssetBTC, 1_000_000, 10_000_000, 0)
	require.NoError(t, err)
	svc, repo, _ := newTestCoordinator(t, reserve)
	ctx := context.Background()

	ack, err := svc.SubmitEncryptBridgeAmount(ctx, testInput(5000), ownerKey(t))
	require.NoError(t, err)
	id, err := confidential.ParseComputationID(ack.ComputationID)
	require.NoError(t, err)

	err = svc.HandleCallback(ctx, id, &clients.ComputationResult{Aborted: true, Reason: "cluster failure"})
	require.ErrorIs(t, err, ErrAbortedComputation)

	record, err := repo.GetByID(ctx, ack.ComputationID)
	require.NoError(t, err)
	require.Equal(t, models.ComputationStatusAborted, record.Status)
	require.Equal(t, "cluster failure", record.ErrorCode)
	require.Empty(t, record.ResultData)

	// No mint happened for the aborted computation.
	require.Zero(t, reserve.Snapshot().TotalMinted)
}

func TestCallbackForUnknownIDRejected(t *testing.T) {
	svc, _, _ := newTestCoordinator(t, nil)

	id, err := confidential.NewComputationID()
	require.NoError(t, err)

	err = svc.HandleCallback(context.Background(), id, successResult())
	require.ErrorIs(t, err, ErrUnknownComputation)
}

func TestCompletionAuthorizesMint(t *testing.T) {
	reserve, err := NewReserveService(nil, events.NoopPublisher{}, models.ReserveAssetBTC, 1_000_000, 10_000_000, 0)
	require.NoError(t, err)
	svc, _, _ := newTestCoordinator(t, reserve)
	ctx := context.Background()

	ack, err := svc.SubmitEncryptBridgeAmount(ctx, testInput(5000), ownerKey(t))
	require.NoError(t, err)
	id, err := confidential.ParseComputationID(ack.ComputationID)
	require.NoError(t, err)

	require.NoError(t, svc.HandleCallback(ctx, id, successResult()))
	require.Equal(t, uint64(5000), reserve.Snapshot().TotalMinted)
}

func TestSwapCommitmentBindsRateAndSlippage(t *testing.T) {
	svc, _, _ := newTestCoordinator(t, nil)
	ctx := context.Background()
	source := []byte{0x10, 0x27, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

	first, err := svc.SubmitCalculateSwapAmount(ctx, &confidential.SwapCalculation{
		SourceAmount:      source,
		ExchangeRate:      5,
		SlippageTolerance: 10,
	}, ownerKey(t))
	require.NoError(t, err)

	// Same ciphertext, different terms: the public commitment must differ.
	second, err := svc.SubmitCalculateSwapAmount(ctx, &confidential.SwapCalculation{
		SourceAmount:      source,
		ExchangeRate:      500,
		SlippageTolerance: 50,
	}, ownerKey(t))
	require.NoError(t, err)

	require.NotEqual(t, first.Commitment, second.Commitment)
}

func TestAddressCommitmentBindsRecipientKey(t *testing.T) {
	svc, _, _ := newTestCoordinator(t, nil)
	ctx := context.Background()
	address := "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"

	first, err := svc.SubmitEncryptBTCAddress(ctx, &confidential.BTCAddress{
		Address:      address,
		RecipientKey: [32]byte{0x11},
		Timestamp:    1700000000,
	}, ownerKey(t))
	require.NoError(t, err)

	second, err := svc.SubmitEncryptBTCAddress(ctx, &confidential.BTCAddress{
		Address:      address,
		RecipientKey: [32]byte{0x12},
		Timestamp:    1700000000,
	}, ownerKey(t))
	require.NoError(t, err)

	require.NotEqual(t, first.Commitment, second.Commitment)
}

func TestQueueFailureFinalizesRecord(t *testing.T) {
	reserve, err := NewReserveService(nil, events.NoopPublisher{}, models.ReserveAssetBTC, 1_000_000, 10_000_000, 0)
	require.NoError(t, err)
	repo := newFakeRepo()
	svc := NewCoordinatorService(repo, failingFabric{}, events.NoopPublisher{}, reserve, 8)
	ctx := context.Background()

	_, err = svc.SubmitEncryptBridgeAmount(ctx, testInput(5000), ownerKey(t))
	require.Error(t, err)

	aborted, err := repo.FindByStatus(ctx, models.ComputationStatusAborted)
	require.NoError(t, err)
	require.Len(t, aborted, 1)
	require.Equal(t, "queue_failed", aborted[0].ErrorCode)
	require.NotNil(t, aborted[0].CompletedAt)

	// A late callback for the finalized record cannot resurrect it or mint.
	id, err := confidential.ParseComputationID(aborted[0].ID)
	require.NoError(t, err)
	err = svc.HandleCallback(ctx, id, successResult())
	require.ErrorIs(t, err, ErrDuplicateCallback)
	require.Zero(t, reserve.Snapshot().TotalMinted)
}

func TestAbortLoggedAsProcessedTransition(t *testing.T) {
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	svc, _, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	ack, err := svc.SubmitEncryptBridgeAmount(ctx, testInput(5000), ownerKey(t))
	require.NoError(t, err)
	id, err := confidential.ParseComputationID(ack.ComputationID)
	require.NoError(t, err)

	svc.onCallback(id, &clients.ComputationResult{Aborted: true, Reason: "cluster failure"})

	var abortEntry *logrus.Entry
	for _, entry := range hook.AllEntries() {
		require.NotEqual(t, "callback rejected", entry.Message)
		if entry.Message == "computation aborted by fabric" {
			abortEntry = entry
		}
	}
	require.NotNil(t, abortEntry)
	require.Equal(t, logrus.InfoLevel, abortEntry.Level)
	require.Equal(t, "cluster failure", abortEntry.Data["reason"])

	// The duplicate delivery after finalization is the actual rejection.
	hook.Reset()
	svc.onCallback(id, &clients.ComputationResult{Aborted: true, Reason: "late abort"})
	require.NotNil(t, hook.LastEntry())
	require.Equal(t, "callback rejected", hook.LastEntry().Message)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestGetComputation(t *testing.T) {
	svc, _, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	ack, err := svc.SubmitVerifySufficientBalance(ctx, [32]byte{0x07}, 1234, ownerKey(t))
	require.NoError(t, err)

	record, err := svc.GetComputation(ctx, ack.ComputationID)
	require.NoError(t, err)
	require.Equal(t, models.TransformVerifySufficientBalance, record.TransformID)

	_, err = svc.GetComputation(ctx, "0xnot-an-id")
	require.Error(t, err)

	missing, err := confidential.NewComputationID()
	require.NoError(t, err)
	_, err = svc.GetComputation(ctx, missing.Hex())
	require.ErrorIs(t, err, ErrUnknownComputation)
}
