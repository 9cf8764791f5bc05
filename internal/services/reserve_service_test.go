package services

import (
	"sync"
	"testing"

	"zenbridge-backend/internal/events"
	"zenbridge-backend/internal/models"

	"github.com/stretchr/testify/require"
)

// capturingPublisher records burn events for assertions.
type capturingPublisher struct {
	mu    sync.Mutex
	burns []events.BurnEvent
}

func (p *capturingPublisher) PublishLifecycle(*events.LifecycleEvent) error { return nil }

func (p *capturingPublisher) PublishBurn(event *events.BurnEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.burns = append(p.burns, *event)
	return nil
}

func (p *capturingPublisher) Close() {}

func newTestReserve(t *testing.T, maxMint, bootstrapBTC uint64) *ReserveService {
	t.Helper()
	s, err := NewReserveService(nil, events.NoopPublisher{}, models.ReserveAssetBTC, maxMint, bootstrapBTC, 0)
	require.NoError(t, err)
	return s
}

func TestMint(t *testing.T) {
	s := newTestReserve(t, 1000, 5000)

	require.NoError(t, s.Mint(1000))
	require.Equal(t, uint64(1000), s.Snapshot().TotalMinted)
	require.Equal(t, uint64(4000), s.AvailableCapacity())
}

func TestMintRejections(t *testing.T) {
	s := newTestReserve(t, 1000, 2500)

	require.ErrorIs(t, s.Mint(0), ErrInvalidAmount)
	require.ErrorIs(t, s.Mint(1001), ErrAmountExceedsMax)

	require.NoError(t, s.Mint(1000))
	require.NoError(t, s.Mint(1000))
	// 2000 minted against a 2500 reserve: 1000 more will not fit.
	require.ErrorIs(t, s.Mint(1000), ErrInsufficientReserve)
	require.Equal(t, uint64(2000), s.Snapshot().TotalMinted)

	s.SetPaused(true)
	require.ErrorIs(t, s.Mint(100), ErrBridgePaused)
	s.SetPaused(false)
	require.NoError(t, s.Mint(100))
}

func TestBurn(t *testing.T) {
	s := newTestReserve(t, 1000, 5000)

	require.ErrorIs(t, s.Burn(0), ErrInvalidAmount)
	require.NoError(t, s.Burn(250))
	require.Equal(t, uint64(250), s.Snapshot().TotalBurned)
}

func TestUpdateReserve(t *testing.T) {
	s := newTestReserve(t, 1000, 1000)

	require.NoError(t, s.UpdateReserve(models.ReserveAssetBTC, 500))
	require.Equal(t, uint64(1500), s.Snapshot().BTCReserve)

	require.NoError(t, s.UpdateReserve(models.ReserveAssetZEC, 42))
	require.Equal(t, uint64(42), s.Snapshot().ZECReserve)

	require.ErrorIs(t, s.UpdateReserve(models.ReserveAsset("DOGE"), 1), ErrUnknownReserveAsset)
}

func TestSetMaxMintPerTx(t *testing.T) {
	s := newTestReserve(t, 1000, 5000)

	require.ErrorIs(t, s.SetMaxMintPerTx(0), ErrInvalidAmount)
	require.NoError(t, s.SetMaxMintPerTx(2000))
	require.NoError(t, s.Mint(1500))
}

func TestBurnForBTCPublishesDigestOnly(t *testing.T) {
	publisher := &capturingPublisher{}
	s, err := NewReserveService(nil, publisher, models.ReserveAssetBTC, 1000, 5000, 0)
	require.NoError(t, err)

	address := "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"
	require.NoError(t, s.BurnForBTC(700, address, true))

	require.Len(t, publisher.burns, 1)
	burn := publisher.burns[0]
	require.Equal(t, events.EventBurnToBTC, burn.EventType)
	require.Equal(t, uint64(700), burn.Amount)
	require.True(t, burn.Encrypted)
	require.NotContains(t, burn.AddressDigest, address)
	require.Len(t, burn.AddressDigest, 66)
}

func TestBurnForBTCValidatesAddress(t *testing.T) {
	s := newTestReserve(t, 1000, 5000)

	err := s.BurnForBTC(700, "short", true)
	require.Error(t, err)
	require.Zero(t, s.Snapshot().TotalBurned)
}

func TestBurnAndEmit(t *testing.T) {
	publisher := &capturingPublisher{}
	s, err := NewReserveService(nil, publisher, models.ReserveAssetBTC, 1000, 5000, 0)
	require.NoError(t, err)

	require.NoError(t, s.BurnAndEmit(300))
	require.Len(t, publisher.burns, 1)
	require.Equal(t, events.EventBurnSwap, publisher.burns[0].EventType)
	require.Equal(t, uint64(300), s.Snapshot().TotalBurned)
}
