package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"zenbridge-backend/internal/commitment"
	"zenbridge-backend/internal/confidential"
	"zenbridge-backend/internal/events"
	"zenbridge-backend/internal/metrics"
	"zenbridge-backend/internal/models"
	"zenbridge-backend/internal/utils"

	"gorm.io/gorm"
)

// ReserveService is the bridge's mint/burn bookkeeping against a bounded
// backing reserve. It sees only numeric amounts and the reserve-asset tag;
// no bridge plaintext reaches this layer. Counters use checked arithmetic
// and are mutated only behind the service mutex.
type ReserveService struct {
	mu        sync.Mutex
	cfg       models.BridgeConfig
	db        *gorm.DB // nil in tests; state is then memory-only
	publisher events.Publisher
}

// NewReserveService initializes the ledger from bootstrap values, restoring
// persisted state when a database row exists.
func NewReserveService(db *gorm.DB, publisher events.Publisher, asset models.ReserveAsset, maxMintPerTx, bootstrapBTC, bootstrapZEC uint64) (*ReserveService, error) {
	s := &ReserveService{db: db, publisher: publisher}
	s.cfg = models.BridgeConfig{
		ID:           1,
		ReserveAsset: asset,
		MaxMintPerTx: maxMintPerTx,
		BTCReserve:   bootstrapBTC,
		ZECReserve:   bootstrapZEC,
	}

	if db != nil {
		var existing models.BridgeConfig
		err := db.First(&existing, 1).Error
		switch {
		case err == nil:
			s.cfg = existing
		case err == gorm.ErrRecordNotFound:
			if err := db.Create(&s.cfg).Error; err != nil {
				return nil, fmt.Errorf("failed to persist bridge config: %w", err)
			}
		default:
			return nil, fmt.Errorf("failed to load bridge config: %w", err)
		}
	}

	s.updateGauges()
	log.Printf("[ReserveService] initialized: asset=%s maxMintPerTx=%d", asset, maxMintPerTx)
	return s, nil
}

// AvailableCapacity returns the remaining mint headroom against the reserve.
func (s *ReserveService) AvailableCapacity() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableCapacityLocked()
}

func (s *ReserveService) availableCapacityLocked() uint64 {
	reserve := s.reserveLocked()
	if s.cfg.TotalMinted >= reserve {
		return 0
	}
	return reserve - s.cfg.TotalMinted
}

func (s *ReserveService) reserveLocked() uint64 {
	if s.cfg.ReserveAsset == models.ReserveAssetZEC {
		return s.cfg.ZECReserve
	}
	return s.cfg.BTCReserve
}

// Mint authorizes minting wrapped tokens, enforcing
// totalMinted + amount <= reserve atomically.
func (s *ReserveService) Mint(amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Paused {
		metrics.MintRejections.WithLabelValues("paused").Inc()
		return ErrBridgePaused
	}
	if amount == 0 {
		metrics.MintRejections.WithLabelValues("invalid_amount").Inc()
		return ErrInvalidAmount
	}
	if amount > s.cfg.MaxMintPerTx {
		metrics.MintRejections.WithLabelValues("exceeds_max").Inc()
		return ErrAmountExceedsMax
	}

	newMinted, err := utils.CheckedAddU64(s.cfg.TotalMinted, amount)
	if err != nil || newMinted > s.reserveLocked() {
		metrics.MintRejections.WithLabelValues("insufficient_reserve").Inc()
		return ErrInsufficientReserve
	}

	s.cfg.TotalMinted = newMinted
	s.persistLocked()
	s.updateGauges()
	return nil
}

// Burn records burning of wrapped tokens.
func (s *ReserveService) Burn(amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount == 0 {
		return ErrInvalidAmount
	}
	newBurned, err := utils.CheckedAddU64(s.cfg.TotalBurned, amount)
	if err != nil {
		return ErrInvalidAmount
	}
	s.cfg.TotalBurned = newBurned
	s.persistLocked()
	s.updateGauges()
	return nil
}

// BurnAndEmit burns and notifies the swap relayer.
func (s *ReserveService) BurnAndEmit(amount uint64) error {
	if err := s.Burn(amount); err != nil {
		return err
	}
	return s.publisher.PublishBurn(&events.BurnEvent{
		EventType: events.EventBurnSwap,
		Amount:    amount,
	})
}

// BurnForBTC burns and notifies the BTC relayer. The withdrawal address is
// validated, then published only as a commitment digest; the plaintext
// address goes to the confidential pipeline, never to the event stream.
func (s *ReserveService) BurnForBTC(amount uint64, btcAddress string, usePrivacy bool) error {
	addr := confidential.BTCAddress{Address: btcAddress}
	if err := addr.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.cfg.Paused {
		s.mu.Unlock()
		return ErrBridgePaused
	}
	s.mu.Unlock()

	if err := s.Burn(amount); err != nil {
		return err
	}

	return s.publisher.PublishBurn(&events.BurnEvent{
		EventType:     events.EventBurnToBTC,
		Amount:        amount,
		AddressDigest: commitment.CommitBytes([]byte(btcAddress)).Hex(),
		Encrypted:     usePrivacy,
	})
}

// SetPaused toggles the bridge pause flag (admin only).
func (s *ReserveService) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Paused = paused
	s.persistLocked()
	s.updateGauges()
	log.Printf("[ReserveService] paused set to %v", paused)
}

// SetMaxMintPerTx updates the per-transaction mint cap (admin only).
func (s *ReserveService) SetMaxMintPerTx(max uint64) error {
	if max == 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.MaxMintPerTx = max
	s.persistLocked()
	return nil
}

// UpdateReserve credits the backing reserve for an asset (admin only, called
// when backing funds are received).
func (s *ReserveService) UpdateReserve(asset models.ReserveAsset, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch asset {
	case models.ReserveAssetBTC:
		v, err := utils.CheckedAddU64(s.cfg.BTCReserve, amount)
		if err != nil {
			return ErrInvalidAmount
		}
		s.cfg.BTCReserve = v
	case models.ReserveAssetZEC:
		v, err := utils.CheckedAddU64(s.cfg.ZECReserve, amount)
		if err != nil {
			return ErrInvalidAmount
		}
		s.cfg.ZECReserve = v
	default:
		return ErrUnknownReserveAsset
	}

	s.persistLocked()
	s.updateGauges()
	return nil
}

// Snapshot returns a copy of the ledger state for admin queries.
func (s *ReserveService) Snapshot() models.BridgeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *ReserveService) persistLocked() {
	if s.db == nil {
		return
	}
	s.cfg.UpdatedAt = time.Now()
	if err := s.db.Save(&s.cfg).Error; err != nil {
		log.Printf("[ReserveService] failed to persist config: %v", err)
	}
}

func (s *ReserveService) updateGauges() {
	metrics.ReserveTotalMinted.Set(float64(s.cfg.TotalMinted))
	metrics.ReserveTotalBurned.Set(float64(s.cfg.TotalBurned))
	metrics.ReserveAvailableCapacity.Set(float64(s.availableCapacityLocked()))
	if s.cfg.Paused {
		metrics.ReservePaused.Set(1)
	} else {
		metrics.ReservePaused.Set(0)
	}
}
