package handlers

import (
	"errors"
	"net/http"

	"zenbridge-backend/internal/models"
	"zenbridge-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminHandler exposes the reserve-ledger control surface. All routes sit
// behind the admin JWT middleware.
type AdminHandler struct {
	reserve *services.ReserveService
	logger  *logrus.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(reserve *services.ReserveService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{reserve: reserve, logger: logger}
}

// PauseRequest corresponds to the request body for /api/admin/pause
type PauseRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

// MaxMintRequest corresponds to the request body for /api/admin/max-mint
type MaxMintRequest struct {
	MaxMintPerTx uint64 `json:"max_mint_per_tx" binding:"required"`
}

// UpdateReserveRequest corresponds to the request body for /api/admin/reserve
type UpdateReserveRequest struct {
	Asset  string `json:"asset" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// BurnRequest corresponds to the request body for /api/admin/burn
type BurnRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
	Emit   bool   `json:"emit"`
}

// BurnBTCRequest corresponds to the request body for /api/admin/burn-btc
type BurnBTCRequest struct {
	Amount     uint64 `json:"amount" binding:"required"`
	BTCAddress string `json:"btc_address" binding:"required"`
	UsePrivacy *bool  `json:"use_privacy"`
}

// SetPaused handles POST /api/admin/pause
func (h *AdminHandler) SetPaused(c *gin.Context) {
	var req PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "paused flag is required")
		return
	}

	h.reserve.SetPaused(*req.Paused)
	h.logger.WithField("paused", *req.Paused).Info("bridge pause flag changed")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"paused": *req.Paused}})
}

// SetMaxMintPerTx handles POST /api/admin/max-mint
func (h *AdminHandler) SetMaxMintPerTx(c *gin.Context) {
	var req MaxMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "max_mint_per_tx is required")
		return
	}

	if err := h.reserve.SetMaxMintPerTx(req.MaxMintPerTx); err != nil {
		h.respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"max_mint_per_tx": req.MaxMintPerTx}})
}

// UpdateReserve handles POST /api/admin/reserve
func (h *AdminHandler) UpdateReserve(c *gin.Context) {
	var req UpdateReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "asset and amount are required")
		return
	}

	if err := h.reserve.UpdateReserve(models.ReserveAsset(req.Asset), req.Amount); err != nil {
		h.respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.reserve.Snapshot()})
}

// Burn handles POST /api/admin/burn
func (h *AdminHandler) Burn(c *gin.Context) {
	var req BurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "amount is required")
		return
	}

	var err error
	if req.Emit {
		err = h.reserve.BurnAndEmit(req.Amount)
	} else {
		err = h.reserve.Burn(req.Amount)
	}
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"burned": req.Amount}})
}

// BurnForBTC handles POST /api/admin/burn-btc
func (h *AdminHandler) BurnForBTC(c *gin.Context) {
	var req BurnBTCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "amount and btc_address are required")
		return
	}

	usePrivacy := true
	if req.UsePrivacy != nil {
		usePrivacy = *req.UsePrivacy
	}

	if err := h.reserve.BurnForBTC(req.Amount, req.BTCAddress, usePrivacy); err != nil {
		h.respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"burned": req.Amount, "encrypted": usePrivacy}})
}

// GetReserveStatus handles GET /api/admin/reserve
func (h *AdminHandler) GetReserveStatus(c *gin.Context) {
	snapshot := h.reserve.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"reserve_asset":      snapshot.ReserveAsset,
			"max_mint_per_tx":    snapshot.MaxMintPerTx,
			"paused":             snapshot.Paused,
			"total_minted":       snapshot.TotalMinted,
			"total_burned":       snapshot.TotalBurned,
			"btc_reserve":        snapshot.BTCReserve,
			"zec_reserve":        snapshot.ZECReserve,
			"available_capacity": h.reserve.AvailableCapacity(),
		},
	})
}

func (h *AdminHandler) respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBridgePaused):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error(), "code": "BRIDGE_PAUSED"})
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrAmountExceedsMax),
		errors.Is(err, services.ErrInsufficientReserve),
		errors.Is(err, services.ErrUnknownReserveAsset):
		respondBadRequest(c, err.Error())
	default:
		h.logger.WithError(err).Error("ledger operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}
