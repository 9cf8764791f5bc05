package handlers

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"zenbridge-backend/internal/confidential"
	"zenbridge-backend/internal/config"
	"zenbridge-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BridgeHandler exposes the confidential-computation submission interface.
// Every endpoint returns a Queued acknowledgment with the computation ID and
// commitment digest, never a direct result.
type BridgeHandler struct {
	coordinator *services.CoordinatorService
	logger      *logrus.Logger
}

// NewBridgeHandler creates the bridge submission handler.
func NewBridgeHandler(coordinator *services.CoordinatorService, logger *logrus.Logger) *BridgeHandler {
	return &BridgeHandler{coordinator: coordinator, logger: logger}
}

// EncryptBridgeRequest corresponds to the request body for /api/bridge/encrypt
type EncryptBridgeRequest struct {
	Amount      uint64 `json:"amount" binding:"required"`
	SourceChain string `json:"source_chain" binding:"required"`
	DestChain   string `json:"dest_chain" binding:"required"`
	UserKey     string `json:"user_key" binding:"required"` // 32 bytes hex
	OwnerKey    string `json:"owner_key"`                   // falls back to configured default

	// Sealed enables the multi-recipient fan-out; relayer and compliance
	// keys then come from the request or the configured defaults.
	Sealed        bool   `json:"sealed"`
	RelayerKey    string `json:"relayer_key"`
	ComplianceKey string `json:"compliance_key"`
}

// VerifyBridgeRequest corresponds to the request body for /api/bridge/verify
type VerifyBridgeRequest struct {
	TxHash         string `json:"tx_hash" binding:"required"`
	ExpectedAmount string `json:"expected_amount" binding:"required"` // ciphertext, hex
	Blockchain     string `json:"blockchain" binding:"required"`
	OwnerKey       string `json:"owner_key"`
}

// SwapCalculationRequest corresponds to the request body for /api/bridge/swap
type SwapCalculationRequest struct {
	SourceAmount      string `json:"source_amount" binding:"required"` // ciphertext, hex
	ExchangeRate      uint64 `json:"exchange_rate" binding:"required"`
	SlippageTolerance uint64 `json:"slippage_tolerance"`
	OwnerKey          string `json:"owner_key"`
}

// EncryptAddressRequest corresponds to the request body for /api/bridge/address
type EncryptAddressRequest struct {
	Address      string `json:"address" binding:"required"`
	RecipientKey string `json:"recipient_key" binding:"required"`
	OwnerKey     string `json:"owner_key"`
}

// BalanceCheckRequest corresponds to the request body for /api/bridge/balance-check
type BalanceCheckRequest struct {
	UserKey  string `json:"user_key" binding:"required"`
	Required uint64 `json:"required" binding:"required"`
	OwnerKey string `json:"owner_key"`
}

// BridgeProofRequest corresponds to the request body for /api/bridge/proof
type BridgeProofRequest struct {
	Amount      uint64 `json:"amount" binding:"required"`
	SourceChain string `json:"source_chain" binding:"required"`
	DestChain   string `json:"dest_chain" binding:"required"`
	UserKey     string `json:"user_key" binding:"required"`
	OwnerKey    string `json:"owner_key"`
}

// EncryptBridgeAmount handles POST /api/bridge/encrypt
func (h *BridgeHandler) EncryptBridgeAmount(c *gin.Context) {
	var req EncryptBridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	userKey, err := parseKey32(req.UserKey)
	if err != nil {
		respondBadRequest(c, "user_key must be 32 bytes hex")
		return
	}
	ownerKey, err := resolveRecipientKey(req.OwnerKey, defaultKeys().owner)
	if err != nil {
		respondBadRequest(c, "owner_key must be 32 bytes hex")
		return
	}

	input := &confidential.BridgeAmount{
		Amount:      req.Amount,
		SourceChain: req.SourceChain,
		DestChain:   req.DestChain,
		Timestamp:   uint64(time.Now().Unix()),
		UserKey:     userKey,
	}

	var ack *services.QueuedAck
	if req.Sealed {
		relayerKey, err := resolveRecipientKey(req.RelayerKey, defaultKeys().relayer)
		if err != nil {
			respondBadRequest(c, "relayer_key must be 32 bytes hex")
			return
		}
		complianceKey, err := resolveRecipientKey(req.ComplianceKey, defaultKeys().compliance)
		if err != nil {
			respondBadRequest(c, "compliance_key must be 32 bytes hex")
			return
		}
		ack, err = h.coordinator.SubmitEncryptBridgeAmountSealed(c.Request.Context(), input, ownerKey, relayerKey, complianceKey)
		if err != nil {
			h.respondSubmitError(c, err)
			return
		}
	} else {
		ack, err = h.coordinator.SubmitEncryptBridgeAmount(c.Request.Context(), input, ownerKey)
		if err != nil {
			h.respondSubmitError(c, err)
			return
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "data": ack})
}

// VerifyBridgeTransaction handles POST /api/bridge/verify
func (h *BridgeHandler) VerifyBridgeTransaction(c *gin.Context) {
	var req VerifyBridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	expected, err := parseHexBytes(req.ExpectedAmount)
	if err != nil {
		respondBadRequest(c, "expected_amount must be hex encoded")
		return
	}
	ownerKey, err := resolveRecipientKey(req.OwnerKey, defaultKeys().owner)
	if err != nil {
		respondBadRequest(c, "owner_key must be 32 bytes hex")
		return
	}

	input := &confidential.BridgeVerification{
		TxHash:         req.TxHash,
		ExpectedAmount: expected,
		Blockchain:     req.Blockchain,
		Timestamp:      uint64(time.Now().Unix()),
	}

	ack, err := h.coordinator.SubmitVerifyBridgeTransaction(c.Request.Context(), input, ownerKey)
	if err != nil {
		h.respondSubmitError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "data": ack})
}

// CalculateSwapAmount handles POST /api/bridge/swap
func (h *BridgeHandler) CalculateSwapAmount(c *gin.Context) {
	var req SwapCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	source, err := parseHexBytes(req.SourceAmount)
	if err != nil {
		respondBadRequest(c, "source_amount must be hex encoded")
		return
	}
	ownerKey, err := resolveRecipientKey(req.OwnerKey, defaultKeys().owner)
	if err != nil {
		respondBadRequest(c, "owner_key must be 32 bytes hex")
		return
	}

	input := &confidential.SwapCalculation{
		SourceAmount:      source,
		ExchangeRate:      req.ExchangeRate,
		SlippageTolerance: req.SlippageTolerance,
	}

	ack, err := h.coordinator.SubmitCalculateSwapAmount(c.Request.Context(), input, ownerKey)
	if err != nil {
		h.respondSubmitError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "data": ack})
}

// EncryptBTCAddress handles POST /api/bridge/address
func (h *BridgeHandler) EncryptBTCAddress(c *gin.Context) {
	var req EncryptAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	recipientKey, err := parseKey32(req.RecipientKey)
	if err != nil {
		respondBadRequest(c, "recipient_key must be 32 bytes hex")
		return
	}
	ownerKey, err := resolveRecipientKey(req.OwnerKey, defaultKeys().owner)
	if err != nil {
		respondBadRequest(c, "owner_key must be 32 bytes hex")
		return
	}

	input := &confidential.BTCAddress{
		Address:      req.Address,
		RecipientKey: recipientKey,
		Timestamp:    uint64(time.Now().Unix()),
	}

	ack, err := h.coordinator.SubmitEncryptBTCAddress(c.Request.Context(), input, ownerKey)
	if err != nil {
		h.respondSubmitError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "data": ack})
}

// VerifySufficientBalance handles POST /api/bridge/balance-check
func (h *BridgeHandler) VerifySufficientBalance(c *gin.Context) {
	var req BalanceCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	userKey, err := parseKey32(req.UserKey)
	if err != nil {
		respondBadRequest(c, "user_key must be 32 bytes hex")
		return
	}
	ownerKey, err := resolveRecipientKey(req.OwnerKey, defaultKeys().owner)
	if err != nil {
		respondBadRequest(c, "owner_key must be 32 bytes hex")
		return
	}

	ack, err := h.coordinator.SubmitVerifySufficientBalance(c.Request.Context(), userKey, req.Required, ownerKey)
	if err != nil {
		h.respondSubmitError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "data": ack})
}

// GenerateBridgeProof handles POST /api/bridge/proof
func (h *BridgeHandler) GenerateBridgeProof(c *gin.Context) {
	var req BridgeProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	userKey, err := parseKey32(req.UserKey)
	if err != nil {
		respondBadRequest(c, "user_key must be 32 bytes hex")
		return
	}
	ownerKey, err := resolveRecipientKey(req.OwnerKey, defaultKeys().owner)
	if err != nil {
		respondBadRequest(c, "owner_key must be 32 bytes hex")
		return
	}

	input := &confidential.BridgeAmount{
		Amount:      req.Amount,
		SourceChain: req.SourceChain,
		DestChain:   req.DestChain,
		Timestamp:   uint64(time.Now().Unix()),
		UserKey:     userKey,
	}

	ack, err := h.coordinator.SubmitGenerateBridgeProof(c.Request.Context(), input, ownerKey)
	if err != nil {
		h.respondSubmitError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "data": ack})
}

// GetComputation handles GET /api/bridge/computations/:id
func (h *BridgeHandler) GetComputation(c *gin.Context) {
	record, err := h.coordinator.GetComputation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrUnknownComputation) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "computation not found"})
			return
		}
		respondBadRequest(c, "invalid computation ID")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}

// respondSubmitError maps typed validation errors to 400 and everything else
// to 500. The response carries the violated rule, never the submitted data.
func (h *BridgeHandler) respondSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, confidential.ErrInvalidAmount),
		errors.Is(err, confidential.ErrInvalidChain),
		errors.Is(err, confidential.ErrInvalidTxHash),
		errors.Is(err, confidential.ErrInvalidCiphertext),
		errors.Is(err, confidential.ErrInvalidRate),
		errors.Is(err, confidential.ErrExcessiveSlippage),
		errors.Is(err, confidential.ErrInvalidAddress):
		respondBadRequest(c, err.Error())
	default:
		h.logger.WithError(err).Error("submission failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

func parseHexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func parseKey32(s string) ([32]byte, error) {
	var key [32]byte
	raw, err := parseHexBytes(s)
	if err != nil {
		return key, err
	}
	if len(raw) != 32 {
		return key, errors.New("key must be 32 bytes")
	}
	copy(key[:], raw)
	return key, nil
}

func parseRecipientKey(s string) (confidential.RecipientKey, error) {
	key, err := parseKey32(s)
	return confidential.RecipientKey(key), err
}

// capabilityKeys are the configured default sealing keys per scope.
type capabilityKeys struct {
	owner      string
	relayer    string
	compliance string
}

func defaultKeys() capabilityKeys {
	if config.AppConfig == nil {
		return capabilityKeys{}
	}
	return capabilityKeys{
		owner:      config.AppConfig.Bridge.OwnerKeyHex,
		relayer:    config.AppConfig.Bridge.RelayerKeyHex,
		compliance: config.AppConfig.Bridge.ComplianceKey,
	}
}

// resolveRecipientKey prefers the request-supplied key, falling back to the
// configured default for the scope.
func resolveRecipientKey(reqHex, defaultHex string) (confidential.RecipientKey, error) {
	if reqHex != "" {
		return parseRecipientKey(reqHex)
	}
	if defaultHex == "" {
		return confidential.RecipientKey{}, errors.New("no key supplied and no default configured")
	}
	return parseRecipientKey(defaultHex)
}
