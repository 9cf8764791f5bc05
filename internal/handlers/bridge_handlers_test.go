package handlers

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"zenbridge-backend/internal/clients"
	"zenbridge-backend/internal/confidential"
	"zenbridge-backend/internal/events"
	"zenbridge-backend/internal/models"
	"zenbridge-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memRepo struct {
	mu      sync.Mutex
	records map[string]models.ComputationRecord
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]models.ComputationRecord)}
}

func (r *memRepo) Create(_ context.Context, record *models.ComputationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = *record
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*models.ComputationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := record
	return &copied, nil
}

func (r *memRepo) Update(_ context.Context, record *models.ComputationRecord) error {
	return r.Create(context.Background(), record)
}

func (r *memRepo) FindByStatus(_ context.Context, _ models.ComputationStatus) ([]*models.ComputationRecord, error) {
	return nil, nil
}

func (r *memRepo) List(_ context.Context, _, _ int) ([]*models.ComputationRecord, int64, error) {
	return nil, 0, nil
}

type noopFabric struct{}

func (noopFabric) Queue(_ context.Context, _ string, _ confidential.ComputationID, _ *clients.TransformArgs, _ clients.CallbackFunc) error {
	return nil
}

func (noopFabric) Random(max uint64) (uint64, error) { return 0, nil }

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coordinator := services.NewCoordinatorService(newMemRepo(), noopFabric{}, events.NoopPublisher{}, nil, 8)
	handler := NewBridgeHandler(coordinator, logrus.New())

	r := gin.New()
	r.POST("/api/bridge/encrypt", handler.EncryptBridgeAmount)
	r.POST("/api/bridge/swap", handler.CalculateSwapAmount)
	r.GET("/api/bridge/computations/:id", handler.GetComputation)
	return r
}

func testKeyHex(t *testing.T) string {
	t.Helper()
	pub, _, err := confidential.GenerateRecipientKey()
	require.NoError(t, err)
	return hex.EncodeToString(pub[:])
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEncryptEndpointQueues(t *testing.T) {
	r := testRouter(t)
	keyHex := testKeyHex(t)

	w := postJSON(t, r, "/api/bridge/encrypt", gin.H{
		"amount":       50000,
		"source_chain": "BTC",
		"dest_chain":   "SOLANA",
		"user_key":     keyHex,
		"owner_key":    keyHex,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ComputationID string `json:"computation_id"`
			Commitment    string `json:"commitment"`
			Status        string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "queued", resp.Data.Status)
	require.Len(t, resp.Data.ComputationID, 66)

	// The queued record is immediately queryable.
	getReq := httptest.NewRequest(http.MethodGet, "/api/bridge/computations/"+resp.Data.ComputationID, nil)
	getW := httptest.NewRecorder()
	r.ServeHTTP(getW, getReq)
	require.Equal(t, http.StatusOK, getW.Code)
	require.Contains(t, getW.Body.String(), resp.Data.Commitment)
}

func TestEncryptEndpointRejectsBadKey(t *testing.T) {
	r := testRouter(t)

	w := postJSON(t, r, "/api/bridge/encrypt", gin.H{
		"amount":       50000,
		"source_chain": "BTC",
		"dest_chain":   "SOLANA",
		"user_key":     "not-hex",
		"owner_key":    testKeyHex(t),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwapEndpointRejectsExcessiveSlippage(t *testing.T) {
	r := testRouter(t)

	w := postJSON(t, r, "/api/bridge/swap", gin.H{
		"source_amount":      "0011223344556677",
		"exchange_rate":      5,
		"slippage_tolerance": 51,
		"owner_key":          testKeyHex(t),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "slippage")
}

func TestGetComputationNotFound(t *testing.T) {
	r := testRouter(t)

	id, err := confidential.NewComputationID()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/bridge/computations/"+id.Hex(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
