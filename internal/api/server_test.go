package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basepool/internal/model"
	"basepool/internal/pool"
	"basepool/internal/pricing"
)

type fakeReader struct {
	status     model.PoolStatus
	readErr    error
	last       *model.PoolStatus
	numbers    map[common.Address][]uint64
	numbersErr error
	conquered  []uint64
}

func (f *fakeReader) Read(context.Context) (model.PoolStatus, error) {
	if f.readErr != nil {
		return model.PoolStatus{}, fmt.Errorf("%w: %v", pool.ErrReadUnavailable, f.readErr)
	}
	return f.status, nil
}

func (f *fakeReader) Last() (model.PoolStatus, bool) {
	if f.last == nil {
		return model.PoolStatus{}, false
	}
	return *f.last, true
}

func (f *fakeReader) ParticipantNumbers(_ context.Context, participant common.Address) (model.ParticipantNumbers, error) {
	if f.numbersErr != nil {
		return model.ParticipantNumbers{}, f.numbersErr
	}
	return model.ParticipantNumbers{Address: participant.Hex(), Numbers: f.numbers[participant]}, nil
}

func (f *fakeReader) LastParticipantNumbers(participant common.Address) (model.ParticipantNumbers, bool) {
	return model.ParticipantNumbers{}, false
}

func (f *fakeReader) ConqueredNumbers(context.Context) ([]uint64, error) {
	return f.conquered, nil
}

func newTestServer(reader *fakeReader) http.Handler {
	gin.SetMode(gin.TestMode)
	return NewServer(Config{
		Contract:    common.HexToAddress("0xF9f40e4a0d85A5F6aE758E4C40623A62EFC943f3"),
		TicketPrice: "0.0005",
		Tiers:       pricing.DefaultTiers(pricing.DefaultTicketPrice),
	}, reader, nil).Handler()
}

func get(t *testing.T, h http.Handler, path string, out interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w.Code
}

func TestHealth(t *testing.T) {
	var body map[string]string
	code := get(t, newTestServer(&fakeReader{}), "/healthz", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestPoolStatus(t *testing.T) {
	reader := &fakeReader{status: model.PoolStatus{
		PoolID:            3,
		TotalNumbers:      120,
		CurrentBalanceWei: big.NewInt(1e17),
		ThresholdWei:      big.NewInt(5e17),
	}}

	var resp PoolResponse
	code := get(t, newTestServer(reader), "/pool", &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(3), resp.PoolID)
	assert.Equal(t, "100000000000000000", resp.BalanceWei)
	assert.Equal(t, "0.1", resp.BalanceETH)
	assert.Equal(t, "0.5", resp.ThresholdETH)
	assert.InDelta(t, 20.0, resp.Progress, 1e-9)
	assert.False(t, resp.Stale)
	assert.Contains(t, resp.ContractURL, "https://basescan.org/address/")
}

func TestPoolStatusFallsBackToLastRead(t *testing.T) {
	last := model.PoolStatus{PoolID: 1, CurrentBalanceWei: big.NewInt(0), ThresholdWei: big.NewInt(0)}
	reader := &fakeReader{readErr: errors.New("rpc down"), last: &last}

	var resp PoolResponse
	code := get(t, newTestServer(reader), "/pool", &resp)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Stale)
	assert.Equal(t, 0.0, resp.Progress)
}

func TestPoolStatusUnavailable(t *testing.T) {
	var resp ErrorResponse
	code := get(t, newTestServer(&fakeReader{readErr: errors.New("rpc down")}), "/pool", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "Error loading pool status", resp.Error)
}

func TestParticipantNumbers(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	reader := &fakeReader{numbers: map[common.Address][]uint64{addr: {4, 5, 6}}}
	h := newTestServer(reader)

	var resp NumbersResponse
	code := get(t, h, "/participants/"+addr.Hex(), &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []uint64{4, 5, 6}, resp.Numbers)

	var empty NumbersResponse
	code = get(t, h, "/participants/0x00000000000000000000000000000000000000bb", &empty)
	require.Equal(t, http.StatusOK, code)
	assert.NotNil(t, empty.Numbers)
	assert.Empty(t, empty.Numbers)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/participants/nope", nil))

	reader.numbersErr = pool.ErrReadUnavailable
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/participants/"+addr.Hex(), nil))
}

func TestConqueredNumbers(t *testing.T) {
	var body map[string][]uint64
	code := get(t, newTestServer(&fakeReader{conquered: []uint64{17, 421}}), "/conquered", &body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []uint64{17, 421}, body["numbers"])
}

func TestTiers(t *testing.T) {
	var body struct {
		TicketPrice string         `json:"ticketPrice"`
		Tiers       []TierResponse `json:"tiers"`
	}
	code := get(t, newTestServer(&fakeReader{}), "/tiers", &body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0.0005", body.TicketPrice)
	require.Len(t, body.Tiers, 4)
	assert.Equal(t, TierResponse{Numbers: 3, Label: "3 Numbers", Amount: "0.0015"}, body.Tiers[1])
}

func TestShare(t *testing.T) {
	reader := &fakeReader{status: model.PoolStatus{CurrentBalanceWei: big.NewInt(25e16), ThresholdWei: big.NewInt(5e17)}}
	h := newTestServer(reader)

	var resp ShareResponse
	code := get(t, h, "/share?amount=0.0025", &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, resp.Text, "Just got 5 numbers in BasePool with 0.0025 ETH!")
	assert.Contains(t, resp.Text, "Pool Balance: 0.2500 ETH")
	assert.Contains(t, resp.Text, "Target: 50.0% filled")
	assert.Contains(t, resp.URL, "https://warpcast.com/~/compose?text=")

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/share?amount=0.0007", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/share?amount=0", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/share", nil))
}
