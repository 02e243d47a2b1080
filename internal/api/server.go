// Package api exposes a read-only HTTP view of the pool.
package api

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"basepool/internal/model"
	"basepool/internal/notify"
	"basepool/internal/pool"
	"basepool/internal/pricing"
)

// PoolReader is the subset of pool.Reader served over HTTP.
type PoolReader interface {
	Read(ctx context.Context) (model.PoolStatus, error)
	Last() (model.PoolStatus, bool)
	ParticipantNumbers(ctx context.Context, participant common.Address) (model.ParticipantNumbers, error)
	LastParticipantNumbers(participant common.Address) (model.ParticipantNumbers, bool)
	ConqueredNumbers(ctx context.Context) ([]uint64, error)
}

type Config struct {
	Contract    common.Address
	TicketPrice string
	Tiers       []pricing.Tier
}

type Server struct {
	cfg    Config
	reader PoolReader
	logger *zap.Logger
}

type PoolResponse struct {
	PoolID       uint64  `json:"poolId"`
	TotalNumbers uint64  `json:"totalNumbers"`
	BalanceWei   string  `json:"balanceWei"`
	BalanceETH   string  `json:"balanceEth"`
	ThresholdWei string  `json:"thresholdWei"`
	ThresholdETH string  `json:"thresholdEth"`
	Progress     float64 `json:"progress"`
	Stale        bool    `json:"stale"`
	Contract     string  `json:"contract"`
	ContractURL  string  `json:"contractUrl"`
}

type NumbersResponse struct {
	Address string   `json:"address"`
	Numbers []uint64 `json:"numbers"`
	Stale   bool     `json:"stale"`
}

type TierResponse struct {
	Numbers int64  `json:"numbers"`
	Label   string `json:"label"`
	Amount  string `json:"amount"`
}

type ShareResponse struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(cfg Config, reader PoolReader, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, reader: reader, logger: logger}
}

// Handler builds the gin engine with all routes registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	r.GET("/healthz", s.health)
	r.GET("/pool", s.poolStatus)
	r.GET("/participants/:address", s.participantNumbers)
	r.GET("/conquered", s.conqueredNumbers)
	r.GET("/tiers", s.tiers)
	r.GET("/share", s.share)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) poolStatus(c *gin.Context) {
	status, stale, err := s.readStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Error loading pool status"})
		return
	}
	c.JSON(http.StatusOK, s.poolResponse(status, stale))
}

func (s *Server) participantNumbers(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid address"})
		return
	}
	participant := common.HexToAddress(raw)

	numbers, err := s.reader.ParticipantNumbers(c.Request.Context(), participant)
	stale := false
	if err != nil {
		last, ok := s.reader.LastParticipantNumbers(participant)
		if !ok {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Error loading participant numbers"})
			return
		}
		numbers, stale = last, true
	}
	if numbers.Numbers == nil {
		numbers.Numbers = []uint64{}
	}
	c.JSON(http.StatusOK, NumbersResponse{Address: numbers.Address, Numbers: numbers.Numbers, Stale: stale})
}

func (s *Server) conqueredNumbers(c *gin.Context) {
	numbers, err := s.reader.ConqueredNumbers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Error loading conquered numbers"})
		return
	}
	if numbers == nil {
		numbers = []uint64{}
	}
	c.JSON(http.StatusOK, gin.H{"numbers": numbers})
}

func (s *Server) tiers(c *gin.Context) {
	out := make([]TierResponse, 0, len(s.cfg.Tiers))
	for _, tier := range s.cfg.Tiers {
		out = append(out, TierResponse{Numbers: tier.Numbers, Label: tier.Label(), Amount: tier.Amount.String()})
	}
	c.JSON(http.StatusOK, gin.H{"ticketPrice": s.cfg.TicketPrice, "tiers": out})
}

// share builds the compose link for ?amount=<eth>.
func (s *Server) share(c *gin.Context) {
	price, err := pricing.ParseAmount(s.cfg.TicketPrice)
	if err != nil {
		price = pricing.DefaultTicketPrice
	}
	amount, err := pricing.ParseAmount(strings.TrimSpace(c.Query("amount")))
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
		return
	}
	n, err := pricing.TicketsFor(amount, price)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	balance, progress := "0", 0.0
	if status, _, err := s.readStatus(c.Request.Context()); err == nil {
		balance = pricing.FromWei(status.CurrentBalanceWei).StringFixed(4)
		progress = pricing.Progress(status.CurrentBalanceWei, status.ThresholdWei)
	}

	text := notify.ShareText(amount.String(), n, balance, progress)
	c.JSON(http.StatusOK, ShareResponse{Text: text, URL: notify.ShareURL(text)})
}

// readStatus falls back to the last good snapshot when the live read fails.
func (s *Server) readStatus(ctx context.Context) (model.PoolStatus, bool, error) {
	status, err := s.reader.Read(ctx)
	if err == nil {
		return status, false, nil
	}
	if last, ok := s.reader.Last(); ok {
		return last, true, nil
	}
	if !errors.Is(err, pool.ErrReadUnavailable) {
		s.logger.Warn("unexpected pool read error", zap.Error(err))
	}
	return model.PoolStatus{}, false, err
}

func (s *Server) poolResponse(status model.PoolStatus, stale bool) PoolResponse {
	return PoolResponse{
		PoolID:       status.PoolID,
		TotalNumbers: status.TotalNumbers,
		BalanceWei:   bigString(status.CurrentBalanceWei),
		BalanceETH:   pricing.FromWei(status.CurrentBalanceWei).String(),
		ThresholdWei: bigString(status.ThresholdWei),
		ThresholdETH: pricing.FromWei(status.ThresholdWei).String(),
		Progress:     pricing.Progress(status.CurrentBalanceWei, status.ThresholdWei),
		Stale:        stale,
		Contract:     s.cfg.Contract.Hex(),
		ContractURL:  notify.AddressURL(s.cfg.Contract),
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
