// Package contract binds the read surface of the BasePool lottery contract.
//
// Entering the pool has no method: any bare value transfer to the contract
// address is accepted by its receive function, which assigns one number per
// ticket price paid.
package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"basepool/internal/model"
)

const (
	// DefaultAddress is the deployed BasePool contract on Base mainnet.
	DefaultAddress = "0xF9f40e4a0d85A5F6aE758E4C40623A62EFC943f3"
	// RequiredChainID is Base mainnet (0x2105).
	RequiredChainID uint64 = 8453
)

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Contract reads BasePool state through a Caller.
type Contract struct {
	address common.Address
	caller  Caller
}

func New(address common.Address, caller Caller) *Contract {
	return &Contract{address: address, caller: caller}
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// PoolStatus calls getPoolStatus.
func (c *Contract) PoolStatus(ctx context.Context) (model.PoolStatus, error) {
	values, err := c.call(ctx, "getPoolStatus")
	if err != nil {
		return model.PoolStatus{}, err
	}
	if len(values) != 4 {
		return model.PoolStatus{}, fmt.Errorf("getPoolStatus: expected 4 values, got %d", len(values))
	}

	ints := make([]*big.Int, 0, len(values))
	for i, value := range values {
		v, ok := value.(*big.Int)
		if !ok {
			return model.PoolStatus{}, fmt.Errorf("getPoolStatus: value %d has type %T", i, value)
		}
		ints = append(ints, new(big.Int).Set(v))
	}
	if !ints[0].IsUint64() || !ints[1].IsUint64() {
		return model.PoolStatus{}, fmt.Errorf("getPoolStatus: pool id or total numbers overflow uint64")
	}

	return model.PoolStatus{
		PoolID:            ints[0].Uint64(),
		TotalNumbers:      ints[1].Uint64(),
		CurrentBalanceWei: ints[2],
		ThresholdWei:      ints[3],
	}, nil
}

// ParticipantNumbers calls getParticipantNumbers for one participant.
func (c *Contract) ParticipantNumbers(ctx context.Context, participant common.Address) ([]uint64, error) {
	values, err := c.call(ctx, "getParticipantNumbers", participant)
	if err != nil {
		return nil, err
	}
	return asUint64Slice(values)
}

// ConqueredNumbers calls getAllConqueredNumbers, the winning numbers of past rounds.
func (c *Contract) ConqueredNumbers(ctx context.Context) ([]uint64, error) {
	values, err := c.call(ctx, "getAllConqueredNumbers")
	if err != nil {
		return nil, err
	}
	return asUint64Slice(values)
}

func (c *Contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if c.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	parsed, err := BasePoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse basepool abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &c.address, Data: data}
	resp, err := c.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asUint64Slice(values []interface{}) ([]uint64, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("expected 1 value, got %d", len(values))
	}
	ints, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported array type %T", values[0])
	}
	out := make([]uint64, 0, len(ints))
	for _, v := range ints {
		if !v.IsUint64() {
			return nil, fmt.Errorf("number overflows uint64: %s", v)
		}
		out = append(out, v.Uint64())
	}
	return out, nil
}

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}
