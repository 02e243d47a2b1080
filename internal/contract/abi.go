package contract

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const basePoolABIJSON = `[
  {"stateMutability": "payable", "type": "receive"},
  {
    "inputs": [],
    "name": "getPoolStatus",
    "outputs": [
      {"internalType": "uint256", "name": "poolId", "type": "uint256"},
      {"internalType": "uint256", "name": "totalNumbers", "type": "uint256"},
      {"internalType": "uint256", "name": "currentBalance", "type": "uint256"},
      {"internalType": "uint256", "name": "threshold", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "participant", "type": "address"}],
    "name": "getParticipantNumbers",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getAllConqueredNumbers",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	basePoolABI     abi.ABI
	basePoolABIOnce sync.Once
	basePoolABIErr  error
)

// BasePoolABI returns the parsed BasePool contract ABI.
func BasePoolABI() (abi.ABI, error) {
	basePoolABIOnce.Do(func() {
		basePoolABI, basePoolABIErr = abi.JSON(strings.NewReader(basePoolABIJSON))
	})
	return basePoolABI, basePoolABIErr
}
