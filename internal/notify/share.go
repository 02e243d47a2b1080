package notify

import (
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"

	"basepool/internal/pricing"
)

const (
	// AppURL is embedded in every share.
	AppURL = "https://basepool.miniapps.zone"

	composeURL  = "https://warpcast.com/~/compose"
	explorerURL = "https://basescan.org"
)

// ShareText is the post offered after a confirmed entry.
func ShareText(amountETH string, numbers int64, poolBalanceETH string, progress float64) string {
	return fmt.Sprintf("🎲 Just got %d %s in BasePool with %s ETH!\n\n💰 Pool Balance: %s ETH\n🎯 Target: %.1f%% filled\n\nJoin the pool! 👇",
		numbers, pricing.Plural(numbers, "number"), amountETH, poolBalanceETH, progress)
}

// ShareURL returns a Warpcast compose link carrying text and the app embed.
func ShareURL(text string) string {
	return composeURL + "?text=" + url.QueryEscape(text) + "&embeds[]=" + url.QueryEscape(AppURL)
}

// TxURL links a transaction on the block explorer.
func TxURL(hash common.Hash) string {
	return explorerURL + "/tx/" + hash.Hex()
}

// AddressURL links an address on the block explorer.
func AddressURL(address common.Address) string {
	return explorerURL + "/address/" + address.Hex()
}
