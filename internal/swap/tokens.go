package swap

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/standx-tools/volgate/internal/config"
)

// Token is one swappable asset. The registry comes from configuration and
// mirrors the venue's deposit pair (DUSD/USDT on BSC by default).
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals int32
}

func buildRegistry(tokens []config.TokenConfig) map[string]Token {
	registry := make(map[string]Token, len(tokens))
	for _, t := range tokens {
		registry[strings.ToUpper(t.Symbol)] = Token{
			Symbol:   strings.ToUpper(t.Symbol),
			Address:  common.HexToAddress(t.Address),
			Decimals: t.Decimals,
		}
	}
	return registry
}
