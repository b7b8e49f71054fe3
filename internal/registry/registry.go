package registry

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TokenInfo describes a tracked ERC-20 contract.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Registry is the static address -> token table, immutable for the process
// lifetime. Lookups are case-insensitive; addresses are canonicalized to
// lower case.
type Registry struct {
	tokens map[string]TokenInfo
}

// New builds a registry from token entries. Addresses are validated and
// lower-cased; duplicate addresses are rejected.
func New(tokens []TokenInfo) (*Registry, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("at least one token is required")
	}

	table := make(map[string]TokenInfo, len(tokens))
	for _, token := range tokens {
		if !common.IsHexAddress(token.Address) {
			return nil, fmt.Errorf("invalid token address: %s", token.Address)
		}
		key := strings.ToLower(token.Address)
		if _, ok := table[key]; ok {
			return nil, fmt.Errorf("duplicate token address: %s", key)
		}
		token.Address = key
		table[key] = token
	}

	return &Registry{tokens: table}, nil
}

// Resolve returns the token info for an address, if tracked. Unknown
// addresses are the common case and not an error.
func (r *Registry) Resolve(address string) (TokenInfo, bool) {
	info, ok := r.tokens[strings.ToLower(address)]
	return info, ok
}

// Addresses returns all tracked contract addresses.
func (r *Registry) Addresses() []common.Address {
	out := make([]common.Address, 0, len(r.tokens))
	for addr := range r.tokens {
		out = append(out, common.HexToAddress(addr))
	}
	return out
}

// Len returns the number of tracked tokens.
func (r *Registry) Len() int {
	return len(r.tokens)
}
