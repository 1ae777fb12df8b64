package types

// Token represents immutable reference data for an asset on one chain.
//
// Fields:
// - Symbol: the ticker symbol of the token.
// - Name: the human-readable name of the token.
// - ContractAddress: the token contract address, or the zero address for the native asset.
// - Decimals: the number of decimals of the token.
type Token struct {
	Symbol          string `json:"symbol"`
	Name            string `json:"name"`
	ContractAddress string `json:"contractAddress"`
	Decimals        uint8  `json:"decimals"`
}

// SwapState describes the economic terms of one cross-chain swap.
// Amounts are decimal strings in the token's smallest unit; floating point is
// never used for amounts.
type SwapState struct {
	FromChainID uint64 `json:"fromChainId"`
	ToChainID   uint64 `json:"toChainId"`
	FromToken   Token  `json:"fromToken"`
	ToToken     Token  `json:"toToken"`
	FromAmount  string `json:"fromAmount"`
	ToAmount    string `json:"toAmount"`
	UserAddress string `json:"userAddress"`
}
