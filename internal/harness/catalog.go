package harness

import (
	"math/big"

	"cennzxScope/internal/model"
)

const (
	hugeCore  = "100000000000000000000"                   // 1e20
	hugeToken = "340000000000000000000000000000000000000" // 3.4e38
)

// DefaultScenarios is the built-in suite. Pools are seeded at 200000 core to
// 100000 token unless a scenario needs the extreme reserves.
func DefaultScenarios() []Scenario {
	standard := []Deposit{{Core: amount("200000"), Token: amount("100000")}}
	supply := amount("1000000000")

	return []Scenario{
		{
			Name:        "add-liquidity-first-deposit",
			TokenSupply: supply,
			Action: Action{
				Type:         ActionAddLiquidity,
				Core:         amount("200000"),
				Token:        amount("100000"),
				MinLiquidity: amount("2"),
			},
		},
		{
			Name:        "add-liquidity-subsequent",
			TokenSupply: supply,
			Setup:       standard,
			Action: Action{
				Type:         ActionAddLiquidity,
				Core:         amount("50000"),
				MinLiquidity: amount("1"),
			},
		},
		{
			Name:        "add-liquidity-huge-pool",
			TokenSupply: amount("1000000000000000000000000000000000000000"),
			Setup:       []Deposit{{Core: amount(hugeCore), Token: amount(hugeToken)}},
			Action: Action{
				Type: ActionAddLiquidity,
				Core: amount("1000000000000000000"),
			},
		},
		{
			Name:        "add-liquidity-below-minimum",
			TokenSupply: supply,
			Setup:       standard,
			Action: Action{
				Type:         ActionAddLiquidity,
				Core:         amount("50000"),
				MinLiquidity: amount("50001"),
			},
			Expect: KindActionRejected,
		},
		{
			Name:        "sell-core-exact-input",
			TokenSupply: supply,
			Setup:       standard,
			Action:      swap(model.ExactInput, SideCore, SideToken, "10000", ""),
		},
		{
			Name:        "sell-core-huge-pool",
			TokenSupply: amount("1000000000000000000000000000000000000000"),
			Setup:       []Deposit{{Core: amount(hugeCore), Token: amount(hugeToken)}},
			Action:      swap(model.ExactInput, SideCore, SideToken, hugeCore, ""),
		},
		{
			Name:        "sell-token-exact-input",
			TokenSupply: supply,
			Setup:       standard,
			Action:      swap(model.ExactInput, SideToken, SideCore, "10000", "1"),
		},
		{
			Name:        "buy-token-exact-output",
			TokenSupply: supply,
			Setup:       standard,
			Action:      swap(model.ExactOutput, SideCore, SideToken, "5000", ""),
		},
		{
			Name:        "buy-core-exact-output",
			TokenSupply: supply,
			Setup:       standard,
			Action:      swap(model.ExactOutput, SideToken, SideCore, "10000", "100000"),
		},
		{
			Name:        "buy-token-huge-pool",
			TokenSupply: amount("1000000000000000000000000000000000000000"),
			Setup:       []Deposit{{Core: amount(hugeToken), Token: amount(hugeCore)}},
			Action:      swap(model.ExactOutput, SideCore, SideToken, "10000000000000000000", ""),
		},
		{
			Name:        "sell-core-below-minimum",
			TokenSupply: supply,
			Setup:       standard,
			Action:      swap(model.ExactInput, SideCore, SideToken, "10000", "5000"),
			Expect:      KindActionRejected,
		},
		{
			Name:        "buy-token-above-maximum",
			TokenSupply: supply,
			Setup:       standard,
			Action:      swap(model.ExactOutput, SideCore, SideToken, "5000", "10000"),
			Expect:      KindActionRejected,
		},
		{
			Name:        "buy-entire-pool",
			TokenSupply: supply,
			Setup:       standard,
			Action:      swap(model.ExactOutput, SideCore, SideToken, "100000", ""),
			Expect:      KindInsufficientPoolLiquidity,
		},
		{
			Name:              "swap-token-to-token-exact-input",
			TokenSupply:       supply,
			SecondTokenSupply: supply,
			Setup:             standard,
			SecondSetup:       []Deposit{{Core: amount("100000"), Token: amount("200000")}},
			Action:            swap(model.ExactInput, SideToken, SideSecond, "1000", ""),
		},
		{
			Name:              "swap-token-to-token-exact-output",
			TokenSupply:       supply,
			SecondTokenSupply: supply,
			Setup:             standard,
			SecondSetup:       []Deposit{{Core: amount("100000"), Token: amount("200000")}},
			Action:            swap(model.ExactOutput, SideToken, SideSecond, "1000", ""),
		},
		{
			Name:        "remove-liquidity-partial",
			TokenSupply: supply,
			Setup:       standard,
			Action: Action{
				Type:   ActionRemoveLiquidity,
				Shares: amount("50000"),
			},
		},
		{
			Name:        "remove-liquidity-all",
			TokenSupply: supply,
			Setup:       standard,
			Action: Action{
				Type:      ActionRemoveLiquidity,
				AllShares: true,
			},
		},
		{
			Name:        "remove-liquidity-below-minimum",
			TokenSupply: supply,
			Setup:       standard,
			Action: Action{
				Type:    ActionRemoveLiquidity,
				Shares:  amount("50000"),
				MinCore: amount("50001"),
			},
			Expect: KindActionRejected,
		},
		{
			Name:        "remove-more-than-owned",
			TokenSupply: supply,
			Setup:       standard,
			Action: Action{
				Type:   ActionRemoveLiquidity,
				Shares: amount("200001"),
			},
			Expect: KindInsufficientShares,
		},
	}
}

func swap(kind model.SwapKind, sell, buy Side, value, limit string) Action {
	action := Action{Type: ActionSwap, SwapKind: kind, Sell: sell, Buy: buy, Amount: amount(value)}
	if limit != "" {
		action.Limit = amount(limit)
	}
	return action
}

// amount parses a decimal literal from the catalog.
func amount(value string) *big.Int {
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("harness: bad amount literal " + value)
	}
	return parsed
}
