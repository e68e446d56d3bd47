package amm

import (
	"errors"
	"math/big"
	"testing"

	"pgregory.net/rapid"

	"cennzxScope/internal/model"
)

// amountGen draws positive integers up to 2^bits-1, biased towards the full
// range of magnitudes.
func amountGen(bits int) *rapid.Generator[*big.Int] {
	return rapid.Custom(func(t *rapid.T) *big.Int {
		hi := rapid.Uint64().Draw(t, "hi")
		lo := rapid.Uint64().Draw(t, "lo")
		width := rapid.IntRange(1, bits).Draw(t, "width")

		value := new(big.Int).Lsh(new(big.Int).SetUint64(hi), 64)
		value.Or(value, new(big.Int).SetUint64(lo))
		value.Rsh(value, uint(128-width))
		if value.Sign() == 0 {
			value.SetInt64(1)
		}
		return value
	})
}

var feeGen = rapid.Custom(func(t *rapid.T) FeeRate {
	return FeeRate(rapid.Uint64Range(0, 100_000).Draw(t, "fee"))
})

func TestPropertyInputSwapPreservesProduct(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		formula := Formula{Fee: feeGen.Draw(t, "fee")}
		poolSold := amountGen(128).Draw(t, "poolSold")
		poolBought := amountGen(128).Draw(t, "poolBought")
		amountSold := amountGen(128).Draw(t, "amountSold")

		bought, err := formula.InputPrice(poolSold, poolBought, amountSold)
		if err != nil {
			t.Fatalf("input price: %v", err)
		}
		if bought.Cmp(poolBought) >= 0 {
			t.Fatalf("bought %s drains pool %s", bought, poolBought)
		}

		before := new(big.Int).Mul(poolSold, poolBought)
		after := new(big.Int).Mul(
			new(big.Int).Add(poolSold, amountSold),
			new(big.Int).Sub(poolBought, bought),
		)
		if after.Cmp(before) < 0 {
			t.Fatalf("product decreased: %s < %s", after, before)
		}
	})
}

func TestPropertyOutputSwapPreservesProduct(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		formula := Formula{Fee: feeGen.Draw(t, "fee")}
		poolSold := amountGen(128).Draw(t, "poolSold")
		poolBought := amountGen(128).Draw(t, "poolBought")
		if poolBought.Cmp(big.NewInt(1)) <= 0 {
			t.Skip("pool too small to buy from")
		}
		amountBought := new(big.Int).Add(
			new(big.Int).Rem(amountGen(128).Draw(t, "amountBought"), new(big.Int).Sub(poolBought, big.NewInt(1))),
			big.NewInt(1),
		)

		sold, err := formula.OutputPrice(poolSold, poolBought, amountBought)
		if err != nil {
			t.Fatalf("output price: %v", err)
		}

		before := new(big.Int).Mul(poolSold, poolBought)
		after := new(big.Int).Mul(
			new(big.Int).Add(poolSold, sold),
			new(big.Int).Sub(poolBought, amountBought),
		)
		if after.Cmp(before) < 0 {
			t.Fatalf("product decreased: %s < %s", after, before)
		}
	})
}

func TestPropertyRoundTripExtractsNoValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		formula := Formula{Fee: feeGen.Draw(t, "fee")}
		poolSold := amountGen(128).Draw(t, "poolSold")
		poolBought := amountGen(128).Draw(t, "poolBought")
		amountSold := amountGen(128).Draw(t, "amountSold")

		bought, err := formula.InputPrice(poolSold, poolBought, amountSold)
		if err != nil {
			t.Fatalf("input price: %v", err)
		}
		if bought.Sign() == 0 {
			t.Skip("trade too small to buy anything")
		}

		cost, err := formula.OutputPrice(poolSold, poolBought, bought)
		if err != nil {
			t.Fatalf("output price: %v", err)
		}
		if cost.Cmp(amountSold) > 0 {
			t.Fatalf("buying %s back costs %s, more than the %s originally paid", bought, cost, amountSold)
		}
	})
}

func TestPropertyOutputPriceBoundary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		formula := Formula{Fee: feeGen.Draw(t, "fee")}
		poolSold := amountGen(128).Draw(t, "poolSold")
		poolBought := amountGen(128).Draw(t, "poolBought")
		excess := new(big.Int).Sub(amountGen(64).Draw(t, "excess"), big.NewInt(1))
		amountBought := new(big.Int).Add(poolBought, excess)

		price, err := formula.OutputPrice(poolSold, poolBought, amountBought)
		if !errors.Is(err, ErrInsufficientPoolLiquidity) {
			t.Fatalf("expected insufficient liquidity, got price %v err %v", price, err)
		}
	})
}

func TestPropertyLiquidityRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		coreIn := amountGen(127).Draw(t, "coreIn")
		tokenIn := amountGen(127).Draw(t, "tokenIn")
		pool := model.NewExchangePool(tokenA, nil, nil, nil)

		first, err := AddLiquidity(pool, coreIn, tokenIn)
		if err != nil {
			t.Fatalf("first deposit: %v", err)
		}
		pool = model.NewExchangePool(tokenA, coreIn, first.TokenRequired, first.Minted)
		position := model.LiquidityPosition{Trader: "alice", Shares: first.Minted}

		// A second deposit never dilutes the value of existing shares.
		more := amountGen(127).Draw(t, "more")
		second, err := AddLiquidityPrice(pool, more)
		if err != nil {
			t.Fatalf("second deposit: %v", err)
		}
		lhs := new(big.Int).Mul(more, pool.TotalLiquidity)
		rhs := new(big.Int).Mul(pool.CoreBalance, second.Minted)
		if lhs.Cmp(rhs) < 0 {
			t.Fatalf("core per share diluted")
		}
		lhs = new(big.Int).Mul(second.TokenRequired, pool.TotalLiquidity)
		rhs = new(big.Int).Mul(pool.TokenBalance, second.Minted)
		if lhs.Cmp(rhs) < 0 {
			t.Fatalf("token per share diluted")
		}

		// Burning every share of the sole provider returns the whole pool.
		payout, err := RemoveLiquidityPrice(pool, position, position.Shares)
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if payout.Core.Cmp(pool.CoreBalance) != 0 || payout.Token.Cmp(pool.TokenBalance) != 0 {
			t.Fatalf("full burn returned %s/%s of %s/%s", payout.Core, payout.Token, pool.CoreBalance, pool.TokenBalance)
		}
	})
}

func TestPropertyPartialRemovalIsProportional(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := amountGen(128).Draw(t, "total")
		pool := model.NewExchangePool(tokenA, amountGen(128).Draw(t, "core"), amountGen(128).Draw(t, "token"), total)
		burned := new(big.Int).Add(new(big.Int).Rem(amountGen(128).Draw(t, "burned"), total), big.NewInt(1))
		position := model.LiquidityPosition{Trader: "alice", Shares: total}

		payout, err := RemoveLiquidityPrice(pool, position, burned)
		if err != nil {
			t.Fatalf("remove: %v", err)
		}

		// payout/pool <= burned/total, and the shortfall is less than one unit.
		for _, side := range []struct{ paid, held *big.Int }{
			{payout.Core, pool.CoreBalance},
			{payout.Token, pool.TokenBalance},
		} {
			paidScaled := new(big.Int).Mul(side.paid, total)
			owed := new(big.Int).Mul(side.held, burned)
			if paidScaled.Cmp(owed) > 0 {
				t.Fatalf("paid out more than the proportional share")
			}
			if new(big.Int).Sub(owed, paidScaled).Cmp(total) >= 0 {
				t.Fatalf("paid out a full unit less than the proportional share")
			}
		}
	})
}
