package harness

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"cennzxScope/internal/model"
)

// BalanceKey names a tracked balance.
type BalanceKey string

const (
	TraderCore       BalanceKey = "trader_core"
	TraderToken      BalanceKey = "trader_token"
	PoolCore         BalanceKey = "pool_core"
	PoolToken        BalanceKey = "pool_token"
	TotalLiquidity   BalanceKey = "total_liquidity"
	TraderLiquidity  BalanceKey = "trader_liquidity"
	TraderSecond     BalanceKey = "trader_second_token"
	SecondPoolCore   BalanceKey = "second_pool_core"
	SecondPoolToken  BalanceKey = "second_pool_token"
	SecondTotalShare BalanceKey = "second_total_liquidity"
)

// Snapshot is the set of tracked balances at one point in time.
type Snapshot map[BalanceKey]*big.Int

// subject is everything a snapshot reads for one scenario.
type subject struct {
	trader model.Address
	core   model.AssetID
	token  model.AssetID
	second model.AssetID
	dual   bool
}

func takeSnapshot(ctx context.Context, chain Chain, s subject) (Snapshot, error) {
	snap := Snapshot{}

	core, err := chain.FreeBalance(ctx, s.trader, s.core)
	if err != nil {
		return nil, fmt.Errorf("read trader core balance: %w", err)
	}
	snap[TraderCore] = core

	if err := readPool(ctx, chain, s.trader, s.token, snap, TraderToken, PoolCore, PoolToken, TotalLiquidity); err != nil {
		return nil, err
	}
	shares, err := chain.Liquidity(ctx, s.token, s.trader)
	if err != nil {
		return nil, fmt.Errorf("read trader liquidity: %w", err)
	}
	snap[TraderLiquidity] = shares

	if s.dual {
		if err := readPool(ctx, chain, s.trader, s.second, snap, TraderSecond, SecondPoolCore, SecondPoolToken, SecondTotalShare); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func readPool(ctx context.Context, chain Chain, trader model.Address, token model.AssetID, snap Snapshot, traderKey, coreKey, tokenKey, totalKey BalanceKey) error {
	held, err := chain.FreeBalance(ctx, trader, token)
	if err != nil {
		return fmt.Errorf("read trader balance of %s: %w", token, err)
	}
	pool, err := chain.PoolBalance(ctx, token)
	if err != nil {
		return fmt.Errorf("read pool %s: %w", token, err)
	}
	total, err := chain.TotalLiquidity(ctx, token)
	if err != nil {
		return fmt.Errorf("read total liquidity of %s: %w", token, err)
	}
	snap[traderKey] = held
	snap[coreKey] = pool.Core
	snap[tokenKey] = pool.Token
	snap[totalKey] = total
	return nil
}

// pool returns the exchange pool recorded under the given keys.
func (s Snapshot) pool(token model.AssetID, coreKey, tokenKey, totalKey BalanceKey) model.ExchangePool {
	return model.NewExchangePool(token, s[coreKey], s[tokenKey], s[totalKey])
}

// Deltas is the signed change of each tracked balance.
type Deltas map[BalanceKey]*big.Int

// Diff returns after-before for every key in either snapshot.
func Diff(before, after Snapshot) Deltas {
	out := Deltas{}
	for key, value := range after {
		prev := before[key]
		if prev == nil {
			prev = new(big.Int)
		}
		out[key] = new(big.Int).Sub(value, prev)
	}
	for key, value := range before {
		if _, ok := after[key]; !ok {
			out[key] = new(big.Int).Neg(value)
		}
	}
	return out
}

// add accumulates amount into key.
func (d Deltas) add(key BalanceKey, amount *big.Int) {
	current := d[key]
	if current == nil {
		current = new(big.Int)
	}
	d[key] = current.Add(current, amount)
}

func (d Deltas) sub(key BalanceKey, amount *big.Int) {
	d.add(key, new(big.Int).Neg(amount))
}

// Compare reports every key whose actual delta differs from the expected one.
// Keys missing from either side count as zero.
func Compare(expected, actual Deltas) []model.DeltaMismatch {
	keys := make(map[BalanceKey]struct{}, len(expected)+len(actual))
	for key := range expected {
		keys[key] = struct{}{}
	}
	for key := range actual {
		keys[key] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, string(key))
	}
	sort.Strings(sorted)

	var mismatches []model.DeltaMismatch
	for _, name := range sorted {
		key := BalanceKey(name)
		want, got := orZero(expected[key]), orZero(actual[key])
		if want.Cmp(got) != 0 {
			mismatches = append(mismatches, model.DeltaMismatch{
				Balance:  name,
				Expected: want.String(),
				Actual:   got.String(),
			})
		}
	}
	return mismatches
}

func orZero(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return value
}
