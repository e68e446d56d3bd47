package harness

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"cennzxScope/internal/accounts"
	"cennzxScope/internal/amm"
	"cennzxScope/internal/chain"
	"cennzxScope/internal/model"
	"cennzxScope/internal/simchain"
)

type memorySink struct {
	mu      sync.Mutex
	results []model.ScenarioResult
}

func (s *memorySink) PutResultBatch(ctx context.Context, results []model.ScenarioResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results...)
	return nil
}

func newNode(t *testing.T, mutate func(*simchain.Options)) *simchain.Node {
	t.Helper()
	opts := simchain.DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	node, err := simchain.New(opts, nil)
	require.NoError(t, err)
	return node
}

func newRunner(chain Chain, mutate func(*RunConfig)) *Runner {
	cfg := RunConfig{
		Formula:         amm.Formula{Fee: amm.DefaultFeeRate},
		Tolerance:       1,
		Concurrency:     4,
		ScenarioTimeout: 10 * time.Second,
		Trader:          model.Seed("//Alice"),
		RunID:           "test-run",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewRunner(cfg, chain, accounts.NewResolver(accounts.GenericPrefix, nil), nil, nil)
}

func scenarioNamed(t *testing.T, name string) Scenario {
	t.Helper()
	for _, sc := range DefaultScenarios() {
		if sc.Name == name {
			return sc
		}
	}
	t.Fatalf("no scenario named %s", name)
	return Scenario{}
}

func requireAllPassed(t *testing.T, summary Summary) {
	t.Helper()
	for _, res := range summary.Results {
		require.Truef(t, res.Passed, "%s: %s at %s: %s %v", res.Scenario, res.Kind, res.Step, res.Error, res.Mismatches)
	}
	require.True(t, summary.OK())
}

func TestDefaultScenariosPassAgainstLocalNode(t *testing.T) {
	node := newNode(t, nil)
	sink := &memorySink{}
	runner := newRunner(simchain.NewLocal(node), nil)
	runner.sink = sink

	scenarios := DefaultScenarios()
	summary, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.Len(t, summary.Results, len(scenarios))
	requireAllPassed(t, summary)
	require.Len(t, sink.results, len(scenarios))

	for i, res := range summary.Results {
		require.Equal(t, scenarios[i].Name, res.Scenario)
		require.Equal(t, "test-run", res.RunID)
	}
}

func TestDefaultScenariosPassOverRPC(t *testing.T) {
	node := newNode(t, nil)
	server, err := simchain.NewRPCServer(node)
	require.NoError(t, err)
	defer server.Stop()

	client := chain.NewClient(rpc.DialInProc(server), chain.Options{PollInterval: time.Millisecond}, nil)
	defer client.Close()

	runner := NewRunner(RunConfig{
		Formula:         amm.Formula{Fee: amm.DefaultFeeRate},
		Tolerance:       1,
		Concurrency:     3,
		ScenarioTimeout: 30 * time.Second,
		Trader:          model.Seed("//Alice"),
		RunID:           "rpc-run",
	}, client, accounts.NewResolver(accounts.GenericPrefix, client.ResolveSeed), nil, nil)

	summary, err := runner.Run(context.Background(), DefaultScenarios())
	require.NoError(t, err)
	requireAllPassed(t, summary)
}

func TestNamedScenarioResults(t *testing.T) {
	node := newNode(t, nil)
	runner := newRunner(simchain.NewLocal(node), nil)

	scenarios := []Scenario{
		scenarioNamed(t, "add-liquidity-first-deposit"),
		scenarioNamed(t, "sell-core-huge-pool"),
		scenarioNamed(t, "remove-liquidity-all"),
	}
	summary, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)
	requireAllPassed(t, summary)

	huge := summary.Results[1]
	require.Equal(t, "169745381927109335995192542838263822439", huge.FormulaPrice)
	require.Equal(t, huge.FormulaPrice, huge.LivePrice)

	token := model.AssetID(summary.Results[2].TokenID)
	pool := node.Pool(token)
	require.Zero(t, pool.CoreBalance.Sign())
	require.Zero(t, pool.TokenBalance.Sign())
	require.Zero(t, pool.TotalLiquidity.Sign())
}

func TestQuoteSkewWithinTolerancePasses(t *testing.T) {
	node := newNode(t, func(o *simchain.Options) { o.QuoteSkew = 1 })
	summary, err := newRunner(simchain.NewLocal(node), nil).Run(context.Background(), DefaultScenarios())
	require.NoError(t, err)
	requireAllPassed(t, summary)
}

func TestQuoteSkewBeyondToleranceIsPriceMismatch(t *testing.T) {
	node := newNode(t, func(o *simchain.Options) { o.QuoteSkew = 2 })
	metrics := NewMetrics(nil)
	runner := newRunner(simchain.NewLocal(node), nil).WithMetrics(metrics)

	summary, err := runner.Run(context.Background(), []Scenario{
		scenarioNamed(t, "sell-core-exact-input"),
		scenarioNamed(t, "add-liquidity-first-deposit"),
		scenarioNamed(t, "remove-liquidity-partial"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Passed)
	require.Equal(t, 2, summary.Failed)

	swap := summary.Results[0]
	require.False(t, swap.Passed)
	require.Equal(t, string(KindPriceMismatch), swap.Kind)
	require.Equal(t, "quote", swap.Step)
	require.Equal(t, "4748", swap.FormulaPrice)
	require.Equal(t, "4750", swap.LivePrice)
	require.Empty(t, swap.TxHash)

	require.True(t, summary.Results[1].Passed)
	require.Equal(t, string(KindPriceMismatch), summary.Results[2].Kind)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ScenariosTotal.WithLabelValues("add_liquidity", "pass", "")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ScenariosTotal.WithLabelValues("swap", "fail", string(KindPriceMismatch))))
	require.Equal(t, 3.0, testutil.ToFloat64(metrics.PriceChecks.WithLabelValues("mismatch")))
}

type feeUnderReporting struct {
	Chain
}

func (c feeUnderReporting) SubmitSwap(ctx context.Context, trader model.Address, req model.SwapRequest) (model.TxOutcome, error) {
	outcome, err := c.Chain.SubmitSwap(ctx, trader, req)
	if err == nil && outcome.Fee != nil {
		outcome.Fee = new(big.Int).Sub(outcome.Fee, big.NewInt(1))
	}
	return outcome, err
}

func TestBalanceMismatchDetected(t *testing.T) {
	node := newNode(t, nil)
	runner := newRunner(feeUnderReporting{simchain.NewLocal(node)}, nil)

	summary, err := runner.Run(context.Background(), []Scenario{scenarioNamed(t, "sell-token-exact-input")})
	require.NoError(t, err)

	res := summary.Results[0]
	require.False(t, res.Passed)
	require.Equal(t, string(KindBalanceMismatch), res.Kind)
	require.Len(t, res.Mismatches, 1)
	require.Equal(t, string(TraderCore), res.Mismatches[0].Balance)
}

type refusingChain struct {
	Chain
}

func (c refusingChain) SubmitSwap(ctx context.Context, trader model.Address, req model.SwapRequest) (model.TxOutcome, error) {
	return model.TxOutcome{Status: model.TxRejected, Hash: "0xdead", Reason: "cennzx.PoolPaused"}, nil
}

func (c refusingChain) CreateToken(ctx context.Context, issuer model.Address, totalSupply *big.Int) (model.AssetID, error) {
	if totalSupply.Cmp(big.NewInt(7)) == 0 {
		return 0, fmt.Errorf("%w: asset limit reached", model.ErrIssuanceRejected)
	}
	return c.Chain.CreateToken(ctx, issuer, totalSupply)
}

func TestUnexpectedRejectionIsActionRejected(t *testing.T) {
	node := newNode(t, nil)
	runner := newRunner(refusingChain{simchain.NewLocal(node)}, nil)

	issuance := scenarioNamed(t, "sell-core-exact-input")
	issuance.Name = "issuance-refused"
	issuance.TokenSupply = big.NewInt(7)

	summary, err := runner.Run(context.Background(), []Scenario{scenarioNamed(t, "sell-core-exact-input"), issuance})
	require.NoError(t, err)

	require.Equal(t, string(KindActionRejected), summary.Results[0].Kind)
	require.Contains(t, summary.Results[0].Error, "cennzx.PoolPaused")
	require.Equal(t, string(KindIssuanceRejected), summary.Results[1].Kind)
	require.Equal(t, "create token", summary.Results[1].Step)
}

func TestExpectedRejectionThatSucceedsFails(t *testing.T) {
	node := newNode(t, nil)
	sc := scenarioNamed(t, "sell-core-exact-input")
	sc.Name = "expects-rejection"
	sc.Expect = KindActionRejected

	summary, err := newRunner(simchain.NewLocal(node), nil).Run(context.Background(), []Scenario{sc})
	require.NoError(t, err)
	require.False(t, summary.Results[0].Passed)
	require.Equal(t, string(KindExpectationUnmet), summary.Results[0].Kind)
}

func TestExpectedRejectionChargesOnlyFee(t *testing.T) {
	node := newNode(t, nil)
	summary, err := newRunner(simchain.NewLocal(node), nil).Run(context.Background(), []Scenario{
		scenarioNamed(t, "buy-token-above-maximum"),
		scenarioNamed(t, "remove-liquidity-below-minimum"),
		scenarioNamed(t, "add-liquidity-below-minimum"),
	})
	require.NoError(t, err)
	requireAllPassed(t, summary)
	for _, res := range summary.Results {
		require.Equal(t, string(KindActionRejected), res.Kind)
		require.Equal(t, "1000", res.Fee)
	}
}

func TestScenarioTimeout(t *testing.T) {
	node := newNode(t, func(o *simchain.Options) { o.BlockTime = time.Hour })
	runner := newRunner(simchain.NewLocal(node), func(cfg *RunConfig) {
		cfg.ScenarioTimeout = 50 * time.Millisecond
	})

	summary, err := runner.Run(context.Background(), []Scenario{scenarioNamed(t, "sell-core-exact-input")})
	require.NoError(t, err)
	require.Equal(t, string(KindOperationTimeout), summary.Results[0].Kind)
	require.Equal(t, "create token", summary.Results[0].Step)
}

func TestCheckpointSkipsPassedScenarios(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	node := newNode(t, func(o *simchain.Options) { o.QuoteSkew = 2 })
	scenarios := []Scenario{
		scenarioNamed(t, "add-liquidity-first-deposit"),
		scenarioNamed(t, "sell-core-exact-input"),
	}

	first, err := newRunner(simchain.NewLocal(node), nil).
		WithCheckpoint(NewCheckpointStore(path, true)).
		Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.Equal(t, 1, first.Passed)

	resumed, err := newRunner(simchain.NewLocal(node), nil).
		WithCheckpoint(NewCheckpointStore(path, true)).
		Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.Equal(t, []string{"add-liquidity-first-deposit"}, resumed.Skipped)
	require.Len(t, resumed.Results, 1)
	require.Equal(t, "sell-core-exact-input", resumed.Results[0].Scenario)

	cp, ok, err := NewCheckpointStore(path, true).Load("")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "test-run", cp.RunID)
}

func TestCheckpointFromAnotherRunIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	node := newNode(t, nil)
	scenarios := []Scenario{scenarioNamed(t, "add-liquidity-first-deposit")}

	_, err := newRunner(simchain.NewLocal(node), nil).
		WithCheckpoint(NewCheckpointStore(path, true)).
		Run(context.Background(), scenarios)
	require.NoError(t, err)

	second, err := newRunner(simchain.NewLocal(node), func(cfg *RunConfig) { cfg.RunID = "second" }).
		WithCheckpoint(NewCheckpointStore(path, true)).
		Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.Empty(t, second.Skipped)
	require.Len(t, second.Results, 1)
	require.Equal(t, "second", second.Results[0].RunID)

	cp, ok, err := NewCheckpointStore(path, true).Load("")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", cp.RunID)
	require.Equal(t, []string{"add-liquidity-first-deposit"}, cp.Passed)

	_, ok, err = NewCheckpointStore(path, true).Load("third")
	require.NoError(t, err)
	require.False(t, ok)
}

type cancellingChain struct {
	Chain
	cancel context.CancelFunc
}

func (c cancellingChain) CreateToken(ctx context.Context, issuer model.Address, totalSupply *big.Int) (model.AssetID, error) {
	c.cancel()
	return c.Chain.CreateToken(ctx, issuer, totalSupply)
}

func TestCancelledRunSkipsPendingScenarios(t *testing.T) {
	node := newNode(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scenarios := []Scenario{
		scenarioNamed(t, "sell-core-exact-input"),
		scenarioNamed(t, "buy-token-exact-output"),
		scenarioNamed(t, "remove-liquidity-partial"),
	}
	summary, err := newRunner(cancellingChain{Chain: simchain.NewLocal(node), cancel: cancel}, func(cfg *RunConfig) { cfg.Concurrency = 1 }).
		Run(ctx, scenarios)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	require.Equal(t, "sell-core-exact-input", summary.Results[0].Scenario)
	require.Equal(t, []string{"buy-token-exact-output", "remove-liquidity-partial"}, summary.Skipped)
}

func TestSetupRejectionFailsScenarioExpectingRejection(t *testing.T) {
	node := newNode(t, nil)
	sc := scenarioNamed(t, "add-liquidity-below-minimum")
	sc.TokenSupply = big.NewInt(1)

	summary, err := newRunner(simchain.NewLocal(node), nil).Run(context.Background(), []Scenario{sc})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	res := summary.Results[0]
	require.False(t, res.Passed)
	require.Equal(t, string(KindActionRejected), res.Kind)
	require.Equal(t, "setup deposit 0", res.Step)
	require.NotEmpty(t, res.Error)
	require.False(t, summary.OK())
}

func TestScenariosWithDistinctTradersRunConcurrently(t *testing.T) {
	node := newNode(t, nil)
	var scenarios []Scenario
	for _, seed := range []string{"//Alice", "//Bob", "//Charlie", "//Dave"} {
		for _, name := range []string{"sell-core-exact-input", "buy-core-exact-output", "remove-liquidity-partial"} {
			sc := scenarioNamed(t, name)
			sc.Name = seed + "/" + name
			sc.Trader = model.Seed(seed)
			scenarios = append(scenarios, sc)
		}
	}

	summary, err := newRunner(simchain.NewLocal(node), func(cfg *RunConfig) { cfg.Concurrency = 8 }).
		Run(context.Background(), scenarios)
	require.NoError(t, err)
	requireAllPassed(t, summary)
	require.Equal(t, len(scenarios), summary.Passed)
}

func TestRunRejectsInvalidScenario(t *testing.T) {
	node := newNode(t, nil)
	sc := scenarioNamed(t, "sell-core-exact-input")
	sc.Action.Amount = nil

	_, err := newRunner(simchain.NewLocal(node), nil).Run(context.Background(), []Scenario{sc})
	require.Error(t, err)
}
