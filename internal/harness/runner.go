package harness

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cennzxScope/internal/amm"
	"cennzxScope/internal/model"
)

// RunConfig holds runtime settings for a harness run.
type RunConfig struct {
	Formula amm.Formula
	// Tolerance is the largest accepted difference between a live quote and
	// the formula, in base units.
	Tolerance       int64
	Concurrency     int
	ScenarioTimeout time.Duration
	Trader          model.AccountRef
	RunID           string
}

// ResultSink stores scenario results as they complete.
type ResultSink interface {
	PutResultBatch(ctx context.Context, results []model.ScenarioResult) error
}

// Runner executes scenarios against a Chain and checks them against the formula.
type Runner struct {
	cfg        RunConfig
	chain      Chain
	resolver   AccountResolver
	sink       ResultSink
	logger     *zap.Logger
	metrics    *Metrics
	checkpoint *CheckpointStore
	traders    traderLocks
}

// traderLocks serializes scenarios that share a trader, whose core balance
// every one of them tracks.
type traderLocks struct {
	mu    sync.Mutex
	locks map[model.Address]*sync.Mutex
}

func (l *traderLocks) lock(trader model.Address) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[model.Address]*sync.Mutex)
	}
	m, ok := l.locks[trader]
	if !ok {
		m = &sync.Mutex{}
		l.locks[trader] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chain Chain, resolver AccountResolver, sink ResultSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ScenarioTimeout <= 0 {
		cfg.ScenarioTimeout = 5 * time.Minute
	}
	return &Runner{
		cfg:      cfg,
		chain:    chain,
		resolver: resolver,
		sink:     sink,
		logger:   logger,
	}
}

// WithMetrics attaches Prometheus collectors.
func (r *Runner) WithMetrics(metrics *Metrics) *Runner {
	r.metrics = metrics
	return r
}

// WithCheckpoint makes the runner skip scenarios that passed before.
func (r *Runner) WithCheckpoint(checkpoint *CheckpointStore) *Runner {
	r.checkpoint = checkpoint
	return r
}

// Summary is the outcome of a run. Results keep scenario order.
type Summary struct {
	RunID   string
	Results []model.ScenarioResult
	// Skipped holds scenarios that passed in an earlier run and those that
	// never started because ctx was cancelled.
	Skipped []string
	Passed  int
	Failed  int
}

// OK reports whether every executed scenario passed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Run executes scenarios concurrently. A failing scenario never stops the
// others; the returned error is reserved for setup and storage problems.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (Summary, error) {
	if r.chain == nil {
		return Summary{}, fmt.Errorf("chain is nil")
	}
	if r.resolver == nil {
		return Summary{}, fmt.Errorf("account resolver is nil")
	}
	if r.cfg.Tolerance < 0 {
		return Summary{}, fmt.Errorf("tolerance must not be negative")
	}
	if err := r.cfg.Formula.Fee.Validate(); err != nil {
		return Summary{}, err
	}
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return Summary{}, err
		}
	}

	if cp, ok, err := r.checkpoint.Load(r.cfg.RunID); err != nil {
		return Summary{}, err
	} else if ok {
		r.logger.Info("resume from checkpoint", zap.String("run_id", cp.RunID), zap.Int("passed", len(cp.Passed)))
	}

	core, err := r.chain.CoreAssetID(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("get core asset: %w", err)
	}
	r.logger.Info("run start",
		zap.String("run_id", r.cfg.RunID),
		zap.Int("scenarios", len(scenarios)),
		zap.Uint64("core_asset", uint64(core)),
		zap.String("fee_rate", r.cfg.Formula.Fee.String()),
	)

	summary := Summary{RunID: r.cfg.RunID}
	results := make([]*model.ScenarioResult, len(scenarios))
	cancelled := make([]bool, len(scenarios))

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, sc := range scenarios {
		if r.checkpoint.Done(sc.Name) {
			summary.Skipped = append(summary.Skipped, sc.Name)
			r.logger.Info("skip passed scenario", zap.String("scenario", sc.Name))
			continue
		}
		if ctx.Err() != nil {
			cancelled[i] = true
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				cancelled[i] = true
				return nil
			}
			res := r.runScenario(ctx, core, sc)
			results[i] = &res

			if r.sink != nil {
				if err := r.sink.PutResultBatch(ctx, []model.ScenarioResult{res}); err != nil {
					return fmt.Errorf("store result %s: %w", sc.Name, err)
				}
			}
			if res.Passed {
				if err := r.checkpoint.MarkPassed(r.cfg.RunID, sc.Name); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err = g.Wait()

	for i, skip := range cancelled {
		if skip {
			summary.Skipped = append(summary.Skipped, scenarios[i].Name)
			r.logger.Info("skip scenario after cancel", zap.String("scenario", scenarios[i].Name))
		}
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		summary.Results = append(summary.Results, *res)
		if res.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	r.logger.Info("run complete",
		zap.String("run_id", r.cfg.RunID),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", len(summary.Skipped)),
	)
	return summary, err
}

func (r *Runner) runScenario(ctx context.Context, core model.AssetID, sc Scenario) model.ScenarioResult {
	started := time.Now()
	res := model.ScenarioResult{
		RunID:     r.cfg.RunID,
		Scenario:  sc.Name,
		Action:    string(sc.Action.Type),
		StartedAt: started.UTC().Format(time.RFC3339Nano),
	}

	rejected, failure := r.execute(ctx, core, sc, &res)
	res.DurationMs = time.Since(started).Milliseconds()

	switch {
	case failure == nil && sc.Expect == KindActionRejected && !rejected:
		failure = fail(KindExpectationUnmet, "verify", fmt.Errorf("expected %s but the action was accepted", sc.Expect))
	case failure == nil && sc.Expect != "" && sc.Expect != KindActionRejected:
		failure = fail(KindExpectationUnmet, "verify", fmt.Errorf("expected %s but the action succeeded", sc.Expect))
	}

	switch {
	case failure == nil:
		res.Passed = true
		res.Kind = string(sc.Expect)
	case failure.Kind == sc.Expect && failure.fromAction():
		res.Passed = true
		res.Kind = string(failure.Kind)
		res.Step = failure.Step
	default:
		res.Kind = string(failure.Kind)
		res.Step = failure.Step
		res.Error = failure.Err.Error()
	}

	result := "pass"
	if !res.Passed {
		result = "fail"
	}
	if r.metrics != nil {
		r.metrics.ScenariosTotal.WithLabelValues(res.Action, result, res.Kind).Inc()
		r.metrics.ScenarioDuration.WithLabelValues(res.Action).Observe(time.Since(started).Seconds())
	}

	fields := []zap.Field{
		zap.String("scenario", sc.Name),
		zap.String("action", res.Action),
		zap.Uint64("token", res.TokenID),
		zap.Int64("duration_ms", res.DurationMs),
	}
	if res.Passed {
		r.logger.Info("scenario passed", append(fields, zap.String("expected", res.Kind))...)
	} else {
		r.logger.Warn("scenario failed", append(fields,
			zap.String("kind", res.Kind),
			zap.String("step", res.Step),
			zap.String("error", res.Error),
		)...)
	}
	return res
}

// execute runs one scenario and reports whether the node rejected the action.
// The scenario timeout starts once the trader is free.
func (r *Runner) execute(ctx context.Context, core model.AssetID, sc Scenario, res *model.ScenarioResult) (bool, *Failure) {
	ref := sc.Trader
	if ref.Value == "" {
		ref = r.cfg.Trader
	}
	trader, err := r.resolver.Resolve(ctx, ref)
	if err != nil {
		return false, fail(KindInternal, "resolve trader", err)
	}
	res.Trader = string(trader)
	defer r.traders.lock(trader)()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ScenarioTimeout)
	defer cancel()

	s := subject{trader: trader, core: core, dual: sc.UsesSecondToken()}
	if s.token, err = r.chain.CreateToken(ctx, trader, sc.TokenSupply); err != nil {
		return false, failFrom("create token", err)
	}
	res.TokenID = uint64(s.token)
	if s.dual {
		if s.second, err = r.chain.CreateToken(ctx, trader, sc.SecondTokenSupply); err != nil {
			return false, failFrom("create second token", err)
		}
	}

	if f := r.seed(ctx, trader, s.token, sc.Setup); f != nil {
		return false, f
	}
	if f := r.seed(ctx, trader, s.second, sc.SecondSetup); f != nil {
		return false, f
	}

	before, err := takeSnapshot(ctx, r.chain, s)
	if err != nil {
		return false, failFrom("snapshot before", err)
	}

	p, err := predict(r.cfg.Formula, sc.Action, s, before)
	if err != nil {
		return false, failFrom(stepPredict, err)
	}
	if f := r.checkQuote(ctx, s, p, res); f != nil {
		return false, f
	}

	outcome, err := r.submit(ctx, trader, sc.Action.Type, p)
	if err != nil {
		return false, failFrom(stepSubmit, err)
	}
	res.TxHash = outcome.Hash
	res.Fee = outcome.FeePaid().String()
	r.metrics.observeFee(outcome.Fee)

	switch outcome.Status {
	case model.TxTimedOut:
		return false, fail(KindOperationTimeout, stepSubmit, fmt.Errorf("%w: transaction %s", model.ErrOperationTimeout, outcome.Hash))
	case model.TxRejected:
		if p.rejection == nil && sc.Expect != KindActionRejected {
			return true, fail(KindActionRejected, stepSubmit, fmt.Errorf("%w: %s", ErrActionRejected, outcome.Reason))
		}
	case model.TxFinalized:
		if p.rejection != nil {
			return false, fail(KindBalanceMismatch, stepSubmit, fmt.Errorf("%w: node accepted an action outside its bounds: %v", ErrBalanceMismatch, p.rejection))
		}
		if sc.Expect == KindActionRejected {
			return false, fail(KindExpectationUnmet, stepSubmit, fmt.Errorf("expected %s but transaction %s finalized", sc.Expect, outcome.Hash))
		}
	}
	rejected := outcome.Status == model.TxRejected

	after, err := takeSnapshot(ctx, r.chain, s)
	if err != nil {
		return rejected, failFrom("snapshot after", err)
	}

	expected := p.expectedDeltas(outcome.FeePaid(), rejected)
	if mismatches := Compare(expected, Diff(before, after)); len(mismatches) > 0 {
		res.Mismatches = mismatches
		return rejected, fail(KindBalanceMismatch, "verify balances", fmt.Errorf("%w: %d tracked balances differ", ErrBalanceMismatch, len(mismatches)))
	}

	if !rejected {
		for _, keys := range p.pools {
			was := amm.Product(before.pool(keys.token, keys.core, keys.held, keys.total))
			now := amm.Product(after.pool(keys.token, keys.core, keys.held, keys.total))
			if now.Cmp(was) < 0 {
				return rejected, fail(KindBalanceMismatch, "verify invariant", fmt.Errorf("%w: pool %s product fell from %s to %s", ErrBalanceMismatch, keys.token, was, now))
			}
		}
	}
	return rejected, nil
}

func (r *Runner) seed(ctx context.Context, trader model.Address, token model.AssetID, deposits []Deposit) *Failure {
	for i, deposit := range deposits {
		outcome, err := r.chain.SubmitAddLiquidity(ctx, trader, model.AddLiquidityRequest{
			Token:          token,
			CoreAmount:     deposit.Core,
			MaxTokenAmount: deposit.Token,
		})
		step := fmt.Sprintf("setup deposit %d", i)
		if err != nil {
			return failFrom(step, err)
		}
		switch outcome.Status {
		case model.TxTimedOut:
			return fail(KindOperationTimeout, step, fmt.Errorf("%w: transaction %s", model.ErrOperationTimeout, outcome.Hash))
		case model.TxRejected:
			return fail(KindActionRejected, step, fmt.Errorf("%w: %s", ErrActionRejected, outcome.Reason))
		}
	}
	return nil
}

func (r *Runner) checkQuote(ctx context.Context, s subject, p plan, res *model.ScenarioResult) *Failure {
	tolerance := r.cfg.Tolerance

	if p.payout != nil {
		res.FormulaPrice = formatPayout(*p.payout)
		live, err := r.chain.QuoteRemoveLiquidityPrice(ctx, s.token, p.remove.Shares)
		if err != nil {
			return failFrom("quote", err)
		}
		res.LivePrice = formatPayout(live)
		coreOK := amm.Within(live.Core, p.payout.Core, tolerance)
		tokenOK := amm.Within(live.Token, p.payout.Token, tolerance)
		r.metrics.observePrice(live.Core, p.payout.Core, coreOK)
		r.metrics.observePrice(live.Token, p.payout.Token, tokenOK)
		if !coreOK || !tokenOK {
			return fail(KindPriceMismatch, "quote", fmt.Errorf("%w: live payout %s, formula %s, tolerance %d", ErrPriceMismatch, res.LivePrice, res.FormulaPrice, tolerance))
		}
		return nil
	}

	if p.price == nil {
		return nil
	}
	res.FormulaPrice = p.price.String()

	var (
		live *big.Int
		err  error
	)
	switch {
	case p.swap.Kind == model.ExactInput:
		live, err = r.chain.QuoteInputPrice(ctx, p.swap.AssetSold, p.swap.AssetBought, p.swap.Amount)
	case p.swap.Kind == model.ExactOutput:
		live, err = r.chain.QuoteOutputPrice(ctx, p.swap.AssetSold, p.swap.AssetBought, p.swap.Amount)
	default:
		live, err = r.chain.QuoteAddLiquidityPrice(ctx, p.add.Token, p.add.CoreAmount)
	}
	if err != nil {
		return failFrom("quote", err)
	}
	res.LivePrice = live.String()

	ok := amm.Within(live, p.price, tolerance)
	r.metrics.observePrice(live, p.price, ok)
	if !ok {
		return fail(KindPriceMismatch, "quote", fmt.Errorf("%w: live %s, formula %s, tolerance %d", ErrPriceMismatch, live, p.price, tolerance))
	}
	return nil
}

func (r *Runner) submit(ctx context.Context, trader model.Address, action ActionType, p plan) (model.TxOutcome, error) {
	switch action {
	case ActionSwap:
		return r.chain.SubmitSwap(ctx, trader, p.swap)
	case ActionAddLiquidity:
		return r.chain.SubmitAddLiquidity(ctx, trader, p.add)
	case ActionRemoveLiquidity:
		return r.chain.SubmitRemoveLiquidity(ctx, trader, p.remove)
	default:
		return model.TxOutcome{}, fmt.Errorf("unknown action %q", action)
	}
}

func formatPayout(payout model.LiquidityPayout) string {
	return payout.Core.String() + "/" + payout.Token.String()
}
