package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cennzxScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenario_results (
	run_id        TEXT        NOT NULL,
	scenario      TEXT        NOT NULL,
	action        TEXT        NOT NULL,
	trader        TEXT        NOT NULL DEFAULT '',
	token_id      BIGINT      NOT NULL DEFAULT 0,
	passed        BOOLEAN     NOT NULL,
	kind          TEXT        NOT NULL DEFAULT '',
	step          TEXT        NOT NULL DEFAULT '',
	error         TEXT        NOT NULL DEFAULT '',
	formula_price TEXT        NOT NULL DEFAULT '',
	live_price    TEXT        NOT NULL DEFAULT '',
	mismatches    JSONB       NOT NULL DEFAULT '[]',
	tx_hash       TEXT        NOT NULL DEFAULT '',
	fee           TEXT        NOT NULL DEFAULT '',
	started_at    TEXT        NOT NULL,
	duration_ms   BIGINT      NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, scenario)
);

CREATE TABLE IF NOT EXISTS harness_runs (
	run_id     TEXT        PRIMARY KEY,
	passed     INTEGER     NOT NULL,
	failed     INTEGER     NOT NULL,
	skipped    INTEGER     NOT NULL,
	fee_rate   BIGINT      NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for harness results.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// PutResultBatch satisfies storage.Storage.
func (s *Store) PutResultBatch(ctx context.Context, results []model.ScenarioResult) error {
	return s.UpsertScenarioResults(ctx, results)
}

// UpsertScenarioResults inserts or updates results keyed by run and scenario.
func (s *Store) UpsertScenarioResults(ctx context.Context, results []model.ScenarioResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		mismatches := r.Mismatches
		if mismatches == nil {
			mismatches = []model.DeltaMismatch{}
		}
		batch.Queue(`
			INSERT INTO scenario_results (
				run_id, scenario, action, trader, token_id, passed, kind, step, error,
				formula_price, live_price, mismatches, tx_hash, fee, started_at, duration_ms,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
			ON CONFLICT (run_id, scenario)
			DO UPDATE SET
				action = EXCLUDED.action,
				trader = EXCLUDED.trader,
				token_id = EXCLUDED.token_id,
				passed = EXCLUDED.passed,
				kind = EXCLUDED.kind,
				step = EXCLUDED.step,
				error = EXCLUDED.error,
				formula_price = EXCLUDED.formula_price,
				live_price = EXCLUDED.live_price,
				mismatches = EXCLUDED.mismatches,
				tx_hash = EXCLUDED.tx_hash,
				fee = EXCLUDED.fee,
				started_at = EXCLUDED.started_at,
				duration_ms = EXCLUDED.duration_ms,
				updated_at = now()
		`,
			r.RunID,
			r.Scenario,
			r.Action,
			r.Trader,
			int64(r.TokenID),
			r.Passed,
			r.Kind,
			r.Step,
			r.Error,
			r.FormulaPrice,
			r.LivePrice,
			mismatches,
			r.TxHash,
			r.Fee,
			r.StartedAt,
			r.DurationMs,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert scenario result: %w", err)
		}
	}
	return nil
}

// LoadResults returns every stored result of a run ordered by start time.
func (s *Store) LoadResults(ctx context.Context, runID string) ([]model.ScenarioResult, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id required")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, scenario, action, trader, token_id, passed, kind, step, error,
			formula_price, live_price, mismatches, tx_hash, fee, started_at, duration_ms
		FROM scenario_results
		WHERE run_id = $1
		ORDER BY started_at, scenario
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scenario results: %w", err)
	}
	defer rows.Close()

	var results []model.ScenarioResult
	for rows.Next() {
		var (
			r       model.ScenarioResult
			tokenID int64
		)
		if err := rows.Scan(
			&r.RunID, &r.Scenario, &r.Action, &r.Trader, &tokenID, &r.Passed, &r.Kind, &r.Step, &r.Error,
			&r.FormulaPrice, &r.LivePrice, &r.Mismatches, &r.TxHash, &r.Fee, &r.StartedAt, &r.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("scan scenario result: %w", err)
		}
		r.TokenID = uint64(tokenID)
		results = append(results, r)
	}
	return results, rows.Err()
}

// RunState is the stored summary of a harness run.
type RunState struct {
	RunID     string
	Passed    int
	Failed    int
	Skipped   int
	FeeRate   uint64
	UpdatedAt time.Time
}

// LoadState returns the summary of a run.
func (s *Store) LoadState(ctx context.Context, runID string) (RunState, bool, error) {
	if runID == "" {
		return RunState{}, false, fmt.Errorf("run id required")
	}
	var (
		state   RunState
		feeRate int64
	)
	row := s.pool.QueryRow(ctx, `SELECT run_id, passed, failed, skipped, fee_rate, updated_at FROM harness_runs WHERE run_id=$1`, runID)
	if err := row.Scan(&state.RunID, &state.Passed, &state.Failed, &state.Skipped, &feeRate, &state.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RunState{}, false, nil
		}
		return RunState{}, false, err
	}
	state.FeeRate = uint64(feeRate)
	return state, true, nil
}

// SaveState upserts the summary of a run.
func (s *Store) SaveState(ctx context.Context, state RunState) error {
	if state.RunID == "" {
		return fmt.Errorf("run id required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO harness_runs (run_id, passed, failed, skipped, fee_rate, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (run_id) DO UPDATE
		SET passed = EXCLUDED.passed,
			failed = EXCLUDED.failed,
			skipped = EXCLUDED.skipped,
			fee_rate = EXCLUDED.fee_rate,
			updated_at = now()
	`, state.RunID, state.Passed, state.Failed, state.Skipped, int64(state.FeeRate))
	return err
}
