package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cennzxScope/internal/model"
)

const scenarioJSONFixture = `{
  "scenarios": [
    {
      "name": "sell-core-huge-pool",
      "trader": "//Bob",
      "token_supply": "1000000000000000000000000000000000000000",
      "setup": [{"core": "100000000000000000000", "token": "340000000000000000000000000000000000000"}],
      "action": {"type": "swap", "swap_kind": "exact_input", "sell": "core", "buy": "token", "amount": "100000000000000000000"}
    },
    {
      "name": "burn-everything",
      "token_supply": "1000000",
      "setup": [{"core": "200000", "token": "100000"}],
      "action": {"type": "remove_liquidity", "all_shares": true},
      "expect": ""
    },
    {
      "name": "too-much",
      "token_supply": "1000000",
      "setup": [{"core": "200000", "token": "100000"}],
      "action": {"type": "swap", "swap_kind": "exact_output", "sell": "core", "buy": "token", "amount": "100000"},
      "expect": "InsufficientPoolLiquidity"
    }
  ]
}`

func TestParseScenarios(t *testing.T) {
	scenarios, err := ParseScenarios([]byte(scenarioJSONFixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %d", len(scenarios))
	}

	huge := scenarios[0]
	if huge.Trader != model.Seed("//Bob") {
		t.Fatalf("unexpected trader %v", huge.Trader)
	}
	if huge.Setup[0].Token.String() != hugeToken {
		t.Fatalf("unexpected setup token %s", huge.Setup[0].Token)
	}
	if huge.Action.SwapKind != model.ExactInput || huge.Action.Sell != SideCore || huge.Action.Buy != SideToken {
		t.Fatalf("unexpected action %+v", huge.Action)
	}
	if huge.Action.Limit != nil {
		t.Fatalf("missing limit should stay nil")
	}

	if !scenarios[1].Action.AllShares || scenarios[1].Trader.Value != "" {
		t.Fatalf("unexpected remove scenario %+v", scenarios[1])
	}
	if scenarios[2].Expect != KindInsufficientPoolLiquidity {
		t.Fatalf("unexpected expectation %s", scenarios[2].Expect)
	}
}

func TestParseScenariosErrors(t *testing.T) {
	cases := map[string]string{
		"bad amount":     `{"scenarios":[{"name":"a","token_supply":"1e6","action":{"type":"add_liquidity","core":"1"}}]}`,
		"missing supply": `{"scenarios":[{"name":"a","action":{"type":"add_liquidity","core":"1"}}]}`,
		"duplicate":      `{"scenarios":[{"name":"a","token_supply":"5","action":{"type":"add_liquidity","core":"1"}},{"name":"a","token_supply":"5","action":{"type":"add_liquidity","core":"1"}}]}`,
		"bad expect":     `{"scenarios":[{"name":"a","token_supply":"5","action":{"type":"add_liquidity","core":"1"},"expect":"PriceMismatch"}]}`,
		"same sides":     `{"scenarios":[{"name":"a","token_supply":"5","action":{"type":"swap","swap_kind":"exact_input","sell":"token","buy":"token","amount":"1"}}]}`,
		"no second":      `{"scenarios":[{"name":"a","token_supply":"5","action":{"type":"swap","swap_kind":"exact_input","sell":"token","buy":"second_token","amount":"1"}}]}`,
		"unknown action": `{"scenarios":[{"name":"a","token_supply":"5","action":{"type":"transfer"}}]}`,
		"negative":       `{"scenarios":[{"name":"a","token_supply":"-5","action":{"type":"add_liquidity","core":"1"}}]}`,
	}
	for name, input := range cases {
		if _, err := ParseScenarios([]byte(input)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadScenarios(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.json")
	if err := os.WriteFile(path, []byte(scenarioJSONFixture), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	scenarios, err := LoadScenarios(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %d", len(scenarios))
	}

	if _, err := LoadScenarios(filepath.Join(t.TempDir(), "missing.json")); err == nil || !strings.Contains(err.Error(), "read scenarios") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestDefaultScenariosAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, sc := range DefaultScenarios() {
		if err := sc.Validate(); err != nil {
			t.Fatalf("%s: %v", sc.Name, err)
		}
		if seen[sc.Name] {
			t.Fatalf("duplicate scenario %s", sc.Name)
		}
		seen[sc.Name] = true
	}
}
