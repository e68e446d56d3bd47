package harness

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"cennzxScope/internal/model"
)

// Side names which asset of a scenario an action touches.
type Side string

const (
	SideCore   Side = "core"
	SideToken  Side = "token"
	SideSecond Side = "second_token"
)

// ActionType is the exchange operation a scenario verifies.
type ActionType string

const (
	ActionSwap            ActionType = "swap"
	ActionAddLiquidity    ActionType = "add_liquidity"
	ActionRemoveLiquidity ActionType = "remove_liquidity"
)

// Deposit seeds a pool before the action runs. For the first deposit Token is
// the exact token amount, later deposits use it as the maximum.
type Deposit struct {
	Core  *big.Int
	Token *big.Int
}

// Action is the single operation under test.
type Action struct {
	Type ActionType

	// swap
	SwapKind model.SwapKind
	Sell     Side
	Buy      Side
	Amount   *big.Int
	Limit    *big.Int

	// add_liquidity
	Core         *big.Int
	Token        *big.Int
	MinLiquidity *big.Int

	// remove_liquidity; AllShares burns the trader's whole position.
	Shares    *big.Int
	AllShares bool
	MinCore   *big.Int
	MinToken  *big.Int
}

// Scenario is one end-to-end check against a live node. Each scenario creates
// its own token so scenarios never share pools.
type Scenario struct {
	Name string
	// Trader defaults to the runner's trader when empty.
	Trader            model.AccountRef
	TokenSupply       *big.Int
	SecondTokenSupply *big.Int
	Setup             []Deposit
	SecondSetup       []Deposit
	Action            Action
	// Expect is the failure kind the scenario wants to observe. Empty means
	// the action must succeed and match the formula.
	Expect Kind
}

// UsesSecondToken reports whether the scenario needs a second token and pool.
func (s Scenario) UsesSecondToken() bool {
	return s.Action.Sell == SideSecond || s.Action.Buy == SideSecond || len(s.SecondSetup) > 0
}

// Validate checks the scenario shape before anything is sent to the node.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if s.TokenSupply == nil || s.TokenSupply.Sign() <= 0 {
		return fmt.Errorf("scenario %s: token supply must be greater than zero", s.Name)
	}
	if s.UsesSecondToken() && (s.SecondTokenSupply == nil || s.SecondTokenSupply.Sign() <= 0) {
		return fmt.Errorf("scenario %s: second token supply must be greater than zero", s.Name)
	}
	for i, deposit := range append(append([]Deposit{}, s.Setup...), s.SecondSetup...) {
		if deposit.Core == nil || deposit.Core.Sign() <= 0 {
			return fmt.Errorf("scenario %s: setup deposit %d needs a core amount", s.Name, i)
		}
		if deposit.Token == nil || deposit.Token.Sign() <= 0 {
			return fmt.Errorf("scenario %s: setup deposit %d needs a token amount", s.Name, i)
		}
	}

	a := s.Action
	switch a.Type {
	case ActionSwap:
		if a.SwapKind != model.ExactInput && a.SwapKind != model.ExactOutput {
			return fmt.Errorf("scenario %s: unknown swap kind %q", s.Name, a.SwapKind)
		}
		if !validSide(a.Sell) || !validSide(a.Buy) || a.Sell == a.Buy {
			return fmt.Errorf("scenario %s: invalid swap sides %q -> %q", s.Name, a.Sell, a.Buy)
		}
		if a.Amount == nil || a.Amount.Sign() <= 0 {
			return fmt.Errorf("scenario %s: swap amount must be greater than zero", s.Name)
		}
	case ActionAddLiquidity:
		if a.Core == nil || a.Core.Sign() <= 0 {
			return fmt.Errorf("scenario %s: add_liquidity needs a core amount", s.Name)
		}
	case ActionRemoveLiquidity:
		if !a.AllShares && a.Shares == nil {
			return fmt.Errorf("scenario %s: remove_liquidity needs shares or all_shares", s.Name)
		}
	default:
		return fmt.Errorf("scenario %s: unknown action %q", s.Name, a.Type)
	}

	switch s.Expect {
	case "", KindActionRejected, KindInsufficientPoolLiquidity, KindInsufficientShares:
	default:
		return fmt.Errorf("scenario %s: cannot expect %s", s.Name, s.Expect)
	}
	return nil
}

func validSide(side Side) bool {
	return side == SideCore || side == SideToken || side == SideSecond
}

type scenarioFile struct {
	Scenarios []scenarioJSON `json:"scenarios"`
}

type depositJSON struct {
	Core  string `json:"core"`
	Token string `json:"token"`
}

type actionJSON struct {
	Type         ActionType     `json:"type"`
	SwapKind     model.SwapKind `json:"swap_kind,omitempty"`
	Sell         Side           `json:"sell,omitempty"`
	Buy          Side           `json:"buy,omitempty"`
	Amount       string         `json:"amount,omitempty"`
	Limit        string         `json:"limit,omitempty"`
	Core         string         `json:"core,omitempty"`
	Token        string         `json:"token,omitempty"`
	MinLiquidity string         `json:"min_liquidity,omitempty"`
	Shares       string         `json:"shares,omitempty"`
	AllShares    bool           `json:"all_shares,omitempty"`
	MinCore      string         `json:"min_core,omitempty"`
	MinToken     string         `json:"min_token,omitempty"`
}

type scenarioJSON struct {
	Name              string           `json:"name"`
	Trader            model.AccountRef `json:"trader,omitempty"`
	TokenSupply       string           `json:"token_supply"`
	SecondTokenSupply string           `json:"second_token_supply,omitempty"`
	Setup             []depositJSON    `json:"setup,omitempty"`
	SecondSetup       []depositJSON    `json:"second_setup,omitempty"`
	Action            actionJSON       `json:"action"`
	Expect            Kind             `json:"expect,omitempty"`
}

// LoadScenarios reads a JSON scenario file. Amounts are decimal strings.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	return ParseScenarios(data)
}

// ParseScenarios decodes and validates scenarios from JSON.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var file scenarioFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}

	seen := make(map[string]bool, len(file.Scenarios))
	scenarios := make([]Scenario, 0, len(file.Scenarios))
	for _, raw := range file.Scenarios {
		sc, err := raw.toScenario()
		if err != nil {
			return nil, err
		}
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		if seen[sc.Name] {
			return nil, fmt.Errorf("duplicate scenario name %q", sc.Name)
		}
		seen[sc.Name] = true
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func (raw scenarioJSON) toScenario() (Scenario, error) {
	p := amountParser{scenario: raw.Name}
	sc := Scenario{
		Name:              raw.Name,
		Trader:            raw.Trader,
		TokenSupply:       p.required("token_supply", raw.TokenSupply),
		SecondTokenSupply: p.optional("second_token_supply", raw.SecondTokenSupply),
		Setup:             p.deposits("setup", raw.Setup),
		SecondSetup:       p.deposits("second_setup", raw.SecondSetup),
		Expect:            raw.Expect,
		Action: Action{
			Type:         raw.Action.Type,
			SwapKind:     raw.Action.SwapKind,
			Sell:         raw.Action.Sell,
			Buy:          raw.Action.Buy,
			Amount:       p.optional("amount", raw.Action.Amount),
			Limit:        p.optional("limit", raw.Action.Limit),
			Core:         p.optional("core", raw.Action.Core),
			Token:        p.optional("token", raw.Action.Token),
			MinLiquidity: p.optional("min_liquidity", raw.Action.MinLiquidity),
			Shares:       p.optional("shares", raw.Action.Shares),
			AllShares:    raw.Action.AllShares,
			MinCore:      p.optional("min_core", raw.Action.MinCore),
			MinToken:     p.optional("min_token", raw.Action.MinToken),
		},
	}
	if p.err != nil {
		return Scenario{}, p.err
	}
	return sc, nil
}

// amountParser keeps the first parse error so field lists stay flat.
type amountParser struct {
	scenario string
	err      error
}

func (p *amountParser) optional(field, value string) *big.Int {
	if value == "" || p.err != nil {
		return nil
	}
	amount, err := model.ParseAmount(value)
	if err != nil {
		p.err = fmt.Errorf("scenario %s: %s: %w", p.scenario, field, err)
		return nil
	}
	return amount
}

func (p *amountParser) required(field, value string) *big.Int {
	if value == "" && p.err == nil {
		p.err = fmt.Errorf("scenario %s: %s is required", p.scenario, field)
		return nil
	}
	return p.optional(field, value)
}

func (p *amountParser) deposits(field string, raw []depositJSON) []Deposit {
	out := make([]Deposit, 0, len(raw))
	for i, d := range raw {
		name := fmt.Sprintf("%s[%d]", field, i)
		out = append(out, Deposit{
			Core:  p.required(name+".core", d.Core),
			Token: p.required(name+".token", d.Token),
		})
	}
	return out
}
