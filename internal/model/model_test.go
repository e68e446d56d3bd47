package model

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestScenarioResultJSONStringAmounts(t *testing.T) {
	result := ScenarioResult{
		RunID:        "run-1",
		Scenario:     "sell-core-huge-pool",
		Action:       "swap",
		TokenID:      17001,
		FormulaPrice: "340000000000000000000000000000000000000",
		LivePrice:    "339999999999999999999999999999999999999",
		Mismatches: []DeltaMismatch{
			{Balance: "pool_core", Expected: "100000000000000000000", Actual: "99999999999999999999"},
		},
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := decoded["formula_price"].(string); !ok {
		t.Fatalf("formula_price should be string")
	}
	if _, ok := decoded["live_price"].(string); !ok {
		t.Fatalf("live_price should be string")
	}
	mismatches, ok := decoded["mismatches"].([]interface{})
	if !ok || len(mismatches) != 1 {
		t.Fatalf("mismatches not encoded: %v", decoded["mismatches"])
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("340282366920938463463374607431768211455")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	if got.Cmp(want) != 0 {
		t.Fatalf("amount mismatch: %s != %s", got, want)
	}

	if zero, err := ParseAmount(" "); err != nil || zero.Sign() != 0 {
		t.Fatalf("empty amount should be zero: %v %v", zero, err)
	}
	if _, err := ParseAmount("-1"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
	if _, err := ParseAmount("1e20"); err == nil {
		t.Fatalf("expected error for exponent notation")
	}
}

func TestParseAccountRef(t *testing.T) {
	cases := map[string]AccountRef{
		"//Alice":                Seed("//Alice"),
		"seed:bottom drive obey": Seed("bottom drive obey"),
		"address:5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY": AddressRef("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"),
		"5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty":         AddressRef("5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"),
	}
	for input, want := range cases {
		got, err := ParseAccountRef(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: %+v != %+v", input, got, want)
		}
	}
	if _, err := ParseAccountRef(""); err == nil {
		t.Fatalf("expected error for empty reference")
	}
}

func TestAccountRefJSON(t *testing.T) {
	data, err := json.Marshal(Seed("//Bob"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"seed://Bob"` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var ref AccountRef
	if err := json.Unmarshal([]byte(`"//Charlie"`), &ref); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ref != Seed("//Charlie") {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestSwapRequestValidate(t *testing.T) {
	req := SwapRequest{Kind: ExactInput, AssetSold: 16000, AssetBought: 17000, Amount: big.NewInt(10)}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req.AssetBought = req.AssetSold
	if err := req.Validate(); err == nil {
		t.Fatalf("expected error for identical assets")
	}

	req = SwapRequest{Kind: "limit", AssetSold: 1, AssetBought: 2, Amount: big.NewInt(1)}
	if err := req.Validate(); err == nil {
		t.Fatalf("expected error for unknown kind")
	}

	req = SwapRequest{Kind: ExactOutput, AssetSold: 1, AssetBought: 2, Amount: big.NewInt(0)}
	if err := req.Validate(); err == nil {
		t.Fatalf("expected error for zero amount")
	}
}
