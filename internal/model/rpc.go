package model

import "github.com/ethereum/go-ethereum/common/hexutil"

// PoolBalanceResult is the RPC form of PoolBalance.
type PoolBalanceResult struct {
	Core  string `json:"core"`
	Token string `json:"token"`
}

// PayoutResult is the RPC form of LiquidityPayout.
type PayoutResult struct {
	Core  string `json:"core"`
	Token string `json:"token"`
}

// CallRequest asks the node-side keyring to sign and submit a call.
type CallRequest struct {
	Signer string `json:"signer"`
	Nonce  uint64 `json:"nonce"`
	Call   Call   `json:"call"`
}

// Call status values reported by author_callStatus.
const (
	CallReady     = "ready"
	CallInBlock   = "inBlock"
	CallFinalized = "finalized"
	CallInvalid   = "invalid"
)

// CallStatusResult reports the lifecycle of a submitted call.
type CallStatusResult struct {
	Status      string         `json:"status"`
	Success     bool           `json:"success"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	BlockHash   string         `json:"blockHash,omitempty"`
	Events      []Event        `json:"events,omitempty"`
	Fee         string         `json:"fee,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}

// HeaderResult is the subset of a block header the client reads.
type HeaderResult struct {
	Number hexutil.Uint64 `json:"number"`
	Hash   string         `json:"hash"`
}
