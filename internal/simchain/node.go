// Package simchain is an in-memory CENNZX node: generic assets, exchange
// pools, transaction fees, nonces and blocks with a finality depth. It backs
// the devnode command and end-to-end tests of the harness.
package simchain

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"cennzxScope/internal/accounts"
	"cennzxScope/internal/amm"
	"cennzxScope/internal/model"
)

const (
	DefaultCoreAsset    model.AssetID = 16000
	DefaultFirstTokenID model.AssetID = 17000
)

var (
	ErrStaleNonce    = errors.New("transaction is outdated")
	ErrFutureNonce   = errors.New("transaction nonce is in the future")
	ErrCannotPayFee  = errors.New("inability to pay some fees")
	ErrUnknownCall   = errors.New("unknown call")
	ErrUnknownTx     = errors.New("unknown transaction")
	ErrAlreadyQueued = errors.New("transaction already imported")
)

// Options configures a Node.
type Options struct {
	CoreAsset    model.AssetID
	FirstTokenID model.AssetID
	FeeRate      amm.FeeRate
	// TxFee is charged in the core asset to the signer of every included call.
	TxFee *big.Int
	// Endowment of core asset given to each Endowed account at genesis.
	Endowment *big.Int
	Endowed   []model.Address
	// BlockTime zero seals and finalizes each call as it is submitted.
	// Otherwise blocks are produced by Run or ProduceBlock.
	BlockTime     time.Duration
	FinalityDepth uint64
	Prefix        uint16
	// QuoteSkew is added to every price quote. Used to exercise mismatch
	// detection; execution is never skewed.
	QuoteSkew int64
}

// DefaultOptions returns a node with the dev accounts endowed.
func DefaultOptions() Options {
	endowed := make([]model.Address, 0, len(accounts.DevSeeds()))
	for _, seed := range accounts.DevSeeds() {
		address, _ := accounts.DevAddress(seed)
		endowed = append(endowed, address)
	}
	return Options{
		CoreAsset:    DefaultCoreAsset,
		FirstTokenID: DefaultFirstTokenID,
		FeeRate:      amm.DefaultFeeRate,
		TxFee:        big.NewInt(1000),
		Endowment:    new(big.Int).Exp(big.NewInt(10), big.NewInt(40), nil),
		Endowed:      endowed,
		Prefix:       accounts.GenericPrefix,
	}
}

type exchange struct {
	core   *big.Int
	token  *big.Int
	total  *big.Int
	shares map[model.Address]*big.Int
}

type txRecord struct {
	hash    string
	signer  model.Address
	nonce   uint64
	call    model.Call
	status  string
	success bool
	block   uint64
	events  []model.Event
	fee     *big.Int
	reason  string
	done    chan struct{}
}

// Node is the simulated chain. It is safe for concurrent use.
type Node struct {
	opts    Options
	formula amm.Formula
	keyring *accounts.Resolver
	logger  *zap.Logger

	mu          sync.Mutex
	nextAsset   model.AssetID
	assets      map[model.AssetID]struct{}
	balances    map[model.AssetID]map[model.Address]*big.Int
	pools       map[model.AssetID]*exchange
	nonces      map[model.Address]uint64
	pending     []*txRecord
	unfinalized []*txRecord
	txs         map[string]*txRecord
	height      uint64
	finalized   uint64
}

// New builds a node from opts.
func New(opts Options, logger *zap.Logger) (*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	formula, err := amm.New(opts.FeeRate)
	if err != nil {
		return nil, err
	}
	if opts.CoreAsset == 0 {
		opts.CoreAsset = DefaultCoreAsset
	}
	if opts.FirstTokenID <= opts.CoreAsset {
		opts.FirstTokenID = opts.CoreAsset + 1000
	}
	if opts.TxFee == nil {
		opts.TxFee = new(big.Int)
	}
	if opts.BlockTime <= 0 {
		opts.FinalityDepth = 0
	}

	n := &Node{
		opts:      opts,
		formula:   formula,
		keyring:   accounts.NewResolver(opts.Prefix, accounts.HashedSeedResolver(opts.Prefix)),
		logger:    logger,
		nextAsset: opts.FirstTokenID,
		assets:    map[model.AssetID]struct{}{opts.CoreAsset: {}},
		balances:  make(map[model.AssetID]map[model.Address]*big.Int),
		pools:     make(map[model.AssetID]*exchange),
		nonces:    make(map[model.Address]uint64),
		txs:       make(map[string]*txRecord),
	}
	if opts.Endowment != nil {
		for _, account := range opts.Endowed {
			canonical, err := accounts.Canonical(account, opts.Prefix)
			if err != nil {
				return nil, fmt.Errorf("endowed account %s: %w", account, err)
			}
			n.creditLocked(opts.CoreAsset, canonical, opts.Endowment)
		}
	}
	return n, nil
}

func (n *Node) CoreAsset() model.AssetID {
	return n.opts.CoreAsset
}

func (n *Node) FeeRate() amm.FeeRate {
	return n.opts.FeeRate
}

// ResolveSeed maps a seed to the address the node-side keyring signs with.
func (n *Node) ResolveSeed(ctx context.Context, seed string) (model.Address, error) {
	return n.keyring.Resolve(ctx, model.Seed(seed))
}

// Canonical validates an address and re-encodes it with the node's prefix.
func (n *Node) Canonical(address model.Address) (model.Address, error) {
	return accounts.Canonical(address, n.opts.Prefix)
}

func (n *Node) FreeBalance(account model.Address, asset model.AssetID) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return new(big.Int).Set(n.balanceLocked(asset, account))
}

// Pool returns a copy of the token's exchange pool, empty if none exists.
func (n *Node) Pool(token model.AssetID) model.ExchangePool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.poolLocked(token).Clone()
}

func (n *Node) LiquidityBalance(token model.AssetID, account model.Address) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ex := n.pools[token]; ex != nil && ex.shares[account] != nil {
		return new(big.Int).Set(ex.shares[account])
	}
	return new(big.Int)
}

// AccountNextIndex is the nonce the account's next call must carry.
func (n *Node) AccountNextIndex(account model.Address) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nextIndexLocked(account)
}

// Header returns the best block number and hash.
func (n *Node) Header() model.HeaderResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	return model.HeaderResult{Number: hexutil.Uint64(n.height), Hash: blockHash(n.height)}
}

// Submit queues a signed call. Invalid calls are refused without a fee.
func (n *Node) Submit(req model.CallRequest) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.submitLocked(req)
}

// SubmitNext queues call for signer with the next free nonce.
func (n *Node) SubmitNext(signer model.Address, call model.Call) (string, error) {
	canonical, err := accounts.Canonical(signer, n.opts.Prefix)
	if err != nil {
		return "", fmt.Errorf("signer: %w", err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.submitLocked(model.CallRequest{Signer: string(canonical), Nonce: n.nextIndexLocked(canonical), Call: call})
}

func (n *Node) submitLocked(req model.CallRequest) (string, error) {
	signer, err := accounts.Canonical(model.Address(req.Signer), n.opts.Prefix)
	if err != nil {
		return "", fmt.Errorf("signer: %w", err)
	}
	if !knownCall(req.Call) {
		return "", fmt.Errorf("%w: %s", ErrUnknownCall, req.Call.Name())
	}
	expected := n.nextIndexLocked(signer)
	switch {
	case req.Nonce < expected:
		return "", fmt.Errorf("%w: nonce %d, next %d", ErrStaleNonce, req.Nonce, expected)
	case req.Nonce > expected:
		return "", fmt.Errorf("%w: nonce %d, next %d", ErrFutureNonce, req.Nonce, expected)
	}
	if n.balanceLocked(n.opts.CoreAsset, signer).Cmp(n.opts.TxFee) < 0 {
		return "", ErrCannotPayFee
	}

	hash, err := txHash(signer, req)
	if err != nil {
		return "", err
	}
	if _, ok := n.txs[hash]; ok {
		return "", ErrAlreadyQueued
	}

	rec := &txRecord{
		hash:   hash,
		signer: signer,
		nonce:  req.Nonce,
		call:   req.Call,
		status: model.CallReady,
		done:   make(chan struct{}),
	}
	n.txs[hash] = rec
	n.pending = append(n.pending, rec)
	n.logger.Debug("call queued", zap.String("hash", hash), zap.String("call", req.Call.Name()), zap.Uint64("nonce", req.Nonce))

	if n.opts.BlockTime <= 0 {
		n.sealLocked()
	}
	return hash, nil
}

// Status reports the current state of a submitted call.
func (n *Node) Status(hash string) (model.CallStatusResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	rec, ok := n.txs[hash]
	if !ok {
		return model.CallStatusResult{}, fmt.Errorf("%w: %s", ErrUnknownTx, hash)
	}
	return rec.statusResult(), nil
}

// Wait blocks until the call is finalized or invalid, or ctx ends.
func (n *Node) Wait(ctx context.Context, hash string) (model.CallStatusResult, error) {
	n.mu.Lock()
	rec, ok := n.txs[hash]
	n.mu.Unlock()
	if !ok {
		return model.CallStatusResult{}, fmt.Errorf("%w: %s", ErrUnknownTx, hash)
	}

	select {
	case <-rec.done:
	case <-ctx.Done():
		status, _ := n.Status(hash)
		return status, ctx.Err()
	}
	return n.Status(hash)
}

// ProduceBlock seals every pending call into a new block and advances finality.
func (n *Node) ProduceBlock() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sealLocked()
	return n.height
}

// Run produces a block every BlockTime until ctx is done. It returns at once
// when blocks are sealed on submission.
func (n *Node) Run(ctx context.Context) error {
	if n.opts.BlockTime <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(n.opts.BlockTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.ProduceBlock()
		}
	}
}

func (n *Node) sealLocked() {
	n.height++
	for _, rec := range n.pending {
		fee := n.opts.TxFee
		if n.balanceLocked(n.opts.CoreAsset, rec.signer).Cmp(fee) < 0 {
			rec.status = model.CallInvalid
			rec.reason = ErrCannotPayFee.Error()
			close(rec.done)
			continue
		}
		n.debitLocked(n.opts.CoreAsset, rec.signer, fee)
		n.nonces[rec.signer]++

		rec.status = model.CallInBlock
		rec.block = n.height
		rec.fee = new(big.Int).Set(fee)
		feeEvent := model.Event{Name: "transactionPayment.TransactionFeePaid", Data: map[string]string{
			"who":        string(rec.signer),
			"actual_fee": fee.String(),
		}}

		events, err := n.dispatchLocked(rec.signer, rec.call)
		if err != nil {
			rec.success = false
			rec.reason = err.Error()
			rec.events = []model.Event{feeEvent, {Name: "system.ExtrinsicFailed", Data: map[string]string{"error": err.Error()}}}
			n.logger.Debug("call failed", zap.String("hash", rec.hash), zap.String("call", rec.call.Name()), zap.Error(err))
		} else {
			rec.success = true
			rec.events = append(append(events, feeEvent), model.Event{Name: "system.ExtrinsicSuccess"})
		}
		n.unfinalized = append(n.unfinalized, rec)
	}
	n.pending = nil

	if n.height > n.opts.FinalityDepth {
		n.finalized = n.height - n.opts.FinalityDepth
	}
	kept := n.unfinalized[:0]
	for _, rec := range n.unfinalized {
		if rec.block <= n.finalized {
			rec.status = model.CallFinalized
			close(rec.done)
			continue
		}
		kept = append(kept, rec)
	}
	n.unfinalized = kept
}

func (n *Node) nextIndexLocked(account model.Address) uint64 {
	next := n.nonces[account]
	for _, rec := range n.pending {
		if rec.signer == account {
			next++
		}
	}
	return next
}

func (n *Node) balanceLocked(asset model.AssetID, account model.Address) *big.Int {
	if held := n.balances[asset][account]; held != nil {
		return held
	}
	return new(big.Int)
}

func (n *Node) creditLocked(asset model.AssetID, account model.Address, amount *big.Int) {
	holders := n.balances[asset]
	if holders == nil {
		holders = make(map[model.Address]*big.Int)
		n.balances[asset] = holders
	}
	held := holders[account]
	if held == nil {
		held = new(big.Int)
		holders[account] = held
	}
	held.Add(held, amount)
}

func (n *Node) debitLocked(asset model.AssetID, account model.Address, amount *big.Int) {
	n.creditLocked(asset, account, new(big.Int).Neg(amount))
}

func (n *Node) poolLocked(token model.AssetID) model.ExchangePool {
	ex := n.pools[token]
	if ex == nil {
		return model.NewExchangePool(token, nil, nil, nil)
	}
	return model.NewExchangePool(token, ex.core, ex.token, ex.total)
}

func (r *txRecord) statusResult() model.CallStatusResult {
	out := model.CallStatusResult{
		Status:  r.status,
		Success: r.success,
		Reason:  r.reason,
		Events:  r.events,
	}
	if r.block > 0 {
		out.BlockNumber = hexutil.Uint64(r.block)
		out.BlockHash = blockHash(r.block)
	}
	if r.fee != nil {
		out.Fee = r.fee.String()
	}
	return out
}

func txHash(signer model.Address, req model.CallRequest) (string, error) {
	req.Signer = string(signer)
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode call: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hexutil.Encode(sum[:]), nil
}

func blockHash(number uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], number)
	sum := blake2b.Sum256(buf[:])
	return hexutil.Encode(sum[:])
}
