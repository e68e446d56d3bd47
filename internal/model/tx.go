package model

import "math/big"

// TxStatus is the terminal state of a submitted transaction.
type TxStatus string

const (
	TxFinalized TxStatus = "finalized"
	TxRejected  TxStatus = "rejected"
	TxTimedOut  TxStatus = "timed_out"
)

// Event is a decoded runtime event emitted by a transaction.
type Event struct {
	Name string            `json:"name"`
	Data map[string]string `json:"data,omitempty"`
}

// TxOutcome is the result of waiting on a transaction.
type TxOutcome struct {
	Status      TxStatus
	Hash        string
	BlockNumber uint64
	Events      []Event
	Fee         *big.Int
	Reason      string
}

// FeePaid returns the fee charged, zero when unknown.
func (o TxOutcome) FeePaid() *big.Int {
	if o.Fee == nil {
		return big.NewInt(0)
	}
	return o.Fee
}

// FindEvent returns the first event with the given name.
func (o TxOutcome) FindEvent(name string) (Event, bool) {
	for _, event := range o.Events {
		if event.Name == name {
			return event, true
		}
	}
	return Event{}, false
}

// Call is a runtime call to be signed and submitted.
type Call struct {
	Section string            `json:"section"`
	Method  string            `json:"method"`
	Args    map[string]string `json:"args"`
}

// Name returns "section.method".
func (c Call) Name() string {
	return c.Section + "." + c.Method
}
