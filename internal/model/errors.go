package model

import "errors"

var (
	// ErrIssuanceRejected is returned when the node refuses to create a token.
	ErrIssuanceRejected = errors.New("issuance rejected")
	// ErrOperationTimeout is returned when a blocking chain operation gives up.
	ErrOperationTimeout = errors.New("operation timeout")
)
