package providers

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransferStatus is the gateway's view of a settlement transfer.
type TransferStatus string

const (
	// TransferDone means the funds left our account.
	TransferDone TransferStatus = "done"
	// TransferProcessing means the gateway accepted the transfer but has
	// not settled it yet. Poll GetTransfer until it resolves.
	TransferProcessing TransferStatus = "processing"
	// TransferFailed means the gateway rejected or reversed the transfer.
	TransferFailed TransferStatus = "failed"
)

func (s TransferStatus) Valid() bool {
	switch s {
	case TransferDone, TransferProcessing, TransferFailed:
		return true
	}
	return false
}

// TransferRequest asks the gateway to move money to a PIX key. Amount is
// in reais, not centavos; the caller converts before crossing this
// boundary.
type TransferRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	PixKey            string          `json:"pix_key"`
	PixKeyType        string          `json:"pix_key_type"`
	Description       string          `json:"description"`
	ExternalReference string          `json:"external_reference"`
}

// TransferResult is the gateway's answer. ID is the gateway's own
// identifier for the transfer and is required for later polling.
type TransferResult struct {
	ID     string         `json:"id"`
	Status TransferStatus `json:"status"`
}

// SettlementGateway is the outbound money rail. An error from Transfer,
// timeouts included, means the caller must treat the transfer as rejected
// and compensate.
type SettlementGateway interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	GetTransfer(ctx context.Context, id string) (*TransferResult, error)
}
