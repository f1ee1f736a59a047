package model

import "errors"

// Error taxonomy shared by repositories, services and handlers.
// Call sites wrap these with fmt.Errorf("%w: ...") to add detail.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
)

// Warning is a non-fatal failure of a secondary effect (aggregation,
// per-line reconciliation, ...). The primary write it belongs to succeeded.
type Warning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

const (
	StageAggregation    = "aggregation"
	StageProductProfit  = "product_profit"
	StageReconciliation = "reconciliation"
	StageStockReversal  = "stock_reversal"
)
