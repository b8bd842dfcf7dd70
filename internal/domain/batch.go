package domain

import "time"

type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "PENDING"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusSuccess    BatchStatus = "SUCCESS"
	BatchStatusError      BatchStatus = "ERROR"
)

// BatchTypeSuppliedProduct is the only batch type this service processes.
const BatchTypeSuppliedProduct = "SUPPLIED_PRODUCT"

type BatchMeta struct {
	BatchName string    `json:"batchName"`
	BatchDate time.Time `json:"batchDate"`
}

// BatchSubmission is the ephemeral upload body. It is persisted verbatim
// (with refIds assigned) as the batch content snapshot for replay and audit.
type BatchSubmission struct {
	Batch    BatchMeta    `json:"batch"`
	Products []RawProduct `json:"products"`
}

type VariantError struct {
	VariantKey string `json:"variantKey"`
	RefID      int    `json:"refId"`
	Reason     string `json:"reason"`
}

type ProductError struct {
	ProductKey string         `json:"productKey"`
	RefID      int            `json:"refId"`
	Reason     string         `json:"reason"`
	Variants   []VariantError `json:"variants,omitempty"`
}

type ImportedVariantRef struct {
	VariantKey string `json:"variantKey"`
}

type ImportedProductRef struct {
	ProductKey string               `json:"productKey"`
	Variants   []ImportedVariantRef `json:"variants,omitempty"`
}

// BatchResult is the caller-facing outcome of one batch, kept as the
// persisted result snapshot on the batch row.
type BatchResult struct {
	ID                       string               `json:"id"`
	BatchName                string               `json:"batchName"`
	BatchDate                time.Time            `json:"batchDate"`
	BatchRunDate             *time.Time           `json:"batchRunDate"`
	Status                   BatchStatus          `json:"status"`
	ProductsImportedCount    *int                 `json:"productsImportedCount"`
	ProductsNotImportedCount *int                 `json:"productsNotImportedCount"`
	ProductsImported         []ImportedProductRef `json:"productsImported"`
	ProductsNotImported      []ProductError       `json:"productsNotImported"`
	CustomData               map[string]any       `json:"customData"`
}
