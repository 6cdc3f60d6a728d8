// Package errors provides structured error handling for POS domain failures.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Order placement errors
	CodeOrderEmptyLines       Code = "ORDER_EMPTY_LINES"
	CodeOrderInvalidQuantity  Code = "ORDER_INVALID_QUANTITY"
	CodeOrderInvalidUnitPrice Code = "ORDER_INVALID_UNIT_PRICE"
	CodeOrderEmptyProductID   Code = "ORDER_EMPTY_PRODUCT_ID"

	// Inventory errors
	CodeInventoryEmptyProductID Code = "INVENTORY_EMPTY_PRODUCT_ID"

	// Catalog errors
	CodeProductEmptyID   Code = "PRODUCT_EMPTY_ID"
	CodeProductEmptyName Code = "PRODUCT_EMPTY_NAME"

	// Transport errors
	CodeBadRequest Code = "BAD_REQUEST"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
)
