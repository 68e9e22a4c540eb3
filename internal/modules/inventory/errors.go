package inventory

import "errors"

var (
	// ErrNotFound means the referenced stock item or transaction is unknown.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity means a non-positive quantity was supplied.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInsufficientStock means a debit would drive the balance negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrAmbiguousMaterial means a material name matched zero or multiple
	// stock items, so the ledger refuses to pick one.
	ErrAmbiguousMaterial = errors.New("ambiguous material")
)
