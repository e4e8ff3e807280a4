package catalog

import "errors"

var (
	ErrNotFound          = errors.New("book not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidBook       = errors.New("invalid book")
	ErrInvalidSale       = errors.New("invalid sale")
)
