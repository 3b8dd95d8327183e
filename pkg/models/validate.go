package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOrder wraps every order validation failure.
var ErrInvalidOrder = errors.New("invalid order")

// Normalize uppercases the symbol, side and type in place.
func (r *OrderRequest) Normalize() {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Side = OrderSide(strings.ToUpper(strings.TrimSpace(string(r.Side))))
	r.Type = OrderType(strings.ToUpper(strings.TrimSpace(string(r.Type))))
}

// Validate normalizes the request and rejects anything the exchange
// would bounce: a LIMIT order needs a positive price, a MARKET order
// must not carry one.
func (r *OrderRequest) Validate() error {
	r.Normalize()

	if r.Symbol == "" {
		return fmt.Errorf("%w: symbol cannot be empty", ErrInvalidOrder)
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("%w: side must be BUY or SELL", ErrInvalidOrder)
	}
	if r.Type != TypeMarket && r.Type != TypeLimit {
		return fmt.Errorf("%w: order type must be MARKET or LIMIT", ErrInvalidOrder)
	}
	if !r.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be greater than 0", ErrInvalidOrder)
	}
	switch r.Type {
	case TypeLimit:
		if !r.Price.IsPositive() {
			return fmt.Errorf("%w: price is required for LIMIT orders", ErrInvalidOrder)
		}
	case TypeMarket:
		if !r.Price.IsZero() {
			return fmt.Errorf("%w: price must not be provided for MARKET orders", ErrInvalidOrder)
		}
	}
	return nil
}
