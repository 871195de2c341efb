// Package types defines common errors used across the engine.
package types

import "errors"

// Common errors.
var (
	// Ledger errors
	ErrNoSuchToken           = errors.New("no such token")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// Pricing errors
	ErrInvalidReserves = errors.New("invalid reserves")
	ErrInvalidInput    = errors.New("invalid input amount")

	// Pair errors
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientAsset  = errors.New("insufficient asset amount")
	ErrInsufficientShares = errors.New("insufficient liquidity shares")
	ErrSlippageExceeded   = errors.New("slippage exceeded")

	// Routing errors
	ErrNoSuchPair  = errors.New("no such pair")
	ErrSelfRouting = errors.New("self routing not allowed")

	// Registry errors
	ErrPairExists   = errors.New("pair already exists")
	ErrInvalidAsset = errors.New("invalid asset")

	// Operation errors
	ErrUnknownOpType  = errors.New("unknown operation type")
	ErrInvalidPayload = errors.New("invalid payload")
)
