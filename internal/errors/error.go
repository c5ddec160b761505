// Package errors provides sentinel errors for storefront operations.
package errors

import "errors"

var ErrUnauthorized = errors.New("unauthorized")
var ErrInvalidInput = errors.New("invalid input")
var ErrAccessDenied = errors.New("access denied")

var ErrUserNotFound = errors.New("user not found")
var ErrUsernameTaken = errors.New("username already taken")

var ErrProductNotFound = errors.New("product not found")
var ErrProductInUse = errors.New("product is referenced by a checkout")
var ErrInsufficientStock = errors.New("insufficient stock")

var ErrCheckoutNotFound = errors.New("active checkout not found")
var ErrActiveCheckoutExists = errors.New("user already has an active checkout")
var ErrCheckoutItemNotFound = errors.New("checkout item not found")
var ErrCheckoutItemExists = errors.New("product is already in the checkout")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")
