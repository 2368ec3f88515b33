package service

import (
	"github.com/anbanon/verdana/internal/domain"
)

// Cart errors - use domain.ENOTFOUND / domain.EINVALID
var (
	ErrCartNotFound     = domain.ErrCartNotFound
	ErrCartItemNotFound = domain.ErrCartItemNotFound
	ErrInvalidQuantity  = domain.ErrInvalidQuantity
	ErrCartEmpty        = domain.Errorf(domain.EINVALID, "", "Cart is empty")
)

// Quantity-cap errors - use domain.ELIMIT
var (
	ErrQuantityLimit = domain.Errorf(domain.ELIMIT, "", "Quantity limit for this item exceeded")
)
