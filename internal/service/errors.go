package service

import "errors"

var (
	ErrNotFound          = errors.New("error holding not found")
	ErrAlreadyExists     = errors.New("error holding already exists")
	ErrInvalidStockRatio = errors.New("error invalid stock ratio")
	ErrInvalidHolding    = errors.New("error invalid holding")
)
