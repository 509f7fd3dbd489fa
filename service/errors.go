package service

import "errors"

var (
	ErrUnknownPair  = errors.New("service: pair is not registered")
	ErrUnknownToken = errors.New("service: token is not registered")
	ErrTokenExists  = errors.New("service: token already registered")
	ErrPairExists   = errors.New("service: pair already registered")
	ErrBadPair      = errors.New("service: pair legs must differ")
	ErrBelowMinimum = errors.New("service: price or amount below minimum")
	ErrUnauthorized = errors.New("service: caller is not the owner")
)
