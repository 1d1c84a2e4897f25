package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnauthorizedReceive = errors.New("unauthorized receive")
	ErrRoundEnd            = errors.New("round has ended")
	ErrInvalidProxyAddress = errors.New("invalid proxy address")
	ErrInvalidTime         = errors.New("invalid time")
	ErrAlreadyInstantiated = errors.New("round already instantiated")
	ErrNotInstantiated     = errors.New("round not instantiated")

	// ErrDomain is wrapped by every rule violation that carries a message
	// for the caller.
	ErrDomain = errors.New("domain error")

	ErrDenied            = fmt.Errorf("%w: denied action", ErrDomain)
	ErrOnlyOnce          = fmt.Errorf("%w: only allowed to take the lucky number once", ErrDomain)
	ErrNotStarted        = fmt.Errorf("%w: game not start yet", ErrDomain)
	ErrHasEnded          = fmt.Errorf("%w: game has ended", ErrDomain)
	ErrNotEnded          = fmt.Errorf("%w: game not end yet", ErrDomain)
	ErrNotShuffled       = fmt.Errorf("%w: prizes are not shuffled", ErrDomain)
	ErrInsufficientPrize = fmt.Errorf("%w: insufficient prize", ErrDomain)
	ErrInvalidWindow     = fmt.Errorf("%w: time_end is before time_start", ErrDomain)
)
