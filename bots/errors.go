package bots

import "errors"

var (
	// ErrNotEnoughCredits stops generation for an account; output produced so far is kept
	ErrNotEnoughCredits = errors.New("not enough credits")
	// ErrAccessDenied means the account may not monetize; it ends the sub-flow quietly
	ErrAccessDenied = errors.New("monetization access denied")
)
