package oauth

import "errors"

var (
	ErrNoToken      = errors.New("no storefront token stored: install the app or run `ctl token set`")
	ErrTokenExpired = errors.New("token expired and no refresh token available")
)
