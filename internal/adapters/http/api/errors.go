package api

import "errors"

// ErrBadRequest marks request bodies that could not be decoded.
var ErrBadRequest = errors.New("bad request")
