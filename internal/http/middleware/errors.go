package middleware

import (
	"errors"
	"fmt"
)

var errMissingIdentity = errors.New("missing user or session id")

func errMalformed(header string) error {
	return fmt.Errorf("%s is not a valid uuid", header)
}
