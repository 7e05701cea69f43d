package shared

import (
	"fmt"

	"github.com/promodesk/promodesk/internal/platform/httpx"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts alike, so login failures do not reveal which
	// accounts exist.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
)
