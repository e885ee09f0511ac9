package realtime

import (
	"fmt"
)

// ControlAuthorizer gates scan control commands to privileged
// identities. An unauthorized attempt produces a scoped error back to
// the sender and leaves run state untouched.
type ControlAuthorizer struct{}

// NewControlAuthorizer creates the authorizer.
func NewControlAuthorizer() *ControlAuthorizer {
	return &ControlAuthorizer{}
}

// Authorize checks whether the identity may issue the given command.
func (a *ControlAuthorizer) Authorize(identity *Identity, command string) error {
	if identity == nil || !identity.Admin {
		return fmt.Errorf("%s requires admin privileges", command)
	}
	return nil
}
