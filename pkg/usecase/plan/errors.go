package plan

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidDay       = goerr.New("invalid day")
	ErrInvalidAction    = goerr.New("invalid action")
	ErrInvalidBlock     = goerr.New("invalid block")
	ErrMissingCriteria  = goerr.New("missing criteria")
	ErrProposalNotFound = goerr.New("proposal not found")
	ErrBlockNotFound    = goerr.New("target block not found")
)

// PolicyError lists why a plan policy rejected a proposal.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return "plan change denied by policy: " + strings.Join(e.Reasons, "; ")
}
