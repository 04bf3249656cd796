package session

import (
	"time"

	"camdash/pkg/models"
)

// reportDuration is how long failure notifications stay up.
const reportDuration = 5 * time.Second

// Outcome discriminates a Result.
type Outcome int

const (
	OK Outcome = iota
	InvalidCredentials
	NetworkError
	Rejected // any other server-side refusal, e.g. username taken
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case InvalidCredentials:
		return "invalid_credentials"
	case NetworkError:
		return "network_error"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is what Login and Register return in place of an error.
type Result struct {
	Outcome   Outcome
	User      *models.User
	AutoLogin bool
	Message   string // suitable for showing inline
	Err       error
}

func (r Result) OK() bool { return r.Outcome == OK }

// State names the position of the session in its state machine.
type State int

const (
	Unresolved State = iota
	SetupRequired
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case SetupRequired:
		return "setup_required"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

func stateOf(s models.Session) State {
	switch {
	case s.Loading:
		return Unresolved
	case s.SetupRequired:
		return SetupRequired
	case s.IsAuthenticated:
		return Authenticated
	default:
		return Unauthenticated
	}
}
