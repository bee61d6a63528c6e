package session

// State of the session state machine:
//
//	anonymous --login--> authenticated --401--> refreshing
//	refreshing --ok--> authenticated, refreshing --fail--> anonymous
//	authenticated --logout--> anonymous
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "anonymous"
	}
}
