package scraper

// State is a step of a scrape run.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateSessionAcquired
	StateNavigated
	StateExtracted
	StateDone
	// StateTornDown follows teardown, whether the run succeeded or not.
	StateTornDown
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateConfiguring:     "configuring",
	StateSessionAcquired: "session_acquired",
	StateNavigated:       "navigated",
	StateExtracted:       "extracted",
	StateDone:            "done",
	StateTornDown:        "torn_down",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
