package extract

import "github.com/charmbracelet/log"

// invokeBestEffort runs one callback, logging and discarding anything it
// raises. A callback must never mask or replace the primary outcome of
// the call it observes, so errors and panics both end here.
func invokeBestEffort(logger *log.Logger, agent, name string, fn func() error) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("extract callback panicked", "agent", agent, "callback", name, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		logger.Warn("extract callback failed", "agent", agent, "callback", name, "err", err)
	}
}
