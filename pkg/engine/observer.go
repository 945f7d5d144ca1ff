package engine

// Outcome describes one terminal evaluation result. Err is nil on success.
type Outcome struct {
	Session string
	Op      string
	Mode    string
	Keys    []string
	Command string
	Actions int
	Err     error
}

// Observer receives every terminal outcome of a tree and its sessions.
// Observers are called synchronously from the evaluating goroutine.
type Observer interface {
	Observe(Outcome)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Outcome)

// Observe calls f(o).
func (f ObserverFunc) Observe(o Outcome) { f(o) }

// Observers fans an outcome out to several observers in order.
type Observers []Observer

// Observe implements Observer.
func (os Observers) Observe(o Outcome) {
	for _, obs := range os {
		if obs != nil {
			obs.Observe(o)
		}
	}
}
