package strand

// autoResetEvent is a binary, single-waiter park primitive.
//
// signal latches: a signal delivered while nobody is waiting makes the
// next wait return immediately. signal followed by wait never blocks.
// reset clears a latched signal.
//
// The implementation is a one-buffered channel. Channel operations give
// the ordering guarantees the park protocol needs: a signal that races
// with a concurrent wait is never lost, and a latched signal survives
// until consumed or reset.
type autoResetEvent struct {
	ch chan struct{}
}

func newAutoResetEvent() *autoResetEvent {
	return &autoResetEvent{ch: make(chan struct{}, 1)}
}

// signal wakes the waiting goroutine, or latches if nobody is waiting.
// At most one signal is ever buffered.
func (e *autoResetEvent) signal() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// wait blocks until signalled and consumes the signal.
func (e *autoResetEvent) wait() {
	<-e.ch
}

// reset clears a latched signal, if any.
func (e *autoResetEvent) reset() {
	select {
	case <-e.ch:
	default:
	}
}
