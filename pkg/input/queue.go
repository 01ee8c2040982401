package input

// Queue is a bounded Discrete source fed by another goroutine, usually the
// terminal UI.
type Queue struct {
	ch chan Action
}

// NewQueue returns a queue holding at most size pending actions.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan Action, size)}
}

// Push enqueues a without blocking and reports whether it fit.
func (q *Queue) Push(a Action) bool {
	select {
	case q.ch <- a:
		return true
	default:
		return false
	}
}

func (q *Queue) Poll() (Action, bool) {
	select {
	case a := <-q.ch:
		return a, true
	default:
		return ActionNone, false
	}
}

// Pending reports how many actions are waiting.
func (q *Queue) Pending() int { return len(q.ch) }
