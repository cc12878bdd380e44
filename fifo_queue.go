package strand

// fifoQueue is the public injection queue: tasks submitted from outside
// the pool land here. Multi-producer, multi-consumer, FIFO among its own
// submissions. A spinlock around a growable power-of-two ring keeps the
// critical section to a few loads and stores, which is cheaper than a
// mutex at this hold time.
type fifoQueue struct {
	lock spinLock

	// All fields below are guarded by lock.
	buffer []func()
	mask   uint64
	head   uint64 // next pop position
	tail   uint64 // next push position
}

const fifoInitialCapacity = 32

func (q *fifoQueue) init() {
	q.buffer = make([]func(), fifoInitialCapacity)
	q.mask = fifoInitialCapacity - 1
}

// push appends a task. Never fails; the ring doubles when full.
func (q *fifoQueue) push(task func()) {
	q.lock.lock()
	if q.buffer == nil {
		q.init()
	}
	if q.tail-q.head == uint64(len(q.buffer)) {
		q.grow()
	}
	q.buffer[q.tail&q.mask] = task
	q.tail++
	q.lock.unlock()
}

// pop removes the oldest task, or returns nil if the queue is empty.
func (q *fifoQueue) pop() func() {
	q.lock.lock()
	if q.head == q.tail {
		q.lock.unlock()
		return nil
	}
	task := q.buffer[q.head&q.mask]
	q.buffer[q.head&q.mask] = nil
	q.head++
	q.lock.unlock()
	return task
}

// grow doubles the ring and re-lays the live window out from index zero.
// Caller holds lock.
func (q *fifoQueue) grow() {
	bigger := make([]func(), len(q.buffer)*2)
	n := uint64(0)
	for i := q.head; i != q.tail; i++ {
		bigger[n] = q.buffer[i&q.mask]
		n++
	}
	q.buffer = bigger
	q.mask = uint64(len(bigger) - 1)
	q.head = 0
	q.tail = n
}
