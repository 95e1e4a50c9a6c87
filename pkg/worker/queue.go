package worker

const minQueueCapacity = 16

// taskQueue is an unbounded FIFO ring buffer. It has no locking of its own;
// every call happens with poolState.mu held.
type taskQueue struct {
	buf  []*Task
	head int
	size int
}

// push appends t at the tail
func (q *taskQueue) push(t *Task) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.size)%len(q.buf)] = t
	q.size++
}

// pop removes and returns the head. The caller must have checked len() > 0
// in the same critical section.
func (q *taskQueue) pop() *Task {
	if q.size == 0 {
		panic("threadpool: pop from empty task queue")
	}
	t := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return t
}

func (q *taskQueue) len() int {
	return q.size
}

// drain empties the queue and returns its contents in FIFO order
func (q *taskQueue) drain() []*Task {
	if q.size == 0 {
		return nil
	}
	out := make([]*Task, 0, q.size)
	for q.size > 0 {
		out = append(out, q.pop())
	}
	return out
}

func (q *taskQueue) grow() {
	newCap := len(q.buf) * 2
	if newCap < minQueueCapacity {
		newCap = minQueueCapacity
	}
	buf := make([]*Task, newCap)
	for i := 0; i < q.size; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
