package scheduler

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
)

// Command is one line of user input, or the exit marker.
type Command struct {
	Text string
	Exit bool
}

// Exit asks the scheduler to stop.
var Exit = Command{Exit: true}

// Queue is an unbounded FIFO of commands. Push never blocks on the
// consumer, and TryDequeue never waits for a producer.
type Queue struct {
	mu    sync.Mutex
	items []Command
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Push(c Command) {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()
}

// TryDequeue pops the oldest command. ok is false when the queue is empty.
func (q *Queue) TryDequeue() (c Command, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Command{}, false
	}
	c = q.items[0]
	q.items[0] = Command{}
	q.items = q.items[1:]
	return c, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// ReadLines pushes every non-blank line of r onto q. Lines may be of any
// length. At end of input it pushes Exit; other read errors are returned
// without stopping the scheduler. It is meant to run in its own goroutine.
func ReadLines(r io.Reader, q *Queue) error {
	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if line := strings.TrimSpace(raw); line != "" {
			q.Push(Command{Text: line})
		}
		if errors.Is(err, io.EOF) {
			q.Push(Exit)
			return nil
		}
		if err != nil {
			return err
		}
	}
}
