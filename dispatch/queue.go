package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/wallet"
	"github.com/tendermint/tendermint/libs/log"
	"golang.org/x/sync/errgroup"
)

// ErrDelivery is returned by executors that could not deliver an effect.
var ErrDelivery = errors.Register(1200, "effect delivery")

// Task is a single effect waiting for delivery. Method is empty for
// value transfers.
type Task struct {
	Wallet   string         `json:"wallet,omitempty"`
	Receiver quorum.Address `json:"receiver"`
	Method   string         `json:"method,omitempty"`
	Args     string         `json:"args,omitempty"`
	Amount   uint64         `json:"amount"`
	Deposit  uint64         `json:"deposit"`
	Gas      uint64         `json:"gas"`
}

// IsTransfer returns true if the task moves value without calling a
// method.
func (t Task) IsTransfer() bool {
	return t.Method == ""
}

// Executor performs a single task.
type Executor interface {
	Execute(ctx context.Context, t Task) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, t Task) error

func (fn ExecutorFunc) Execute(ctx context.Context, t Task) error {
	return fn(ctx, t)
}

// Queue is an unbounded FIFO of tasks. It is safe for concurrent use.
type Queue struct {
	exec   Executor
	logger log.Logger

	mu    sync.Mutex
	tasks []Task
	// notify holds a token while tasks may be waiting.
	notify chan struct{}
}

var _ wallet.Dispatcher = (*Queue)(nil)

// NewQueue returns an empty queue delivering tasks with exec. A nil
// logger discards all messages.
func NewQueue(exec Executor, logger log.Logger) *Queue {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Queue{
		exec:   exec,
		logger: logger.With("module", "dispatch"),
		notify: make(chan struct{}, 1),
	}
}

// DispatchTransfer enqueues a transfer. The wallet id is taken from
// ctx if set.
func (q *Queue) DispatchTransfer(ctx quorum.Context, receiver quorum.Address, amount uint64) {
	walletID, _ := quorum.GetWalletID(ctx)
	q.Push(Task{Wallet: walletID, Receiver: receiver.Clone(), Amount: amount})
}

// DispatchCall enqueues a function call. The wallet id is taken from
// ctx if set.
func (q *Queue) DispatchCall(ctx quorum.Context, receiver quorum.Address, method, args string, deposit, gas uint64) {
	walletID, _ := quorum.GetWalletID(ctx)
	q.Push(Task{
		Wallet:   walletID,
		Receiver: receiver.Clone(),
		Method:   method,
		Args:     args,
		Deposit:  deposit,
		Gas:      gas,
	})
}

// Push appends t to the queue. It never blocks.
func (q *Queue) Push(t Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	q.signal()
}

// Len returns the number of tasks waiting for a worker.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return Task{}, false
	}
	t := q.tasks[0]
	q.tasks[0] = Task{}
	q.tasks = q.tasks[1:]
	if len(q.tasks) > 0 {
		// wake up another worker
		q.signal()
	}
	return t, true
}

// Run delivers queued tasks with the given number of workers until ctx
// is cancelled. Tasks still queued at that point are kept.
func (q *Queue) Run(ctx context.Context, workers int) error {
	if workers < 1 {
		return errors.Wrapf(errors.ErrInput, "workers must be positive, got %d", workers)
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return q.work(ctx)
		})
	}
	return g.Wait()
}

func (q *Queue) work(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if t, ok := q.pop(); ok {
			q.deliver(ctx, t)
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-q.notify:
		}
	}
}

func (q *Queue) deliver(ctx context.Context, t Task) {
	start := time.Now()
	err := q.execute(ctx, t)
	logger := q.logger.With("wallet", t.Wallet, "receiver", t.Receiver, "duration", time.Since(start)/time.Microsecond)
	if err != nil {
		logger.Error("Effect delivery failed", "err", err)
		return
	}
	logger.Debug("Effect delivered")
}

func (q *Queue) execute(ctx context.Context, t Task) (err error) {
	defer errors.Recover(&err)
	return q.exec.Execute(ctx, t)
}
