package dispatch

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/iov-one/quorum/errors"
	amino "github.com/tendermint/go-amino"
	"github.com/tendermint/tendermint/libs/log"
)

// LogExecutor writes every task to a logger. It never fails.
type LogExecutor struct {
	Logger log.Logger
}

var _ Executor = LogExecutor{}

func (e LogExecutor) Execute(ctx context.Context, t Task) error {
	if t.IsTransfer() {
		e.Logger.Info("Transfer", "wallet", t.Wallet, "receiver", t.Receiver, "amount", t.Amount)
		return nil
	}
	e.Logger.Info("Function call", "wallet", t.Wallet, "receiver", t.Receiver,
		"method", t.Method, "deposit", t.Deposit, "gas", t.Gas)
	return nil
}

var taskCdc = amino.NewCodec()

// EncodeTask returns the JSON representation of t as posted by the
// WebhookExecutor.
func EncodeTask(t Task) ([]byte, error) {
	return taskCdc.MarshalJSON(t)
}

// DecodeTask parses a task encoded with EncodeTask.
func DecodeTask(raw []byte) (Task, error) {
	var t Task
	if err := taskCdc.UnmarshalJSON(raw, &t); err != nil {
		return t, errors.Wrapf(errors.ErrInput, "cannot decode task: %s", err)
	}
	return t, nil
}

// WebhookExecutor posts every task as JSON to URL. Any response status
// other than 2xx is a delivery failure.
type WebhookExecutor struct {
	URL string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

var _ Executor = (*WebhookExecutor)(nil)

func (e *WebhookExecutor) Execute(ctx context.Context, t Task) error {
	body, err := EncodeTask(t)
	if err != nil {
		return errors.Wrap(err, "encode task")
	}
	req, err := http.NewRequest("POST", e.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create http request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	cli := e.Client
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		return errors.Wrapf(ErrDelivery, "do request: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 1e4))
		return errors.Wrapf(ErrDelivery, "bad response: %d %s", resp.StatusCode, string(b))
	}
	return nil
}
