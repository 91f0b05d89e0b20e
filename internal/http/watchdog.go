package http

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// watchdogBody cancels the request when the body stops delivering data for
// longer than timeout. Unlike http.Client.Timeout it does not bound the
// total transfer time, only inactivity.
type watchdogBody struct {
	rc      io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc
	fired   atomic.Bool
}

func newWatchdogBody(rc io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *watchdogBody {
	w := &watchdogBody{rc: rc, timeout: timeout, cancel: cancel}
	w.timer = time.AfterFunc(timeout, func() {
		w.fired.Store(true)
		cancel()
	})
	return w
}

func (w *watchdogBody) Read(p []byte) (int, error) {
	n, err := w.rc.Read(p)
	if n > 0 && !w.fired.Load() {
		w.timer.Reset(w.timeout)
	}
	if err != nil && err != io.EOF && w.fired.Load() {
		err = fmt.Errorf("%w: no data for %s", ErrStalled, w.timeout)
	}
	return n, err
}

func (w *watchdogBody) Close() error {
	w.timer.Stop()
	err := w.rc.Close()
	w.cancel()
	return err
}
