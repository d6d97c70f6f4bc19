// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package waitgroup

import (
	"sync"

	"go.uber.org/zap"
)

// WaitGroup is a wrapper for sync.WaitGroup
type WaitGroup struct {
	sync.WaitGroup
}

// Run runs a function in a goroutine, adds 1 to WaitGroup
// and calls done when function returns. Please DO NOT use panic
// in the cb function.
func (w *WaitGroup) Run(exec func()) {
	w.Add(1)
	go func() {
		defer w.Done()
		exec()
	}()
}

// RunWithRecover wraps goroutine startup call with force recovery, adds 1 to
// WaitGroup and calls done when function returns. It will dump the current
// goroutine stack into the log if it catches any recover result.
func (w *WaitGroup) RunWithRecover(exec func(), recoverFn func(r interface{}), logger *zap.Logger) {
	w.Add(1)
	go func() {
		defer func() {
			r := recover()
			if r != nil && logger != nil {
				logger.Error("panic in the recoverable goroutine",
					zap.Reflect("r", r),
					zap.Stack("stack trace"))
			}
			w.Done()
			if r != nil && recoverFn != nil {
				recoverFn(r)
			}
		}()
		exec()
	}()
}
