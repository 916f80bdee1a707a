// Package threadexecutor runs blocking work off a single-threaded event loop.
//
// Code running on an event loop must never block it. This library lets loop
// code hand a blocking callable to a worker goroutine and get back a Future
// that is settled on the loop once the callable finishes, so the result is
// observed without locks and without ever blocking the loop.
//
// # Quick Start
//
// Initialize the global pool at application startup:
//
//	threadexecutor.InitGlobalExecutor(4) // at most 4 workers
//	defer threadexecutor.ShutdownGlobalExecutor(5 * time.Second)
//
// Move a blocking call off the loop:
//
//	fut, err := threadexecutor.Go(func(ctx context.Context) ([]byte, error) {
//		return os.ReadFile("config.yaml")
//	})
//	fut.OnComplete(func(ctx context.Context, data []byte, err error) {
//		// Runs on the loop goroutine.
//	})
//
// # Key Concepts
//
// ThreadExecutor: one dedicated worker, tasks run in submission order. Use it
// for libraries that are not safe for concurrent use.
//
// MultiThreadExecutor: an elastic pool. It starts empty, grows by one worker
// per submission up to its cap and only shrinks through Shutdown.
//
// Future: a single-assignment cell owned by an event loop. Outcomes are
// written on the loop goroutine, so a Future cancelled by its consumer stays
// cancelled even if its callable finishes later.
//
// Stream: drives a Go iterator (or a step function) on the workers, one
// element per task, with at most one step in flight.
//
// # Event Loops
//
// Any TaskRunner can own an executor's futures (see WithLoop). Without one,
// each executor creates a SingleThreadTaskRunner at Start and stops it once
// its shutdown completes. The adapters/goeventloop package plugs in a
// github.com/joeycumines/go-eventloop Loop.
//
// # Example
//
//	import (
//		"context"
//		threadexecutor "github.com/Swind/go-thread-executor"
//	)
//
//	func main() {
//		executor := threadexecutor.NewThreadExecutor()
//		err := executor.Do(context.Background(), func(ctx context.Context) error {
//			fut, err := threadexecutor.Submit(executor, func(ctx context.Context) (string, error) {
//				return "Hello, World!", nil
//			})
//			if err != nil {
//				return err
//			}
//			greeting, err := fut.Await(ctx)
//			println(greeting)
//			return err
//		})
//		...
//	}
package threadexecutor
