package judge

import (
	"context"
	"io"
	"sync"

	"vexoj/internal/sandbox"
)

// StreamCallbacks receive interactive process output as it is produced.
// Callbacks run on the reader goroutines and must not block for long.
type StreamCallbacks struct {
	OnStdout func(chunk string)
	OnStderr func(chunk string)
}

const streamChunkSize = 4096

// RunInteractive pumps an interactive process until it exits or the
// context is cancelled. Input arriving on stdin is written to the
// process; closing the channel closes the process's standard input.
// Cancelling the context kills the whole sandboxed process group, so a
// program that ignores a closed stdin still terminates.
func RunInteractive(ctx context.Context, proc sandbox.Process, stdin <-chan string, cb StreamCallbacks) (*sandbox.Meta, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = proc.Kill()
		case <-done:
		}
	}()

	go func() {
		w := proc.Stdin()
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-stdin:
				if !ok {
					return
				}
				if _, err := io.WriteString(w, line); err != nil {
					return
				}
			}
		}
	}()

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		pump(proc.Stdout(), cb.OnStdout)
	}()
	go func() {
		defer readers.Done()
		pump(proc.Stderr(), cb.OnStderr)
	}()

	// The pipes must be drained before Wait.
	readers.Wait()
	meta, err := proc.Wait()
	close(done)
	return meta, err
}

func pump(r io.Reader, emit func(string)) {
	buf := make([]byte, streamChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 && emit != nil {
			emit(string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}
