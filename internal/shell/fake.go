package shell

import (
	"context"
	"fmt"
	"sync"
)

// FakeRunner is a scripted Runner for tests. Responses are matched by
// binary name; every invocation is recorded.
type FakeRunner struct {
	mu sync.Mutex

	// Responses maps a binary name to the results returned for it, in
	// order. The last entry repeats once exhausted.
	Responses map[string][]*Result

	// Errs maps a binary name to a start error. Takes precedence over
	// Responses.
	Errs map[string]error

	// Missing lists binaries LookPath should not find.
	Missing map[string]bool

	Calls []Command

	served map[string]int
}

// NewFakeRunner creates an empty fake that reports success for
// everything.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Responses: make(map[string][]*Result),
		Errs:      make(map[string]error),
		Missing:   make(map[string]bool),
		served:    make(map[string]int),
	}
}

// Script appends a canned result for a binary.
func (f *FakeRunner) Script(binary string, res *Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[binary] = append(f.Responses[binary], res)
}

// Run returns the next scripted result for cmd.Binary.
func (f *FakeRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmd)

	if err, ok := f.Errs[cmd.Binary]; ok {
		return nil, err
	}

	queue := f.Responses[cmd.Binary]
	if len(queue) == 0 {
		return &Result{ExitCode: 0}, nil
	}
	idx := f.served[cmd.Binary]
	if idx >= len(queue) {
		idx = len(queue) - 1
	}
	f.served[cmd.Binary]++
	return queue[idx], nil
}

// LookPath resolves unless the binary is scripted as missing.
func (f *FakeRunner) LookPath(binary string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Missing[binary] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", binary)
	}
	return "/usr/bin/" + binary, nil
}

// CallsTo returns the recorded invocations of a binary.
func (f *FakeRunner) CallsTo(binary string) []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Command
	for _, c := range f.Calls {
		if c.Binary == binary {
			out = append(out, c)
		}
	}
	return out
}
