package delegate

import (
	"context"
	"sync"
)

// FakeRunner records commands instead of running them. Responses are looked
// up by executable name; unknown commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	Calls     []Command
	Responses map[string]*Result
	Errors    map[string]error
}

// NewFakeRunner returns a FakeRunner with no canned responses
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Responses: map[string]*Result{},
		Errors:    map[string]error{},
	}
}

// Run records the command and returns the canned response for its name
func (f *FakeRunner) Run(_ context.Context, cmd Command) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, cmd)
	if err, ok := f.Errors[cmd.Name]; ok {
		return nil, err
	}
	if res, ok := f.Responses[cmd.Name]; ok {
		cp := *res
		return &cp, nil
	}
	return &Result{}, nil
}

// CallsTo returns the recorded invocations of the named executable
func (f *FakeRunner) CallsTo(name string) []Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Command
	for _, c := range f.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
