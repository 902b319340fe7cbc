package system

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Recorder implements Runner for tests. It records every command it is
// asked to run and answers from a table of canned responses.
type Recorder struct {
	mu sync.Mutex

	// Calls records all executed commands in order.
	Calls []Call

	// Responses maps command patterns to responses. Lookup tries the
	// full command line first, then "name firstArg", then bare name.
	Responses map[string]Response

	// DefaultResponse is used when no pattern matches.
	DefaultResponse Response
}

// Call records one executed command.
type Call struct {
	Name        string
	Args        []string
	Stdin       string
	Interactive bool
}

// Line returns the command as a single space-joined string.
func (c Call) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Response defines the canned result for a command.
type Response struct {
	Output []byte
	Err    error
}

// NewRecorder returns an empty Recorder that succeeds with no output for
// every command.
func NewRecorder() *Recorder {
	return &Recorder{Responses: make(map[string]Response)}
}

// Respond registers a response for a command pattern.
func (r *Recorder) Respond(pattern string, output []byte, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses[pattern] = Response{Output: output, Err: err}
}

func (r *Recorder) lookup(name string, args []string) Response {
	full := strings.Join(append([]string{name}, args...), " ")
	if resp, ok := r.Responses[full]; ok {
		return resp
	}
	if len(args) > 0 {
		if resp, ok := r.Responses[name+" "+args[0]]; ok {
			return resp
		}
	}
	if resp, ok := r.Responses[name]; ok {
		return resp
	}
	return r.DefaultResponse
}

func (r *Recorder) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
	resp := r.lookup(name, args)
	return resp.Output, resp.Err
}

func (r *Recorder) ExecuteWithStdin(ctx context.Context, in io.Reader, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stdin string
	if in != nil {
		b, _ := io.ReadAll(in)
		stdin = string(b)
	}
	r.Calls = append(r.Calls, Call{Name: name, Args: args, Stdin: stdin})
	resp := r.lookup(name, args)
	return resp.Output, resp.Err
}

func (r *Recorder) ExecuteInteractive(ctx context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, Call{Name: name, Args: args, Interactive: true})
	return r.lookup(name, args).Err
}

// Lines returns every recorded command as a space-joined string, in
// execution order.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		lines[i] = c.Line()
	}
	return lines
}

// LastCall returns the most recently recorded command.
func (r *Recorder) LastCall() (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return Call{}, false
	}
	return r.Calls[len(r.Calls)-1], true
}
