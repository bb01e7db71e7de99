// Package gdbmi runs gdb as a subprocess and exchanges machine-interface
// (MI) protocol text with it, decoding each output line into a typed
// Record so callers never parse protocol text themselves.
package gdbmi

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/trapito/gdbmi/pkg/concurrency"
	"github.com/trapito/gdbmi/pkg/osutil"
)

const (
	// DefaultTimeout bounds command/response cycles unless the caller
	// overrides it.
	DefaultTimeout = 1 * time.Second

	// lockAttemptTimeout bounds the wait for the controller's read lock.
	// A reader that cannot get the lock in this window returns an empty
	// batch instead of stacking up behind the current read cycle.
	lockAttemptTimeout = 1 * time.Second
)

// DefaultArgs is the gdb argument list used when the caller passes a nil
// slice to New: skip init files, suppress the banner, speak MI.
var DefaultArgs = []string{"--nx", "--quiet", "--interpreter=mi2"}

// Command is the instruction (or ordered instruction batch) handed to
// Write. The zero value is invalid; construct with NewCommand or
// NewCommandList.
type Command struct {
	lines []string
}

// NewCommand wraps a single MI instruction.
func NewCommand(line string) Command {
	return Command{lines: []string{line}}
}

// NewCommandList wraps an ordered sequence of MI instructions, transmitted
// as one newline-joined write.
func NewCommandList(lines []string) Command {
	return Command{lines: append([]string(nil), lines...)}
}

// wire returns the exact bytes to transmit: lines joined and terminated by
// a newline.
func (c Command) wire() (string, error) {
	if len(c.lines) == 0 {
		return "", fmt.Errorf("%w: the gdb mi command must not be empty", ErrInvalidConfig)
	}
	joined := strings.Join(c.lines, "\n")
	if !strings.HasSuffix(joined, "\n") {
		joined += "\n"
	}
	return joined, nil
}

// WriteOptions select how a write/read cycle behaves. The zero value means
// "check once and return immediately, never fail on timeout"; use
// DefaultWriteOptions for the usual bounded request/response behavior.
type WriteOptions struct {
	// Timeout bounds the wait for pipe readiness and for response
	// records. Zero degrades to a single readiness check; negative values
	// are clamped to zero with a logged warning.
	Timeout time.Duration

	// RaiseOnTimeout makes an empty batch at deadline expiry an ErrTimeout
	// failure instead of an empty result.
	RaiseOnTimeout bool

	// ReadResponse makes Write read and return gdb's response. When false
	// Write returns an empty batch without reading, for callers running
	// their own reader loop.
	ReadResponse bool

	// Blocking ignores Timeout once waiting starts: the cycle is bounded
	// only by gdb actually accepting input and producing output.
	Blocking bool

	// WaitForResult keeps a blocking read going until a result-kind record
	// has been seen, rather than returning as soon as any data drains.
	WaitForResult bool

	// Verbose traces this call's records through the controller's logger
	// even if the controller itself is not verbose.
	Verbose bool
}

// DefaultWriteOptions mirrors the library's historical defaults: bounded
// one-second cycle, response read, hard failure on timeout.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{
		Timeout:        DefaultTimeout,
		RaiseOnTimeout: true,
		ReadResponse:   true,
	}
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithLogger sets the logger used for launch/trace output. The default
// discards everything, keeping the read path free of logging work.
func WithLogger(log logr.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithVerbose traces every written command and decoded record through the
// controller's logger.
func WithVerbose() Option {
	return func(c *Controller) { c.verbose = true }
}

// Controller owns one gdb subprocess: its three pipes, the per-stream
// carry-over buffers for torn records, and the lock that serializes read
// cycles. A Controller is safe for concurrent use; concurrent readers
// serialize rather than interleave, so records stay with the command that
// provoked them. It is not shared state: each Controller owns its process
// exclusively.
type Controller struct {
	log     logr.Logger
	verbose bool

	cmdline []string

	cmd    *exec.Cmd
	stdin  *os.File // parent end of gdb's stdin
	stdout *os.File // parent end of gdb's stdout
	stderr *os.File // parent end of gdb's stderr

	// Raw descriptors captured once at spawn. os.File.Fd cannot be used
	// afterwards: on Unix it flips the descriptor back to blocking mode.
	stdinFD  int
	stdoutFD int
	stderrFD int

	lock  *concurrency.Lock
	carry map[Stream][]byte
}

// New resolves gdbPath, spawns gdb with MI pipes and returns a running
// Controller. A nil args slice selects DefaultArgs; an empty non-nil slice
// passes no arguments. Construction fails if the executable cannot be
// resolved or spawned.
func New(gdbPath string, args []string, opts ...Option) (*Controller, error) {
	c := &Controller{
		log:   logr.Discard(),
		lock:  concurrency.NewLock(),
		carry: map[Stream][]byte{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if gdbPath == "" {
		return nil, fmt.Errorf("%w: a valid path to gdb must be specified", ErrInvalidConfig)
	}
	absPath, err := osutil.ResolveExecutable(gdbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if args == nil {
		args = DefaultArgs
	}
	c.cmdline = append([]string{absPath}, args...)

	if c.verbose {
		c.log.Info("launching gdb", "command", strings.Join(c.cmdline, " "))
	}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("could not create stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW)
		return nil, fmt.Errorf("could not create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW)
		return nil, fmt.Errorf("could not create stderr pipe: %w", err)
	}

	cmd := exec.Command(absPath, args...)
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW, stderrR, stderrW)
		return nil, fmt.Errorf("could not spawn gdb: %w", err)
	}

	// The child ends belong to gdb now.
	closeAll(stdinR, stdoutW, stderrW)

	c.cmd = cmd
	c.stdin, c.stdout, c.stderr = stdinW, stdoutR, stderrR
	c.stdinFD = int(stdinW.Fd())
	c.stdoutFD = int(stdoutR.Fd())
	c.stderrFD = int(stderrR.Fd())

	for _, fd := range []int{c.stdoutFD, c.stderrFD} {
		if err := osutil.SetNonblocking(fd); err != nil {
			_ = c.Exit()
			return nil, err
		}
	}

	return c, nil
}

// Write transmits cmd to gdb and, unless opts disable it, reads and
// returns the response batch. A nil opts selects DefaultWriteOptions.
//
// The command is written only once gdb's stdin reports writable within the
// timeout (or unconditionally waited for in blocking mode); an unwritable
// stdin is traced and the cycle proceeds to the read phase empty-handed,
// matching the transport's lossy-but-never-stuck contract.
func (c *Controller) Write(cmd Command, opts *WriteOptions) ([]Record, error) {
	o := c.normalizeOptions(opts)

	if err := c.verifyRunning(); err != nil {
		return nil, err
	}
	text, err := cmd.wire()
	if err != nil {
		return nil, err
	}

	if c.verbose || o.Verbose {
		c.log.Info("writing to gdb", "command", strings.TrimRight(text, "\n"))
	}

	writeTimeout := o.Timeout
	if o.Blocking {
		writeTimeout = -1
	}
	ready, err := osutil.WaitWritable(c.stdinFD, writeTimeout)
	if err != nil {
		return nil, err
	}
	if ready {
		// os.Pipe writes are unbuffered: once WritePipe returns, gdb can
		// see the command. There is no flush step to forget.
		if err := osutil.WritePipe(c.stdinFD, []byte(text)); err != nil {
			return nil, fmt.Errorf("could not write command to gdb: %w", err)
		}
	} else {
		c.log.V(1).Info("gdb stdin did not become writable before the deadline, command not sent")
	}

	if !o.ReadResponse {
		return []Record{}, nil
	}
	return c.readResponse(o)
}

// ReadResponse reads whatever records gdb produces within the timeout,
// decoded and tagged with their source stream. A nil opts selects
// DefaultWriteOptions. It is exported for callers running their own reader
// loop instead of per-command reads.
func (c *Controller) ReadResponse(opts *WriteOptions) ([]Record, error) {
	return c.readResponse(c.normalizeOptions(opts))
}

func (c *Controller) readResponse(o WriteOptions) ([]Record, error) {
	if err := c.verifyRunning(); err != nil {
		return nil, err
	}

	// Another in-flight read cycle owns the pipes. Reading anyway would
	// hand this caller records belonging to the other caller's command, so
	// give up after a bounded wait and return an empty batch.
	if !c.lock.LockFor(lockAttemptTimeout) {
		return []Record{}, nil
	}
	defer c.lock.Unlock()

	records, err := c.collect(o)
	if err != nil {
		return records, err
	}
	if len(records) == 0 && o.RaiseOnTimeout {
		return nil, fmt.Errorf("%w: %s elapsed", ErrTimeout, o.Timeout)
	}
	return records, nil
}

// collect runs the readiness/drain/decode loop until the termination
// condition selected by o is met.
func (c *Controller) collect(o WriteOptions) ([]Record, error) {
	deadline := time.Now().Add(o.Timeout)
	records := []Record{}
	resultSeen := false

	// A stream that reaches EOF is dropped from the poll set: poll would
	// otherwise report it ready on every iteration and turn the wait into
	// a spin.
	pollSet := []int{c.stdoutFD, c.stderrFD}

	for len(pollSet) > 0 {
		remaining := time.Duration(-1)
		if !o.Blocking {
			remaining = time.Until(deadline)
			if remaining < 0 || o.Timeout == 0 {
				remaining = 0
			}
		}

		ready, err := osutil.WaitReadable(pollSet, remaining)
		if err != nil {
			return records, err
		}

		for _, fd := range ready {
			var stream Stream
			switch fd {
			case c.stdoutFD:
				stream = StreamStdout
			case c.stderrFD:
				stream = StreamStderr
			default:
				// Readiness on a descriptor we do not own is a programming
				// defect, not a recoverable condition.
				return records, fmt.Errorf("readiness reported on unexpected file descriptor %d", fd)
			}

			chunk, err := osutil.DrainPipe(fd)
			if err != nil {
				return records, err
			}
			if len(chunk) == 0 {
				// Readable with nothing to drain means the far side
				// closed this stream.
				pollSet = removeFD(pollSet, fd)
				continue
			}

			var sawResult bool
			records, sawResult, err = c.decodeChunk(records, chunk, stream, o.Verbose)
			resultSeen = resultSeen || sawResult
			if err != nil {
				return records, err
			}
		}

		if o.Blocking {
			if o.WaitForResult {
				if resultSeen {
					return records, nil
				}
			} else if len(records) > 0 {
				return records, nil
			}
			continue
		}
		if o.Timeout == 0 || !time.Now().Before(deadline) {
			return records, nil
		}
	}
	return records, nil
}

func removeFD(fds []int, fd int) []int {
	out := fds[:0]
	for _, f := range fds {
		if f != fd {
			out = append(out, f)
		}
	}
	return out
}

// decodeChunk runs one freshly read chunk through the stream's carry-over
// buffer, decodes every completed line and appends the records, tagged
// with their source stream. Prompt sentinel lines are consumed silently.
func (c *Controller) decodeChunk(records []Record, chunk []byte, stream Stream, verbose bool) ([]Record, bool, error) {
	ready, carry := reassemble(chunk, c.carry[stream])
	c.carry[stream] = carry
	if len(ready) == 0 {
		return records, false, nil
	}

	sawResult := false
	for _, raw := range strings.Split(string(ready), "\n") {
		line := strings.TrimSuffix(raw, "\r")
		if line == "" || IsPrompt(line) {
			continue
		}
		rec, err := DecodeLine(line)
		if err != nil {
			return records, sawResult, err
		}
		rec.Stream = stream
		if c.verbose || verbose {
			c.log.Info("parsed gdb response", "record", rec)
		}
		records = append(records, rec)
		if rec.Kind == KindResult {
			sawResult = true
		}
	}
	return records, sawResult, nil
}

// Exit terminates the gdb process, releases the pipes and discards the
// process handle. The transition is final; calling Exit again, or when no
// process is attached, is a no-op.
func (c *Controller) Exit() error {
	if c.cmd != nil && c.cmd.Process != nil {
		if err := osutil.Terminate(c.cmd.Process); err != nil {
			c.log.V(1).Info("could not signal gdb to terminate", "error", err.Error())
		}
	}
	closeAll(c.stdin, c.stdout, c.stderr)
	c.stdin, c.stdout, c.stderr = nil, nil, nil
	c.cmd = nil
	return nil
}

// Running reports whether a live gdb process is attached.
func (c *Controller) Running() bool {
	return c.verifyRunning() == nil
}

// CommandLine returns the resolved command line gdb was launched with.
func (c *Controller) CommandLine() []string {
	return append([]string(nil), c.cmdline...)
}

// verifyRunning asserts there is a process handle and the process has not
// exited yet.
func (c *Controller) verifyRunning() error {
	if c.cmd == nil || c.cmd.Process == nil {
		return fmt.Errorf("%w: gdb process is not attached", ErrNoProcess)
	}
	if exited, code := osutil.ProcessExited(c.cmd.Process.Pid); exited {
		return fmt.Errorf("%w: gdb process has already finished with return code %d", ErrNoProcess, code)
	}
	return nil
}

// normalizeOptions fills in defaults and clamps a negative timeout to
// zero. The clamp is a warning, not an error, to match the library's
// long-standing behavior.
func (c *Controller) normalizeOptions(opts *WriteOptions) WriteOptions {
	if opts == nil {
		return *DefaultWriteOptions()
	}
	o := *opts
	if o.Timeout < 0 {
		c.log.Info("warning: negative timeout replaced with 0", "timeout", o.Timeout.String())
		o.Timeout = 0
	}
	return o
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
