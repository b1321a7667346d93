package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitSentinel ends an interactive session.
const ExitSentinel = "exit"

// ErrSessionTerminated is returned when input arrives after the session ended.
var ErrSessionTerminated = errors.New("pipeline: session terminated")

// State is the inference session state.
type State int

const (
	AwaitingInput State = iota
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Reply is the outcome of one line of input. Exactly one of Prediction, Err
// or Exit is set.
type Reply struct {
	Prediction *Prediction
	Err        error
	Exit       bool
}

// Session is the interactive inference loop over a frozen bundle.
type Session struct {
	bundle *Bundle
	state  State
	logger *slog.Logger
}

// NewSession starts a session in AwaitingInput.
func NewSession(b *Bundle, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{bundle: b, state: AwaitingInput, logger: logger}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Handle processes one input line. Classification failures come back in
// Reply.Err and leave the session waiting for the next name.
func (s *Session) Handle(input string) (Reply, error) {
	if s.state == Terminated {
		return Reply{}, ErrSessionTerminated
	}
	if strings.EqualFold(strings.TrimSpace(input), ExitSentinel) {
		s.state = Terminated
		s.logger.Debug("session terminated")
		return Reply{Exit: true}, nil
	}
	pred, err := s.bundle.Classify(input)
	if err != nil {
		s.logger.Debug("classification failed", "input", input, "error", err)
		return Reply{Err: err}, nil
	}
	return Reply{Prediction: &pred}, nil
}

// MaxInputBytes bounds one line of interactive input. Longer lines are
// reported and skipped.
const MaxInputBytes = 4096

// Run reads names from r line by line and writes predictions to w until the
// exit sentinel, end of input or context cancellation.
func (s *Session) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	for s.state == AwaitingInput {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(w, "Enter a name (or type 'exit' to quit): ")
		line, tooLong, err := readLine(br)
		if err != nil {
			s.state = Terminated
			fmt.Fprintln(w)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if tooLong {
			s.logger.Warn("input line too long", "limit", MaxInputBytes)
			fmt.Fprintf(w, "Error: input longer than %d bytes\n\n", MaxInputBytes)
			continue
		}
		reply, err := s.Handle(line)
		if err != nil {
			return err
		}
		switch {
		case reply.Exit:
			return nil
		case reply.Err != nil:
			fmt.Fprintf(w, "Error: %v\n\n", reply.Err)
		default:
			p := reply.Prediction
			fmt.Fprintf(w, "Predicted origin for '%s': %s (%.2f)\n\n", strings.TrimSpace(p.Input), p.Origin, p.Confidence)
		}
	}
	return nil
}

// readLine returns the next line without its terminator. The rest of a line
// over MaxInputBytes is consumed and tooLong is set. A final line without a
// newline is returned before io.EOF.
func readLine(br *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !tooLong && len(buf)+len(chunk) <= MaxInputBytes+2 {
			buf = append(buf, chunk...)
		} else {
			tooLong = true
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		if rerr != nil && (!errors.Is(rerr, io.EOF) || (len(buf) == 0 && !tooLong)) {
			return "", false, rerr
		}
		break
	}
	line = strings.TrimRight(string(buf), "\r\n")
	if len(line) > MaxInputBytes {
		tooLong = true
	}
	return line, tooLong, nil
}
