package control

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"dealwatch/pkg/logger"
)

// Commands is the set of operations a control listener can invoke. Quit is
// expected to cancel the process context.
type Commands struct {
	Start  func()
	Pause  func()
	Resume func()
	Reload func()
	Status func() string
	Quit   func()
}

// Listener reads line commands from a stream, one command per line. It is
// the interactive control surface: start, pause, resume, reload, status and
// quit drive the scheduler while it runs.
type Listener struct {
	in   io.Reader
	cmds Commands
	log  *logger.Logger
}

// NewListener creates a listener over standard input
func NewListener(cmds Commands) *Listener {
	return &Listener{
		in:   os.Stdin,
		cmds: cmds,
		log:  logger.Get().With("component", "control"),
	}
}

// NewListenerFrom creates a listener over an arbitrary stream
func NewListenerFrom(in io.Reader, cmds Commands) *Listener {
	l := NewListener(cmds)
	l.in = in
	return l
}

// Run reads commands until the stream ends or the context is canceled. The
// scanner goroutine keeps running across commands; cancellation only stops
// dispatch.
func (l *Listener) Run(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(l.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			l.dispatch(strings.ToLower(strings.TrimSpace(line)))
		}
	}
}

func (l *Listener) dispatch(cmd string) {
	switch cmd {
	case "":
	case "start":
		l.cmds.Start()
	case "pause":
		l.cmds.Pause()
	case "resume":
		l.cmds.Resume()
	case "reload":
		l.cmds.Reload()
	case "status":
		l.log.Infow("Status", "state", l.cmds.Status())
	case "quit", "exit", "stop":
		l.log.Infow("Shutting down on command")
		l.cmds.Quit()
	default:
		l.log.Warnw("Unknown command", "command", cmd)
	}
}
