// Package term runs an interactive chat session in a terminal.
package term

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/jian-li1/reddit-llm/internal/prompt"
)

// Replier produces reply snapshots for a message.
type Replier interface {
	Reply(ctx context.Context, message string, history []prompt.Message) iter.Seq[string]
}

type Options struct {
	In    io.Reader
	Out   io.Writer
	Title string
	// Spinner shows a progress indicator until the first snapshot arrives.
	Spinner bool
}

// Session is a read-reply loop over Options.In.
type Session struct {
	r       Replier
	in      io.Reader
	out     io.Writer
	title   string
	spinner bool
	history []prompt.Message

	you, bot, dim *color.Color
}

func New(r Replier, opts Options) *Session {
	title := opts.Title
	if title == "" {
		title = "chatbot"
	}
	return &Session{
		r:       r,
		in:      opts.In,
		out:     opts.Out,
		title:   title,
		spinner: opts.Spinner,
		you:     color.New(color.FgGreen),
		bot:     color.New(color.FgCyan, color.Bold),
		dim:     color.New(color.FgHiBlack),
	}
}

// Run reads one message per line until EOF, "exit"/"quit", or ctx is done.
// "/clear" forgets the conversation so far.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out)
	s.bot.Fprintf(s.out, "  %s\n", s.title)
	s.dim.Fprintf(s.out, "  Type 'exit' to quit, '/clear' to start over.\n\n")

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		s.you.Fprint(s.out, "  you → ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(s.out)
			select {
			case err := <-errc:
				return err
			default:
				return nil
			}
		}
		switch strings.TrimSpace(line) {
		case "exit", "quit":
			s.dim.Fprintf(s.out, "\n  Bye.\n\n")
			return nil
		case "/clear":
			s.history = nil
			s.dim.Fprintf(s.out, "  (history cleared)\n\n")
			continue
		}
		reply := s.reply(ctx, line)
		s.history = append(s.history,
			prompt.Message{Role: prompt.RoleUser, Content: line},
			prompt.Message{Role: prompt.RoleAssistant, Content: reply},
		)
	}
}

// reply streams one response, printing only what each snapshot adds.
func (s *Session) reply(ctx context.Context, message string) string {
	var sp *spinner.Spinner
	if s.spinner {
		sp = spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(s.out))
		sp.Suffix = "  Thinking..."
		_ = sp.Color("cyan")
		sp.Start()
	}
	stop := func() {
		if sp != nil {
			sp.Stop()
			sp = nil
		}
	}
	defer stop()

	var (
		shown   string
		started bool
	)
	for snap := range s.r.Reply(ctx, message, s.history) {
		if !started {
			stop()
			s.bot.Fprint(s.out, "  bot → ")
			started = true
		}
		fmt.Fprint(s.out, delta(shown, snap))
		shown = snap
	}
	if !started {
		stop()
		s.bot.Fprint(s.out, "  bot → ")
		s.dim.Fprint(s.out, "(no reply)")
	}
	fmt.Fprint(s.out, "\n\n")
	return shown
}

// delta returns the text snap adds to prev. Snapshots normally extend the
// previous one; anything else is reprinted in full on a new line.
func delta(prev, snap string) string {
	if strings.HasPrefix(snap, prev) {
		return snap[len(prev):]
	}
	return "\n" + snap
}
