// ABOUTME: Terminal input and output for the CLI: line prompts, hidden passwords, confirmations
// ABOUTME: Implements the controller's Navigator and the store's Confirmer

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/2389/zeeking/internal/app"
	"github.com/2389/zeeking/internal/config"
)

var errNotLoggedIn = errors.New("not logged in, run `zeeking login` first")

// cli holds the state shared by every command of one invocation.
type cli struct {
	configPath string
	verbose    bool

	rawIn  io.Reader
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	// fd is the terminal behind rawIn, or -1
	fd int

	cfg    *config.Config
	logger *slog.Logger
	ctl    *app.Controller
}

func newCLI(in io.Reader, out, errOut io.Writer) *cli {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &cli{
		rawIn:  in,
		in:     bufio.NewReader(in),
		out:    &syncWriter{w: out},
		errOut: &syncWriter{w: errOut},
		fd:     fd,
	}
}

// readLine prints prompt and returns the next line without its newline.
// io.EOF is returned only when nothing was typed.
func (c *cli) readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(c.out, prompt)
	}
	line, err := c.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads without echo on a terminal and as a plain line
// otherwise.
func (c *cli) readPassword(prompt string) (string, error) {
	if c.fd < 0 {
		return c.readLine(prompt)
	}
	fmt.Fprint(c.out, prompt)
	b, err := term.ReadPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// valueOr returns flag when set and prompts for the value otherwise.
func (c *cli) valueOr(flag, prompt string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	v, err := c.readLine(prompt)
	return strings.TrimSpace(v), err
}

type assumeYesKey struct{}

// withoutConfirm marks ctx so Confirm answers yes without asking.
func withoutConfirm(ctx context.Context) context.Context {
	return context.WithValue(ctx, assumeYesKey{}, true)
}

// Confirm asks a yes/no question; anything but y or yes is no.
func (c *cli) Confirm(ctx context.Context, prompt string) bool {
	if yes, _ := ctx.Value(assumeYesKey{}).(bool); yes {
		return true
	}
	answer, err := c.readLine(color.YellowString(prompt) + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// ToLogin is called when the session ends.
func (c *cli) ToLogin() {
	color.New(color.FgYellow).Fprintln(c.errOut, "Signed out. Run `zeeking login` to sign in.")
}

func (c *cli) requireSession() error {
	if c.ctl == nil || !c.ctl.Session().Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

func (c *cli) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(c.out, format+"\n", args...)
}

func (c *cli) dim(format string, args ...any) {
	color.New(color.FgHiBlack).Fprintf(c.out, format+"\n", args...)
}

// syncWriter serializes writes from the chat loop and its listeners.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
