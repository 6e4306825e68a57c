// ABOUTME: Interactive chat loop with slash commands for the zeeking CLI
// ABOUTME: Sends each line as a message and prints replies, errors and usage

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/zeeking/internal/client"
	"github.com/2389/zeeking/internal/conversation"
)

const chatHelp = `Commands:
  /new            start a new chat
  /list           list saved chats
  /open <id>      open a saved chat
  /delete <id>    delete a saved chat
  /stats          show token usage
  /export <file>  save this chat as .html or .txt
  /logout         sign out
  /help           show this help
  /quit           leave
Anything else is sent to ZeekingAI.`

// errQuit ends the chat loop normally.
var errQuit = errors.New("quit")

func newChatCmd(c *cli) *cobra.Command {
	var open string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChat(cmd.Context(), conversation.ID(open))
		},
	}
	cmd.Flags().StringVarP(&open, "open", "o", "", "open a saved chat first")
	return cmd
}

func (c *cli) runChat(ctx context.Context, open conversation.ID) error {
	if err := c.requireSession(); err != nil {
		return err
	}

	if !open.IsZero() {
		if err := c.ctl.Open(ctx, open); err != nil {
			return friendly(err)
		}
	}

	// Resets may come from any component; the store applies them and
	// this listener only tells the user.
	resets, _ := c.ctl.Resets().Subscribe(ctx)
	c.ctl.Go(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-resets:
				if !ok {
					return
				}
				c.dim("Started a new chat.")
			}
		}
	})

	color.New(color.FgCyan, color.Bold).Fprintln(c.out, "ZeekingAI")
	c.dim("%s  (/help for commands, /quit to leave)", c.ctl.Usage())
	c.printActive()

	prompt := color.GreenString("> ")
	for {
		if ctx.Err() != nil {
			return nil
		}
		if active := c.ctl.Conversations().Active(); len(active.Messages) == 0 {
			c.dim("Try: %s", strings.Join(conversation.Suggestions, " | "))
		}

		line, err := c.readLine(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			err = c.command(ctx, line)
		} else {
			err = c.send(ctx, line)
		}

		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, client.ErrAuthExpired):
			// The controller already signed out
			return nil
		case err != nil:
			color.New(color.FgRed).Fprintln(c.out, friendly(err))
		}
		if !c.ctl.Session().Authenticated() {
			return nil
		}
	}
}

func (c *cli) send(ctx context.Context, text string) error {
	c.dim("ZeekingAI is thinking...")
	out, err := c.ctl.Send(ctx, text)
	if err != nil {
		return err
	}
	if out.Stale {
		return nil
	}

	c.printMessage(out.Reply)
	if !out.BoundID.IsZero() {
		c.dim("Saved as chat %s", out.BoundID)
	}
	c.dim("%s", c.ctl.Usage())
	return nil
}

func (c *cli) command(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		fmt.Fprintln(c.out, chatHelp)
	case "/new":
		c.ctl.NewDraft("repl")
	case "/list":
		summaries, err := c.ctl.RefreshConversations(ctx)
		if err != nil {
			return err
		}
		c.printSummaries(summaries)
	case "/open":
		if arg == "" {
			return errors.New("usage: /open <id>")
		}
		if err := c.ctl.Open(ctx, conversation.ID(arg)); err != nil {
			return err
		}
		c.printActive()
	case "/delete":
		if arg == "" {
			return errors.New("usage: /delete <id>")
		}
		ok, err := c.ctl.Delete(ctx, conversation.ID(arg))
		if err != nil {
			return err
		}
		if ok {
			c.success("Deleted chat %s", arg)
		}
	case "/stats":
		snap, err := c.ctl.RefreshUsage(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, snap)
	case "/export":
		if arg == "" {
			return errors.New("usage: /export <file>")
		}
		return c.exportTo(ctx, "", arg)
	case "/logout":
		if err := c.ctl.Logout(ctx); err != nil {
			return err
		}
		return errQuit
	default:
		return fmt.Errorf("unknown command %s, try /help", name)
	}
	return nil
}

func (c *cli) printActive() {
	active := c.ctl.Conversations().Active()
	if active.IsDraft() {
		return
	}
	c.dim("Chat %s", active.ID)
	for _, m := range active.Messages {
		c.printMessage(m)
	}
}

func (c *cli) printMessage(m conversation.Message) {
	switch {
	case m.IsError:
		color.New(color.FgRed).Fprintf(c.out, "ZeekingAI: %s\n", m.Text)
	case m.Role == conversation.RoleUser:
		color.New(color.FgGreen).Fprint(c.out, "You: ")
		fmt.Fprintln(c.out, m.Text)
	default:
		color.New(color.FgCyan).Fprint(c.out, "ZeekingAI: ")
		fmt.Fprintln(c.out, m.Text)
	}
}
