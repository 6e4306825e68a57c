// ABOUTME: Entry point for the zeeking command line client
// ABOUTME: Builds the cobra command tree and the colorized slog handler

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/zeeking/internal/app"
	"github.com/2389/zeeking/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := newCLI(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCmd(c).ExecuteContext(ctx)
	if closeErr := c.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "zeeking",
		Short:         "ZeekingAI chat client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChat(cmd.Context(), "")
		},
	}
	root.SetIn(c.rawIn)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default $ZEEKING_CONFIG or ~/.config/zeeking/config.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newForgotPasswordCmd(c),
		newResetPasswordCmd(c),
		newStatsCmd(c),
		newChatsCmd(c),
		newExportCmd(c),
		newChatCmd(c),
	)
	return root
}

// open loads the config, builds the controller and restores the session.
func (c *cli) open(ctx context.Context) error {
	path := c.configPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
		_, explicit = os.LookupEnv("ZEEKING_CONFIG")
	}

	cfg, err := config.LoadOrDefault(path, explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
	}
	c.cfg = cfg
	c.logger = setupLogger(cfg.Logging, c.errOut)

	ctl, err := app.New(cfg, app.Options{
		Navigator: c,
		Confirmer: c,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.ctl = ctl

	if _, err := ctl.Start(ctx); err != nil {
		// An expired session already sent the user to login; the
		// command decides whether it needs one.
		c.logger.Warn("restoring session", "error", err)
	}
	return nil
}

func (c *cli) close() error {
	if c.ctl == nil {
		return nil
	}
	err := c.ctl.Close()
	c.ctl = nil
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = &colorHandler{
			out:   w,
			mu:    &sync.Mutex{},
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + prefix + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		out:    h.out,
		mu:     h.mu,
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		out:    h.out,
		mu:     h.mu,
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
