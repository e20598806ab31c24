// Package cli implements the tmctl commands on top of the API services.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"talentmatch-client/internal/config"
	"talentmatch-client/internal/model"
	"talentmatch-client/internal/service"
	"talentmatch-client/pkg/apierror"
)

const (
	ExitOK             = 0
	ExitError          = 1
	ExitSessionExpired = 2
)

const (
	sessionExpiredMessage   = "session expired, please log in again"
	notAuthenticatedMessage = "not logged in, run 'tmctl login' first"
)

var Version = "dev"

type Services struct {
	Auth      *service.AuthService
	Resumes   *service.ResumeService
	Jobs      *service.JobService
	Query     *service.QueryService
	Dashboard *service.DashboardService
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, c *CLI, args []string) error
}

type CLI struct {
	services Services
	tty      *os.File
	stdin    *bufio.Reader
	stdout   io.Writer
	stderr   io.Writer
	commands map[string]command

	defaultFormat string
	format        string
}

func New(services Services, stdin io.Reader, stdout io.Writer, stderr io.Writer, format string) *CLI {
	if format == "" {
		format = config.OutputTable
	}

	c := &CLI{
		services: services,
		tty:      terminal(stdin),
		stdin:    bufio.NewReader(stdin),
		stdout:   stdout,
		stderr:   stderr,
		commands: map[string]command{},

		defaultFormat: format,
	}
	for _, cmd := range commandTable() {
		c.commands[cmd.name] = cmd
	}

	return c
}

var errUsage = errors.New("usage")

// Run executes one command and returns the process exit code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	c.format = c.defaultFormat

	global := flag.NewFlagSet("tmctl", flag.ContinueOnError)
	global.SetOutput(c.stderr)
	global.StringVar(&c.format, "o", c.format, "output format: table or json")
	global.Usage = c.usage
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitError
	}

	rest := global.Args()
	if len(rest) == 0 {
		c.usage()
		return ExitError
	}

	name := rest[0]
	if name == "help" || name == "-h" || name == "--help" {
		c.usage()
		return ExitOK
	}

	cmd, exists := c.commands[name]
	if !exists {
		fmt.Fprintf(c.stderr, "unknown command %q\n\n", name)
		c.usage()
		return ExitError
	}

	if c.format != config.OutputTable && c.format != config.OutputJSON {
		fmt.Fprintf(c.stderr, "error: unsupported output format %q\n", c.format)
		return ExitError
	}

	return c.exitCode(cmd.run(ctx, c, rest[1:]))
}

func (c *CLI) exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, errUsage):
		return ExitError
	case errors.Is(err, model.ErrSessionExpired):
		fmt.Fprintln(c.stderr, sessionExpiredMessage)
		return ExitSessionExpired
	case errors.Is(err, model.ErrNotAuthenticated):
		fmt.Fprintln(c.stderr, notAuthenticatedMessage)
		return ExitSessionExpired
	default:
		fmt.Fprintf(c.stderr, "error: %s\n", errorMessage(err))
		return ExitError
	}
}

// errorMessage prefers the server's own message over the wrapped chain.
func errorMessage(err error) string {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	msg := apiErr.Message
	if apiErr.Field != "" {
		msg += " [" + apiErr.Field + "]"
	}
	if apiErr.Details != "" {
		msg += ": " + apiErr.Details
	}
	return fmt.Sprintf("%s (%d %s)", msg, apiErr.HTTPStatus, apiErr.Code)
}

func (c *CLI) usage() {
	fmt.Fprintf(c.stderr, "Usage: tmctl [-o table|json] <command> [flags] [args]\n\nCommands:\n")

	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	w := newTable(c.stderr)
	for _, name := range names {
		cmd := c.commands[name]
		fmt.Fprintf(w, "  %s\t%s\n", cmd.usage, cmd.summary)
	}
	_ = w.Flush()
}

// flags builds a flag set for a subcommand. Every subcommand accepts -o.
func (c *CLI) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&c.format, "o", c.format, "output format: table or json")
	return fs
}

func (c *CLI) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func (c *CLI) usageError(usage string) error {
	fmt.Fprintf(c.stderr, "usage: tmctl %s\n", usage)
	return errUsage
}

// prompt reads one line from stdin, printing label first.
func (c *CLI) prompt(label string) (string, error) {
	fmt.Fprint(c.stderr, label)
	line, err := c.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.TrimSuffix(strings.ToLower(label), ": "))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptSecret reads a password without echo when stdin is a terminal and
// falls back to a plain line otherwise.
func (c *CLI) promptSecret(label string) (string, error) {
	if c.tty == nil {
		return c.prompt(label)
	}

	fmt.Fprint(c.stderr, label)
	secret, err := term.ReadPassword(int(c.tty.Fd()))
	fmt.Fprintln(c.stderr)
	if err != nil {
		return "", fmt.Errorf("%w: read password: %v", model.ErrInvalidInput, err)
	}
	return string(secret), nil
}

func terminal(r io.Reader) *os.File {
	f, ok := r.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return f
}
