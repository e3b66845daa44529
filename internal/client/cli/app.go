package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/playerhub/internal/client/client"
	"github.com/dmitrijs2005/playerhub/internal/client/config"
	"github.com/dmitrijs2005/playerhub/internal/client/services"
	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/flagx"
)

// getSimpleText and getPin are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPin = GetPin

// openFile is a test seam for os.Open.
var openFile = func(name string) (io.ReadCloser, error) { return os.Open(name) }

type App struct {
	config         *config.Config
	client         client.Client
	authService    services.AuthService
	contentService services.ContentService
	reader         *bufio.Reader
	out            io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	sessions, err := services.NewFileSessionStore(c.SessionFile)
	if err != nil {
		return nil, err
	}

	hc := &http.Client{Timeout: c.RequestTimeout}
	apiClient := client.NewHTTPClient(c.ServerURL, hc)

	return &App{
		config:         c,
		client:         apiClient,
		authService:    services.NewAuthService(apiClient, sessions),
		contentService: services.NewContentService(apiClient, &http.Client{}),
		reader:         bufio.NewReader(os.Stdin),
		out:            os.Stdout,
	}, nil
}

type command struct {
	usage   string
	minArgs int
	session bool
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"enroll":   {usage: "enroll [email]", run: (*App).enroll},
	"login":    {usage: "login [email]", run: (*App).login},
	"logout":   {usage: "logout", run: (*App).logout},
	"whoami":   {usage: "whoami", session: true, run: (*App).whoami},
	"devices":  {usage: "devices", session: true, run: (*App).devices},
	"claim":    {usage: "claim <device-id> [friendly name]", minArgs: 1, session: true, run: (*App).claim},
	"rename":   {usage: "rename <device-id> <friendly name>", minArgs: 2, session: true, run: (*App).rename},
	"release":  {usage: "release <device-id>", minArgs: 1, session: true, run: (*App).release},
	"dispatch": {usage: "dispatch <device-id> <host:port>", minArgs: 1, session: true, run: (*App).dispatch},
	"members":  {usage: "members <device-id>", minArgs: 1, session: true, run: (*App).members},
	"share":    {usage: "share <device-id> <email>", minArgs: 2, session: true, run: (*App).share},
	"unshare":  {usage: "unshare <device-id> <email>", minArgs: 2, session: true, run: (*App).unshare},
	"post":     {usage: "post <device-id> <file> [title]", minArgs: 2, session: true, run: (*App).post},
	"content":  {usage: "content <device-id>", minArgs: 1, session: true, run: (*App).content},
	"command":  {usage: "command <device-id> <play|pause|fullscreen|change-track|status|restart> [name=value...]", minArgs: 2, session: true, run: (*App).command},
}

var commandOrder = []string{
	"enroll", "login", "logout", "whoami",
	"devices", "claim", "rename", "release", "dispatch",
	"members", "share", "unshare",
	"post", "content", "command",
}

// Run executes the subcommand found among args. Flags handled by the
// config package are skipped.
func (a *App) Run(ctx context.Context, args []string) error {
	words := flagx.Positional(args, config.ValueFlags)
	if len(words) == 0 || words[0] == "help" {
		a.usage()
		return nil
	}

	cmd, ok := commands[words[0]]
	if !ok {
		a.usage()
		return fmt.Errorf("unknown command %q", words[0])
	}
	rest := words[1:]
	if len(rest) < cmd.minArgs {
		return fmt.Errorf("usage: playerctl %s", cmd.usage)
	}

	if cmd.session {
		if _, err := a.authService.Restore(); err != nil {
			if errors.Is(err, services.ErrNoSession) {
				return errors.New("not logged in, run 'playerctl login' first")
			}
			return err
		}
	}

	if err := cmd.run(a, ctx, rest); err != nil {
		return describe(err)
	}
	return nil
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: playerctl [-a server-url] [-t timeout] [-s session-file] <command> [args]")
	fmt.Fprintln(a.out, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(a.out, "  %s\n", commands[name].usage)
	}
}

// describe turns API errors into messages a person can act on.
func describe(err error) error {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrUnavailable):
		return fmt.Errorf("server unavailable: %w", err)
	case errors.As(err, &apiErr) && apiErr.Code == "account_locked":
		return fmt.Errorf("account locked, retry in %d minute(s)", (apiErr.RetryAfter+59)/60)
	case errors.Is(err, common.ErrorRateLimited) && errors.As(err, &apiErr):
		return fmt.Errorf("too many commands, retry in %d second(s)", apiErr.RetryAfter)
	case errors.As(err, &apiErr) && (apiErr.Code == "invalid_token" || apiErr.Code == "token_expired"):
		return errors.New("session expired, run 'playerctl login' again")
	}
	return err
}
