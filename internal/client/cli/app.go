package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/admin"
	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/permissions"
	"github.com/dmitrijs2005/eventdesk/internal/client/session"
	"github.com/dmitrijs2005/eventdesk/internal/client/tickets"
	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/dmitrijs2005/eventdesk/internal/logging"
	"golang.org/x/term"
)

// Services are the components the commands drive.
type Services struct {
	Client      *api.Client
	Session     *session.Store
	Permissions *permissions.Resolver
	Tickets     *tickets.StatusCache
	Checkout    *tickets.Checkout
	Admin       *admin.Panel
	Logger      logging.Logger
}

type App struct {
	Services

	reader *bufio.Reader
	out    io.Writer
	loc    *time.Location

	// interactive is true when passwords can be read from a terminal
	// without echo.
	interactive bool
}

// NewApp returns an App reading commands from in and writing to out. When in
// is a terminal, passwords are read without echo.
func NewApp(s Services, in io.Reader, out io.Writer) *App {
	if s.Logger == nil {
		s.Logger = logging.Nop()
	}
	a := &App{
		Services: s,
		reader:   bufio.NewReader(in),
		out:      out,
		loc:      time.Local,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.interactive = true
	}
	return a
}

// Run starts the REPL and blocks until the user exits, input ends or ctx is
// cancelled.
func (a *App) Run(ctx context.Context) {
	a.println("Welcome to eventdesk (type 'help' for commands)")
	runREPL(ctx, a)
}

func (a *App) isLoggedIn() bool {
	return a.Session.IsAuthenticated()
}

func (a *App) userID() int64 {
	id, ok := a.Session.Identity()
	if !ok {
		return 0
	}
	return id.ID
}

func (a *App) getStatus() string {
	id, ok := a.Session.Identity()
	if !ok || id.Username == "" {
		return ""
	}
	if a.Session.IsSiteAdmin() {
		return fmt.Sprintf("(%s admin)", id.Username)
	}
	return fmt.Sprintf("(%s)", id.Username)
}

func (a *App) println(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) askDefault(prompt, def string) (string, error) {
	return GetWithDefault(a.reader, prompt, def, a.out)
}

// password reads a password without echo from a terminal, or as a plain line
// otherwise. The caller wipes the result.
func (a *App) password() ([]byte, error) {
	if a.interactive {
		return GetPassword(a.out)
	}
	line, err := GetSimpleText(a.reader, "Enter password", a.out)
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

func wipe(b []byte) { common.WipeByteArray(b) }
