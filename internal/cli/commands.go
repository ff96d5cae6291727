package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/moondance/pkg/notesdk"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitError         = 1
	ExitUsage         = 2
	ExitLoginRequired = 3
)

var errUsage = errors.New("usage")

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, app *Application, args []string) error
}

var commands = map[string]command{}

func register(cmd command) { commands[cmd.name] = cmd }

func init() {
	register(command{"login", "login [-email addr] [-password pw]", "sign in", cmdLogin})
	register(command{"register", "register -email addr -name name [-major m] [-year y] [-invite code]", "create an account and sign in", cmdRegister})
	register(command{"logout", "logout", "forget the stored session", cmdLogout})
	register(command{"whoami", "whoami [-refresh]", "show the signed-in user", cmdWhoami})
	register(command{"password", "password -current pw -new pw", "change your password", cmdPassword})
	register(command{"profile", "profile update [-name n] [-major m] [-year y] [-avatar url]", "edit your profile", cmdProfile})
	register(command{"schools", "schools [-departments]", "list schools", cmdSchools})
	register(command{"courses", "courses search [-school id] -query q", "search courses", cmdCourses})
	register(command{"notes", "notes search|trending|recent|mine|get|upload|delete|download ...", "browse and manage notes", cmdNotes})
	register(command{"vote", "vote [-value 1|-1] [-rating 1-5] [-remove] <note-id>", "vote on a note", cmdVote})
	register(command{"report", "report -reason REASON [-description text] <note-id>", "report a note", cmdReport})
	register(command{"tags", "tags [-search q | -popular [-school id]]", "list tags", cmdTags})
}

// Run executes the command line in args and returns the exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("moondance", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "config file (default "+DefaultConfigPath()+")")
	metricsFile := global.String("metrics-file", "", "write renewal metrics to this file on exit")
	ephemeral := global.Bool("ephemeral", false, "keep the session in memory only")
	jsonOutput := global.Bool("json", false, "print results as JSON")
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}

	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr, global)
		return ExitUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		printUsage(stderr, global)
		return ExitUsage
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	if *ephemeral {
		cfg.Store.Driver = StoreMemory
	}

	app, err := NewApplication(ctx, *cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.logger.Error("failed to close session store", "error", err)
		}
	}()
	app.stdin = stdin
	app.jsonOutput = *jsonOutput

	err = cmd.run(ctx, app, rest[1:])

	if *metricsFile != "" {
		if werr := app.WriteMetrics(*metricsFile); werr != nil {
			app.logger.Error("failed to write metrics", "path", *metricsFile, "error", werr)
		}
	}

	return app.exitCode(cmd, err, stderr)
}

func (app *Application) exitCode(cmd command, err error, stderr io.Writer) int {
	if app.LoginRequired() || errors.Is(err, notesdk.ErrSessionExpired) {
		fmt.Fprintln(stderr, "session expired, please log in again")
		return ExitLoginRequired
	}

	var apiErr *notesdk.APIError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage):
		if err != errUsage {
			fmt.Fprintln(stderr, err)
		}
		fmt.Fprintf(stderr, "usage: moondance %s\n", cmd.usage)
		return ExitUsage
	case errors.Is(err, notesdk.ErrNotAuthenticated):
		fmt.Fprintln(stderr, "not logged in, run: moondance login")
	case errors.As(err, &apiErr):
		fmt.Fprintf(stderr, "error: %s\n", apiErr.Message)
		for _, field := range sortedKeys(apiErr.Fields) {
			fmt.Fprintf(stderr, "  %s: %s\n", field, apiErr.Fields[field])
		}
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return ExitError
}

func printUsage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "usage: moondance [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range sortedKeys(commands) {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	global.PrintDefaults()
}

// requireSession fails unless someone is signed in.
func (app *Application) requireSession() (notesdk.User, error) {
	user, ok := app.client.Session().CurrentUser()
	if !ok {
		return notesdk.User{}, notesdk.ErrNotAuthenticated
	}
	return user, nil
}

// newFlags returns a flag set whose errors surface as errUsage.
func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// parseID reads the single positional numeric id of a command.
func parseID(fs *flag.FlagSet) (int64, error) {
	if fs.NArg() != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, fs.Arg(0))
	}
	return id, nil
}

// subcommand splits "notes search ..." into "search" and its args.
func subcommand(args []string) (string, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, errUsage
	}
	return args[0], args[1:], nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
