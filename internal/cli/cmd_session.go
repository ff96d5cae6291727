package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/notesdk"
)

func cmdLogin(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin if omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	in := bufio.NewReader(app.stdin)
	if *email == "" {
		v, err := prompt(app.stdout, in, "email: ")
		if err != nil {
			return err
		}
		*email = v
	}
	if *password == "" {
		v, err := prompt(app.stdout, in, "password: ")
		if err != nil {
			return err
		}
		*password = v
	}

	user, err := app.client.Session().Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func cmdRegister(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("register")
	var req notesdk.RegisterRequest
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Password, "password", "", "password (read from stdin if omitted)")
	fs.StringVar(&req.Name, "name", "", "display name")
	fs.StringVar(&req.Major, "major", "", "major")
	fs.IntVar(&req.GraduationYear, "year", 0, "graduation year")
	fs.StringVar(&req.InviteCode, "invite", "", "invite code")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if req.Email == "" || req.Name == "" {
		return errUsage
	}

	if req.Password == "" {
		v, err := prompt(app.stdout, bufio.NewReader(app.stdin), "password: ")
		if err != nil {
			return err
		}
		req.Password = v
	}

	user, err := app.client.Session().Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "welcome, %s\n", user.Name)
	if !user.EmailVerified {
		fmt.Fprintln(app.stdout, "check your inbox to verify your email address")
	}
	return nil
}

func cmdLogout(ctx context.Context, app *Application, args []string) error {
	if err := app.client.Session().Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.stdout, "signed out")
	return nil
}

func cmdWhoami(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("whoami")
	refresh := fs.Bool("refresh", false, "fetch the profile from the server")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	user, err := app.requireSession()
	if err != nil {
		return err
	}
	if *refresh {
		if user, err = app.client.Me(ctx); err != nil {
			return err
		}
		if err := app.client.Session().UpdateIdentity(ctx, user); err != nil {
			return err
		}
	}

	return app.render(user, func(w io.Writer) {
		printUser(w, user)
		if exp, ok := app.client.Session().AccessTokenExpiry(); ok {
			fmt.Fprintf(w, "token expires:\t%s\n", exp.Local().Format(time.DateTime))
		}
	})
}

func cmdPassword(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("password")
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *current == "" || *next == "" {
		return errUsage
	}
	if _, err := app.requireSession(); err != nil {
		return err
	}

	if err := app.client.ChangePassword(ctx, *current, *next); err != nil {
		if errors.Is(err, notesdk.ErrReplayRejected) {
			return errors.New("current password is incorrect")
		}
		return err
	}
	fmt.Fprintln(app.stdout, "password changed")
	return nil
}

func cmdProfile(ctx context.Context, app *Application, args []string) error {
	sub, args, err := subcommand(args)
	if err != nil || sub != "update" {
		return errUsage
	}

	fs := newFlags("profile update")
	name := fs.String("name", "", "display name")
	major := fs.String("major", "", "major")
	year := fs.Int("year", 0, "graduation year")
	avatar := fs.String("avatar", "", "avatar URL")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	// Only flags given on the command line are sent.
	var req notesdk.UpdateProfileRequest
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			req.Name = name
		case "major":
			req.Major = major
		case "year":
			req.GraduationYear = year
		case "avatar":
			req.AvatarURL = avatar
		}
	})
	if req == (notesdk.UpdateProfileRequest{}) {
		return fmt.Errorf("%w: nothing to update", errUsage)
	}
	if _, err := app.requireSession(); err != nil {
		return err
	}

	user, err := app.client.UpdateProfile(ctx, req)
	if err != nil {
		return err
	}
	return app.render(user, func(w io.Writer) { printUser(w, user) })
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
