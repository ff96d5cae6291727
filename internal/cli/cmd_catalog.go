package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aussiebroadwan/moondance/pkg/notesdk"
	"golang.org/x/sync/errgroup"
)

// lookupConcurrency bounds parallel catalog lookups.
const lookupConcurrency = 4

type schoolListing struct {
	notesdk.School
	Departments []notesdk.Department `json:"departments,omitempty"`
}

func cmdSchools(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("schools")
	withDepartments := fs.Bool("departments", false, "include each school's departments")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	schools, err := app.client.ListSchools(ctx)
	if err != nil {
		return err
	}

	listing := make([]schoolListing, len(schools))
	for i, s := range schools {
		listing[i].School = s
	}

	if *withDepartments {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(lookupConcurrency)
		for i := range listing {
			g.Go(func() error {
				deps, err := app.client.ListDepartments(gctx, listing[i].ID)
				if err != nil {
					return fmt.Errorf("school %d: %w", listing[i].ID, err)
				}
				listing[i].Departments = deps
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return app.render(listing, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tLOCATION")
		for _, s := range listing {
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Name, location(s.School))
			for _, d := range s.Departments {
				fmt.Fprintf(w, "\t  %s\t%s (%d courses)\n", d.Code, d.Name, d.CourseCount)
			}
		}
	})
}

func location(s notesdk.School) string {
	switch {
	case s.City != "" && s.State != "":
		return s.City + ", " + s.State
	case s.City != "":
		return s.City
	}
	return s.Country
}

func cmdCourses(ctx context.Context, app *Application, args []string) error {
	sub, args, err := subcommand(args)
	if err != nil || sub != "search" {
		return errUsage
	}

	fs := newFlags("courses search")
	school := fs.Int64("school", 0, "school id (default: your school)")
	query := fs.String("query", "", "course code or title")
	page := pageFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *query == "" {
		return errUsage
	}

	schoolID, err := app.schoolID(*school)
	if err != nil {
		return err
	}

	result, err := app.client.SearchCourses(ctx, schoolID, *query, page.request())
	if err != nil {
		return err
	}
	return app.render(result, func(w io.Writer) { printCourses(w, result) })
}

func cmdTags(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("tags")
	search := fs.String("search", "", "search tags by name")
	popular := fs.Bool("popular", false, "most used tags of a school")
	school := fs.Int64("school", 0, "school id for -popular (default: your school)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		tags []notesdk.Tag
		err  error
	)
	switch {
	case *search != "" && *popular:
		return errUsage
	case *search != "":
		tags, err = app.client.SearchTags(ctx, *search)
	case *popular:
		var schoolID int64
		if schoolID, err = app.schoolID(*school); err != nil {
			return err
		}
		tags, err = app.client.PopularTags(ctx, schoolID)
	default:
		tags, err = app.client.ListTags(ctx)
	}
	if err != nil {
		return err
	}
	return app.render(tags, func(w io.Writer) { printTags(w, tags) })
}

// schoolID returns explicit, or the signed-in user's school.
func (app *Application) schoolID(explicit int64) (int64, error) {
	if explicit > 0 {
		return explicit, nil
	}
	user, err := app.requireSession()
	if err != nil {
		return 0, err
	}
	if user.SchoolID == 0 {
		return 0, fmt.Errorf("%w: your account has no school, pass -school", errUsage)
	}
	return user.SchoolID, nil
}
