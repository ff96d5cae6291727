package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/moondance/pkg/notesdk"
)

type pageOpts struct {
	page *int
	size *int
	sort *string
}

func pageFlags(fs *flag.FlagSet) pageOpts {
	return pageOpts{
		page: fs.Int("page", 1, "page number, starting at 1"),
		size: fs.Int("size", 20, "results per page"),
		sort: fs.String("sort", "", `sort expression, e.g. "createdAt,desc"`),
	}
}

func (p pageOpts) request() notesdk.PageRequest {
	return notesdk.PageRequest{Page: max(*p.page-1, 0), Size: *p.size, Sort: *p.sort}
}

func cmdNotes(ctx context.Context, app *Application, args []string) error {
	sub, args, err := subcommand(args)
	if err != nil {
		return err
	}

	switch sub {
	case "search", "trending", "recent":
		return notesList(ctx, app, sub, args)
	case "mine":
		return notesMine(ctx, app, args)
	case "get":
		return notesGet(ctx, app, args)
	case "upload":
		return notesUpload(ctx, app, args)
	case "delete":
		return notesDelete(ctx, app, args)
	case "download":
		return notesDownload(ctx, app, args)
	}
	return fmt.Errorf("%w: unknown notes command %q", errUsage, sub)
}

func notesList(ctx context.Context, app *Application, sub string, args []string) error {
	fs := newFlags("notes " + sub)
	school := fs.Int64("school", 0, "school id (default: your school)")
	query := fs.String("query", "", "search text")
	noteType := fs.String("type", "", "only notes of this type, e.g. EXAM_PREP")
	page := pageFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	schoolID, err := app.schoolID(*school)
	if err != nil {
		return err
	}

	var result notesdk.Page[notesdk.Note]
	switch {
	case sub == "search" && *query == "":
		return fmt.Errorf("%w: -query is required", errUsage)
	case sub == "search":
		result, err = app.client.SearchNotes(ctx, schoolID, *query, page.request())
	case *noteType != "":
		t := notesdk.NoteType(strings.ToUpper(*noteType))
		if !t.Valid() {
			return fmt.Errorf("%w: unknown note type %q", errUsage, *noteType)
		}
		result, err = app.client.NotesByType(ctx, schoolID, t, page.request())
	case sub == "trending":
		result, err = app.client.TrendingNotes(ctx, schoolID, page.request())
	default:
		result, err = app.client.RecentNotes(ctx, schoolID, page.request())
	}
	if err != nil {
		return err
	}
	return app.render(result, func(w io.Writer) { printNotes(w, result) })
}

func notesMine(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("notes mine")
	page := pageFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if _, err := app.requireSession(); err != nil {
		return err
	}

	result, err := app.client.MyNotes(ctx, page.request())
	if err != nil {
		return err
	}
	return app.render(result, func(w io.Writer) { printNotes(w, result) })
}

func notesGet(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("notes get")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}

	note, err := app.client.GetNote(ctx, id)
	if err != nil {
		return err
	}
	return app.render(note, func(w io.Writer) { printNote(w, note) })
}

func notesUpload(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("notes upload")
	var req notesdk.CreateNoteRequest
	fs.StringVar(&req.Title, "title", "", "note title")
	fs.StringVar(&req.Description, "description", "", "description")
	noteType := fs.String("type", string(notesdk.NoteLectureNotes), "note type")
	fs.Int64Var(&req.CourseSessionID, "course-session", 0, "course session id")
	fs.StringVar(&req.WeekLabel, "week", "", `week label, e.g. "Week 3"`)
	tags := fs.String("tags", "", "comma separated tags")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 || req.Title == "" || req.CourseSessionID == 0 {
		return errUsage
	}
	if _, err := app.requireSession(); err != nil {
		return err
	}

	req.Type = notesdk.NoteType(strings.ToUpper(*noteType))
	for _, tag := range strings.Split(*tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			req.Tags = append(req.Tags, tag)
		}
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	note, err := app.client.UploadNote(ctx, req, filepath.Base(path), f)
	if err != nil {
		return err
	}
	return app.render(note, func(w io.Writer) {
		fmt.Fprintf(w, "uploaded note %d (%s)\n", note.ID, note.ProcessingStatus)
	})
}

func notesDelete(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("notes delete")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}
	if _, err := app.requireSession(); err != nil {
		return err
	}

	if err := app.client.DeleteNote(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "deleted note %d\n", id)
	return nil
}

func notesDownload(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("notes download")
	out := fs.String("out", "", "output file (default: the note's file name)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}

	note, err := app.client.GetNote(ctx, id)
	if err != nil {
		return err
	}
	link, err := app.client.DownloadURL(ctx, id)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filepath.Base(note.OriginalFileName)
		if path == "." || path == "/" || path == "" {
			path = fmt.Sprintf("note-%d", id)
		}
	}

	n, err := download(ctx, link, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "saved %s (%d bytes)\n", path, n)
	return nil
}

// download fetches a pre-signed file URL. It goes to the storage host, not
// the API, so it is sent without credentials.
func download(ctx context.Context, link, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed: %s", resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, nil
}

func cmdVote(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("vote")
	value := fs.Int("value", 1, "1 for up, -1 for down")
	rating := fs.Int("rating", 0, "star rating 1-5")
	remove := fs.Bool("remove", false, "remove your vote")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}
	if _, err := app.requireSession(); err != nil {
		return err
	}

	if *remove {
		if err := app.client.RemoveVote(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "removed vote on note %d\n", id)
		return nil
	}

	var r *int
	if *rating != 0 {
		r = rating
	}
	vote, err := app.client.Vote(ctx, id, *value, r)
	if err != nil {
		return err
	}
	return app.render(vote, func(w io.Writer) {
		fmt.Fprintf(w, "voted %+d on note %d\n", vote.Value, vote.NoteID)
	})
}

func cmdReport(ctx context.Context, app *Application, args []string) error {
	fs := newFlags("report")
	reason := fs.String("reason", "", "SPAM, COPYRIGHT, WRONG_COURSE, INAPPROPRIATE, LOW_QUALITY or OTHER")
	description := fs.String("description", "", "details for the moderators")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}
	if *reason == "" {
		return fmt.Errorf("%w: -reason is required", errUsage)
	}
	if _, err := app.requireSession(); err != nil {
		return err
	}

	report, err := app.client.ReportNote(ctx, id, notesdk.ReportReason(strings.ToUpper(*reason)), *description)
	if err != nil {
		return err
	}
	return app.render(report, func(w io.Writer) {
		fmt.Fprintf(w, "report %d filed (%s)\n", report.ID, report.Status)
	})
}
