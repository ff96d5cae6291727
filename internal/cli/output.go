package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/moondance/pkg/notesdk"
)

// render prints v as JSON when -json is set, otherwise through text.
func (app *Application) render(v any, text func(w io.Writer)) error {
	if app.jsonOutput {
		enc := json.NewEncoder(app.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func printUser(w io.Writer, u notesdk.User) {
	fmt.Fprintf(w, "id:\t%d\n", u.ID)
	fmt.Fprintf(w, "name:\t%s\n", u.Name)
	fmt.Fprintf(w, "email:\t%s\n", u.Email)
	fmt.Fprintf(w, "role:\t%s\n", u.Role)
	if u.SchoolName != "" {
		fmt.Fprintf(w, "school:\t%s (%d)\n", u.SchoolName, u.SchoolID)
	}
	if u.Major != "" {
		fmt.Fprintf(w, "major:\t%s\n", u.Major)
	}
	if u.GraduationYear != 0 {
		fmt.Fprintf(w, "graduating:\t%d\n", u.GraduationYear)
	}
	fmt.Fprintf(w, "reputation:\t%d\n", u.ReputationPoints)
}

func printNotes(w io.Writer, page notesdk.Page[notesdk.Note]) {
	fmt.Fprintln(w, "ID\tTITLE\tTYPE\tCOURSE\tRATING\tDOWNLOADS")
	for _, n := range page.Content {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.1f\t%d\n", n.ID, n.Title, n.Type, n.CourseCode, n.AverageRating, n.DownloadCount)
	}
	printPageFooter(w, page.Page, page.TotalPages, page.TotalElements)
}

func printNote(w io.Writer, n notesdk.Note) {
	fmt.Fprintf(w, "id:\t%d\n", n.ID)
	fmt.Fprintf(w, "title:\t%s\n", n.Title)
	fmt.Fprintf(w, "type:\t%s\n", n.Type)
	if n.CourseCode != "" {
		fmt.Fprintf(w, "course:\t%s %s\n", n.CourseCode, n.CourseTitle)
	}
	if n.SessionName != "" {
		fmt.Fprintf(w, "session:\t%s\n", n.SessionName)
	}
	if n.Description != "" {
		fmt.Fprintf(w, "description:\t%s\n", n.Description)
	}
	if len(n.Tags) > 0 {
		fmt.Fprintf(w, "tags:\t%s\n", strings.Join(n.Tags, ", "))
	}
	fmt.Fprintf(w, "file:\t%s (%d bytes)\n", n.OriginalFileName, n.FileSize)
	fmt.Fprintf(w, "status:\t%s\n", n.ProcessingStatus)
	fmt.Fprintf(w, "rating:\t%.1f (%d votes)\n", n.AverageRating, n.VoteCount)
	fmt.Fprintf(w, "uploader:\t%s\n", n.UploaderName)
}

func printCourses(w io.Writer, page notesdk.Page[notesdk.Course]) {
	fmt.Fprintln(w, "ID\tCODE\tTITLE\tDEPARTMENT")
	for _, c := range page.Content {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Code, c.Title, c.DepartmentName)
	}
	printPageFooter(w, page.Page, page.TotalPages, page.TotalElements)
}

func printTags(w io.Writer, tags []notesdk.Tag) {
	for _, t := range tags {
		fmt.Fprintf(w, "%d\t%s\n", t.ID, t.Name)
	}
}

func printPageFooter(w io.Writer, page, totalPages int, total int64) {
	if totalPages > 1 {
		fmt.Fprintf(w, "\npage %d of %d (%d total)\n", page+1, totalPages, total)
	}
}
