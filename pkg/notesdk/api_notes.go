package notesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
)

// UploadNote creates a note from file. The request is a multipart form with
// the note metadata as a JSON "data" part and the document as the "file"
// part. The form is built in memory so the interceptor can replay it.
func (c *Client) UploadNote(ctx context.Context, req CreateNoteRequest, filename string, file io.Reader) (Note, error) {
	if req.Title == "" {
		return Note{}, errors.New("notesdk: note title is required")
	}
	if !req.Type.Valid() {
		return Note{}, fmt.Errorf("notesdk: unknown note type %q", req.Type)
	}

	body, contentType, err := noteForm(req, filename, file)
	if err != nil {
		return Note{}, err
	}

	resp, err := c.api.doRequest(ctx, http.MethodPost, "/notes", nil, body, map[string]string{
		"Content-Type": contentType,
	})
	if err != nil {
		return Note{}, err
	}

	var note Note
	if err := decodeEnvelope(resp, &note); err != nil {
		return Note{}, err
	}
	return note, nil
}

func noteForm(req CreateNoteRequest, filename string, file io.Reader) (*bytes.Buffer, string, error) {
	meta, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode note metadata: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="data"`)
	h.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(meta); err != nil {
		return nil, "", err
	}

	fileType := mime.TypeByExtension(filepath.Ext(filename))
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	h = make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", fileType)
	part, err = mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to read note file: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func (c *Client) GetNote(ctx context.Context, noteID int64) (Note, error) {
	return getJSON[Note](ctx, c, "/notes/"+pathID(noteID), nil)
}

// NotesByCourseSession lists the notes of one course offering.
func (c *Client) NotesByCourseSession(ctx context.Context, courseSessionID int64, page PageRequest) (Page[Note], error) {
	return getJSON[Page[Note]](ctx, c, "/notes/course-session/"+pathID(courseSessionID), page.apply(nil))
}

// SearchNotes runs a full-text search over the notes of a school.
func (c *Client) SearchNotes(ctx context.Context, schoolID int64, query string, page PageRequest) (Page[Note], error) {
	q := page.apply(url.Values{"schoolId": {pathID(schoolID)}, "query": {query}})
	return getJSON[Page[Note]](ctx, c, "/notes/search", q)
}

// TrendingNotes lists the school's notes ranked by recent activity.
func (c *Client) TrendingNotes(ctx context.Context, schoolID int64, page PageRequest) (Page[Note], error) {
	return getJSON[Page[Note]](ctx, c, "/notes/trending", page.apply(url.Values{"schoolId": {pathID(schoolID)}}))
}

func (c *Client) RecentNotes(ctx context.Context, schoolID int64, page PageRequest) (Page[Note], error) {
	return getJSON[Page[Note]](ctx, c, "/notes/recent", page.apply(url.Values{"schoolId": {pathID(schoolID)}}))
}

func (c *Client) NotesByType(ctx context.Context, schoolID int64, noteType NoteType, page PageRequest) (Page[Note], error) {
	q := page.apply(url.Values{"schoolId": {pathID(schoolID)}, "type": {string(noteType)}})
	return getJSON[Page[Note]](ctx, c, "/notes/by-type", q)
}

// MyNotes lists the notes uploaded by the signed-in user.
func (c *Client) MyNotes(ctx context.Context, page PageRequest) (Page[Note], error) {
	return getJSON[Page[Note]](ctx, c, "/notes/my-notes", page.apply(nil))
}

// UpdateNote edits a note the signed-in user uploaded.
func (c *Client) UpdateNote(ctx context.Context, noteID int64, req UpdateNoteRequest) (Note, error) {
	var note Note
	if err := c.Do(ctx, http.MethodPatch, "/notes/"+pathID(noteID), nil, req, &note); err != nil {
		return Note{}, err
	}
	return note, nil
}

func (c *Client) DeleteNote(ctx context.Context, noteID int64) error {
	return c.Do(ctx, http.MethodDelete, "/notes/"+pathID(noteID), nil, nil, nil)
}

// DownloadURL returns a short-lived URL for the note's file.
func (c *Client) DownloadURL(ctx context.Context, noteID int64) (string, error) {
	return getJSON[string](ctx, c, "/notes/"+pathID(noteID)+"/download", nil)
}

// ViewURL returns a short-lived URL for viewing the note inline.
func (c *Client) ViewURL(ctx context.Context, noteID int64) (string, error) {
	return getJSON[string](ctx, c, "/notes/"+pathID(noteID)+"/view", nil)
}
