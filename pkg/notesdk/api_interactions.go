package notesdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Vote records an up (1) or down (-1) vote on a note, optionally with a
// 1 to 5 star rating.
func (c *Client) Vote(ctx context.Context, noteID int64, value int, rating *int) (Vote, error) {
	if value != 1 && value != -1 {
		return Vote{}, fmt.Errorf("notesdk: vote value must be 1 or -1, got %d", value)
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return Vote{}, fmt.Errorf("notesdk: rating must be between 1 and 5, got %d", *rating)
	}

	var vote Vote
	err := c.Do(ctx, http.MethodPost, "/notes/"+pathID(noteID)+"/vote", nil, voteRequest{Value: value, Rating: rating}, &vote)
	return vote, err
}

func (c *Client) RemoveVote(ctx context.Context, noteID int64) error {
	return c.Do(ctx, http.MethodDelete, "/notes/"+pathID(noteID)+"/vote", nil, nil, nil)
}

// MyVote returns the signed-in user's vote on a note, or nil if there is
// none.
func (c *Client) MyVote(ctx context.Context, noteID int64) (*Vote, error) {
	return getJSON[*Vote](ctx, c, "/notes/"+pathID(noteID)+"/my-vote", nil)
}

// ReportNote flags a note for moderation.
func (c *Client) ReportNote(ctx context.Context, noteID int64, reason ReportReason, description string) (Report, error) {
	var report Report
	err := c.Do(ctx, http.MethodPost, "/notes/"+pathID(noteID)+"/report", nil, reportRequest{
		Reason:      reason,
		Description: description,
	}, &report)
	return report, err
}

// PendingReports lists reports awaiting review. Moderators only.
func (c *Client) PendingReports(ctx context.Context, schoolID int64, page PageRequest) (Page[Report], error) {
	return getJSON[Page[Report]](ctx, c, "/reports/pending", page.apply(url.Values{"schoolId": {pathID(schoolID)}}))
}

// ReviewReport settles a report. Moderators only.
func (c *Client) ReviewReport(ctx context.Context, reportID int64, status ReportStatus, notes string) (Report, error) {
	var report Report
	err := c.Do(ctx, http.MethodPatch, "/reports/"+pathID(reportID)+"/review", nil, reviewRequest{
		Status:         status,
		ModeratorNotes: notes,
	}, &report)
	return report, err
}
