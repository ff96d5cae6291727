package notesdk

import (
	"context"
	"net/url"
	"strconv"
)

func pathID(v int64) string { return strconv.FormatInt(v, 10) }

// ListSchools returns every school.
func (c *Client) ListSchools(ctx context.Context) ([]School, error) {
	return getJSON[[]School](ctx, c, "/schools", nil)
}

func (c *Client) GetSchool(ctx context.Context, schoolID int64) (School, error) {
	return getJSON[School](ctx, c, "/schools/"+pathID(schoolID), nil)
}

// ListDepartments returns the departments of a school.
func (c *Client) ListDepartments(ctx context.Context, schoolID int64) ([]Department, error) {
	return getJSON[[]Department](ctx, c, "/departments", url.Values{"schoolId": {pathID(schoolID)}})
}

func (c *Client) GetDepartment(ctx context.Context, departmentID int64) (Department, error) {
	return getJSON[Department](ctx, c, "/departments/"+pathID(departmentID), nil)
}

// CoursesByDepartment returns the courses a department offers.
func (c *Client) CoursesByDepartment(ctx context.Context, departmentID int64) ([]Course, error) {
	return getJSON[[]Course](ctx, c, "/courses", url.Values{"departmentId": {pathID(departmentID)}})
}

// CoursesBySchool returns every course of a school.
func (c *Client) CoursesBySchool(ctx context.Context, schoolID int64) ([]Course, error) {
	return getJSON[[]Course](ctx, c, "/courses", url.Values{"schoolId": {pathID(schoolID)}})
}

// SearchCourses matches query against course codes and titles.
func (c *Client) SearchCourses(ctx context.Context, schoolID int64, query string, page PageRequest) (Page[Course], error) {
	q := page.apply(url.Values{"schoolId": {pathID(schoolID)}, "query": {query}})
	return getJSON[Page[Course]](ctx, c, "/courses/search", q)
}

func (c *Client) GetCourse(ctx context.Context, courseID int64) (Course, error) {
	return getJSON[Course](ctx, c, "/courses/"+pathID(courseID), nil)
}

// ListSessions returns the academic terms of a school.
func (c *Client) ListSessions(ctx context.Context, schoolID int64) ([]AcademicSession, error) {
	return getJSON[[]AcademicSession](ctx, c, "/sessions", url.Values{"schoolId": {pathID(schoolID)}})
}

func (c *Client) ListInstructors(ctx context.Context, schoolID int64) ([]Instructor, error) {
	return getJSON[[]Instructor](ctx, c, "/instructors", url.Values{"schoolId": {pathID(schoolID)}})
}

func (c *Client) SearchInstructors(ctx context.Context, schoolID int64, query string) ([]Instructor, error) {
	return getJSON[[]Instructor](ctx, c, "/instructors/search", url.Values{
		"schoolId": {pathID(schoolID)},
		"query":    {query},
	})
}

// ListCourseSessions returns the offerings of a course across terms.
func (c *Client) ListCourseSessions(ctx context.Context, courseID int64) ([]CourseSession, error) {
	return getJSON[[]CourseSession](ctx, c, "/course-sessions", url.Values{"courseId": {pathID(courseID)}})
}

func (c *Client) GetCourseSession(ctx context.Context, courseSessionID int64) (CourseSession, error) {
	return getJSON[CourseSession](ctx, c, "/course-sessions/"+pathID(courseSessionID), nil)
}
