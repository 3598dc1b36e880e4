package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"redminetojira/models"
)

// fakeSource はテスト用のメモリ上のRedmineデータです
type fakeSource struct {
	projectNames map[int64]string
	statuses     map[int64]string
	trackers     map[int64]string
	priorities   map[int64]string
	versionNames map[int64]string
	userNames    map[int64]string

	users     []models.User
	projects  []models.Project
	versions  map[int64][]models.Version
	issues    map[int64][]models.Issue
	journals  map[int64][]models.Journal
	details   map[int64][]models.JournalDetail
	relations []models.Relation

	failOn string
	calls  []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		projectNames: map[int64]string{1: "Facter"},
		statuses:     map[int64]string{1: "Unreviewed", 5: "Closed"},
		trackers:     map[int64]string{1: "Bug", 2: "Feature"},
		priorities:   map[int64]string{3: "Normal", 4: "High"},
		versionNames: map[int64]string{10: "1.0"},
		userNames:    map[int64]string{1: "Jacob Helwig (jhelwig)", 3: "Alice Smith (alice)"},
		users:        []models.User{{ID: 2, Login: "community", FirstName: "Puppet", LastName: "Community", Mail: "community@example.com"}},
		versions:     map[int64][]models.Version{},
		issues:       map[int64][]models.Issue{},
		journals:     map[int64][]models.Journal{},
		details:      map[int64][]models.JournalDetail{},
	}
}

func (f *fakeSource) call(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return errors.Errorf("%s: connection refused", name)
	}
	return nil
}

func (f *fakeSource) ProjectNames(ctx context.Context, names []string) (map[int64]string, error) {
	return f.projectNames, f.call("ProjectNames")
}

func (f *fakeSource) StatusNames(ctx context.Context) (map[int64]string, error) {
	return f.statuses, f.call("StatusNames")
}

func (f *fakeSource) TrackerNames(ctx context.Context) (map[int64]string, error) {
	return f.trackers, f.call("TrackerNames")
}

func (f *fakeSource) PriorityNames(ctx context.Context) (map[int64]string, error) {
	return f.priorities, f.call("PriorityNames")
}

func (f *fakeSource) VersionNames(ctx context.Context) (map[int64]string, error) {
	return f.versionNames, f.call("VersionNames")
}

func (f *fakeSource) UserNames(ctx context.Context) (map[int64]string, error) {
	return f.userNames, f.call("UserNames")
}

func (f *fakeSource) SeedUsers(ctx context.Context, login string) ([]models.User, error) {
	var result []models.User
	for _, u := range f.users {
		if u.Login == login {
			result = append(result, u)
		}
	}
	return result, f.call("SeedUsers")
}

func (f *fakeSource) Projects(ctx context.Context, names []string) ([]models.Project, error) {
	return f.projects, f.call("Projects")
}

func (f *fakeSource) Versions(ctx context.Context, projectID int64) ([]models.Version, error) {
	return f.versions[projectID], f.call("Versions")
}

func (f *fakeSource) Issues(ctx context.Context, projectID int64) ([]models.Issue, error) {
	return f.issues[projectID], f.call("Issues")
}

func (f *fakeSource) Journals(ctx context.Context, issueID int64) ([]models.Journal, error) {
	return f.journals[issueID], f.call("Journals")
}

func (f *fakeSource) JournalDetails(ctx context.Context, journalID int64) ([]models.JournalDetail, error) {
	return f.details[journalID], f.call("JournalDetails")
}

func (f *fakeSource) Relations(ctx context.Context) ([]models.Relation, error) {
	return f.relations, f.call("Relations")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func detail(id int64, key, oldValue, newValue string) models.JournalDetail {
	return models.JournalDetail{ID: id, PropKey: key, OldValue: nullString(oldValue), Value: nullString(newValue)}
}
