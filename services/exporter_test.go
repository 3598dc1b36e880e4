package services

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redminetojira/config"
	"redminetojira/jelly"
	"redminetojira/models"
)

func testConfig() *config.Config {
	return &config.Config{
		DBDriver:      "sqlite3",
		DBDSN:         ":memory:",
		JellyFile:     "redmine_dump.jelly",
		Projects:      []string{"Facter"},
		ProjectLead:   "jhelwig",
		SeedUserLogin: "community",
		SourceSystem:  "Redmine",
		Reassign:      true,
		Placeholder:   "community",
		ExemptLogins:  []string{"jhelwig"},
	}
}

// facterSource は1プロジェクト・1バージョン・1チケット (コメントなし) のデータです
func facterSource() *fakeSource {
	src := newFakeSource()
	src.projects = []models.Project{{ID: 1, Name: "Facter", Homepage: "http://puppetlabs.com/facter"}}
	src.versions[1] = []models.Version{{ID: 10, ProjectID: 1, Name: "1.0", Description: "first release", EffectiveDate: nullTime(time.Date(2010, 5, 3, 0, 0, 0, 0, time.UTC))}}
	src.issues[1] = []models.Issue{{
		ID:          100,
		ProjectID:   1,
		Subject:     "Facter crashes",
		Description: nullString("Stack trace attached"),
		FixVersion:  "1.0",
		Tracker:     "Bug",
		Status:      "Closed",
		Priority:    "High",
		CreatedOn:   nullTime(time.Date(2010, 5, 3, 14, 15, 0, 0, time.UTC)),
		UpdatedOn:   nullTime(time.Date(2010, 5, 4, 8, 5, 0, 0, time.UTC)),
		Assignee:    "alice",
		Reporter:    "jhelwig",
	}}
	return src
}

func build(t *testing.T, cfg *config.Config, src *fakeSource) *ExportResult {
	t.Helper()
	result, err := NewExporter(cfg, src, afero.NewMemMapFs()).Build(context.Background(), testReferenceCache())
	require.NoError(t, err)
	return result
}

func attr(t *testing.T, e *jelly.Element, name string) string {
	t.Helper()
	v, ok := e.Attr(name)
	require.True(t, ok, "attribute %s missing on %s", name, e.Name)
	return v
}

func TestBuildSingleProject(t *testing.T) {
	result := build(t, testConfig(), facterSource())
	root := result.Document

	assert.Equal(t, jelly.RootName, root.Name)
	require.Len(t, root.Children, 2)

	user := root.Children[0]
	assert.Equal(t, "jira:CreateUser", user.Name)
	assert.Equal(t, "community", attr(t, user, "username"))
	assert.Equal(t, "Puppet Community", attr(t, user, "fullname"))
	assert.Equal(t, "false", attr(t, user, "sendEmail"))

	project := root.Children[1]
	assert.Equal(t, "jira:CreateProject", project.Name)
	assert.Equal(t, "FACT", attr(t, project, "key"))
	assert.Equal(t, "Facter", attr(t, project, "name"))
	assert.Equal(t, "jhelwig", attr(t, project, "lead"))
	assert.Equal(t, "http://puppetlabs.com/facter", attr(t, project, "url"))
	require.Len(t, project.Children, 2)

	version := project.Children[0]
	assert.Equal(t, "jira:AddVersion", version.Name)
	assert.Equal(t, "1.0", attr(t, version, "name"))
	assert.Equal(t, "2010-05-03", attr(t, version, "releaseDate"))

	issue := project.Children[1]
	assert.Equal(t, "jira:CreateIssue", issue.Name)
	assert.Equal(t, "Bug", attr(t, issue, "issueType"))
	assert.Equal(t, "Major", attr(t, issue, "priority"))
	assert.Equal(t, "Facter crashes", attr(t, issue, "summary"))
	assert.Equal(t, "1.0", attr(t, issue, "fixVersions"))
	assert.Equal(t, "community", attr(t, issue, "assignee"))
	assert.Equal(t, "jhelwig", attr(t, issue, "reporter"))
	assert.Equal(t, "Imported from Redmine issue #100\n\nStack trace attached", attr(t, issue, "description"))
	assert.Equal(t, "", attr(t, issue, "duedate"))
	assert.Equal(t, "2010-05-03 02:15 PM", attr(t, issue, "created"))
	assert.Equal(t, "2010-05-04 08:05 AM", attr(t, issue, "updated"))
	assert.Equal(t, "issue_id", attr(t, issue, "issueIdVar"))
	assert.Equal(t, "issue_key_100", attr(t, issue, "issueKeyVar"))
	assert.Equal(t, "ignore", attr(t, issue, "duplicateSummary"))
	assert.Empty(t, issue.Children)

	assert.Equal(t, 1, result.Stats.Issues)
	assert.Equal(t, 0, result.Stats.Comments)
	assert.Equal(t, map[string]int{"Closed": 1}, result.Stats.ByStatus)
	assert.Equal(t, map[string]int{"Fixed": 1}, result.Stats.ByResolution)
	assert.Equal(t, []ManifestEntry{{IssueID: 100, ProjectKey: "FACT", KeyVar: "issue_key_100", Summary: "Facter crashes"}}, result.Issues)
}

func TestBuildIssueDescriptionWithoutOriginal(t *testing.T) {
	src := facterSource()
	src.issues[1][0].Description = nullString("")
	src.issues[1] = append(src.issues[1], models.Issue{ID: 101, ProjectID: 1, Tracker: "Support", Priority: "Whenever", Status: "Mystery"})

	result := build(t, testConfig(), src)
	issues := result.Document.Children[1].Children[1:]
	require.Len(t, issues, 2)

	assert.Equal(t, "Imported from Redmine issue #100\n\n", attr(t, issues[0], "description"))
	assert.Equal(t, "Imported from Redmine issue #101", attr(t, issues[1], "description"))
	assert.Equal(t, "", attr(t, issues[1], "issueType"))
	assert.Equal(t, "", attr(t, issues[1], "priority"))
	assert.Equal(t, 1, result.Stats.ByStatus[ValueUnknown])
	assert.Equal(t, 1, result.Stats.ByResolution[unresolved])
}

func TestBuildComments(t *testing.T) {
	src := facterSource()
	src.journals[100] = []models.Journal{
		{ID: 1, IssueID: 100, User: "jhelwig", CreatedOn: nullTime(time.Date(2010, 5, 3, 15, 0, 0, 0, time.UTC))},
		{ID: 2, IssueID: 100, User: "alice", Notes: nullString("Confirmed on 1.5.8")},
		{ID: 3, IssueID: 100, User: "bob", Notes: nullString("Fixed in commit abc")},
		{ID: 4, IssueID: 100},
	}
	src.details[1] = []models.JournalDetail{detail(11, "status_id", "1", "5"), detail(12, "done_ratio", "0", "100")}
	src.details[3] = []models.JournalDetail{detail(31, "assigned_to_id", "", "1")}

	result := build(t, testConfig(), src)
	comments := result.Document.Children[1].Children[1].Children
	require.Len(t, comments, 4)

	for _, c := range comments {
		assert.Equal(t, "jira:AddComment", c.Name)
		assert.Equal(t, "${issue_key_100}", attr(t, c, "issue-key"))
	}

	assert.Equal(t, "jhelwig", attr(t, comments[0], "commenter"))
	assert.Equal(t, "Status: Updated from 'Unreviewed' to 'Closed'\n\n", attr(t, comments[0], "comment"))
	assert.Equal(t, "2010-05-03 03:00 PM", attr(t, comments[0], "created"))

	assert.Equal(t, "community", attr(t, comments[1], "commenter"))
	assert.Equal(t, "Confirmed on 1.5.8", attr(t, comments[1], "comment"))

	assert.Equal(t, "Assigned to: Updated from 'NONE' to 'Jacob Helwig (jhelwig)'\n\nFixed in commit abc", attr(t, comments[2], "comment"))

	assert.Equal(t, "", attr(t, comments[3], "comment"))
	assert.Equal(t, 4, result.Stats.Comments)
}

func TestBuildRelationsAfterProjects(t *testing.T) {
	src := facterSource()
	src.relations = []models.Relation{
		{FromID: 100, ToID: 101, Type: "blocks"},
		{FromID: 100, ToID: 101, Type: "relates"},
		{FromID: 101, ToID: 100, Type: "copied_to"},
	}

	result := build(t, testConfig(), src)
	children := result.Document.Children
	require.Len(t, children, 5)

	assert.Equal(t, "jira:CreateProject", children[1].Name)
	links := children[2:]
	for _, l := range links {
		assert.Equal(t, "jira:LinkIssue", l.Name)
	}
	assert.Equal(t, "${issue_key_100}", attr(t, links[0], "key"))
	assert.Equal(t, "${issue_key_101}", attr(t, links[0], "linkKey"))
	assert.Equal(t, "blocks", attr(t, links[0], "linkDesc"))
	assert.Equal(t, "relates to", attr(t, links[1], "linkDesc"))
	assert.Equal(t, "", attr(t, links[2], "linkDesc"))
	assert.Equal(t, 3, result.Stats.Links)

	// 関連はプロジェクトの処理がすべて終わってから取得する
	assert.Equal(t, "Relations", src.calls[len(src.calls)-1])
}

func TestBuildLinkExportedOnly(t *testing.T) {
	src := facterSource()
	src.relations = []models.Relation{
		{FromID: 100, ToID: 100, Type: "relates"},
		{FromID: 100, ToID: 555, Type: "blocks"},
	}
	cfg := testConfig()
	cfg.LinkExportedOnly = true

	result := build(t, cfg, src)
	assert.Equal(t, 1, result.Stats.Links)
	assert.Equal(t, 1, result.Stats.SkippedLinks)
	assert.Len(t, result.Document.Children, 3)
}

func TestBuildReassignDisabled(t *testing.T) {
	src := facterSource()
	src.journals[100] = []models.Journal{{ID: 1, IssueID: 100, User: "bob", Notes: nullString("hi")}}
	cfg := testConfig()
	cfg.Reassign = false

	result := build(t, cfg, src)
	issue := result.Document.Children[1].Children[1]
	assert.Equal(t, "alice", attr(t, issue, "assignee"))
	assert.Equal(t, "bob", attr(t, issue.Children[0], "commenter"))
}

func TestBuildMissingProjectKeyAndSeedUser(t *testing.T) {
	src := facterSource()
	src.users = nil
	src.projects = append(src.projects, models.Project{ID: 2, Name: "Hiera"})

	result := build(t, testConfig(), src)
	require.Len(t, result.Document.Children, 2)
	assert.Equal(t, "", attr(t, result.Document.Children[1], "key"))
	assert.Equal(t, 0, result.Stats.Users)
	assert.Equal(t, 2, result.Stats.Projects)
}

func TestBuildUnknownPropertyAborts(t *testing.T) {
	src := facterSource()
	src.journals[100] = []models.Journal{{ID: 7, IssueID: 100}}
	src.details[7] = []models.JournalDetail{detail(70, "lock_version", "1", "2")}

	_, err := NewExporter(testConfig(), src, afero.NewMemMapFs()).Build(context.Background(), testReferenceCache())
	require.Error(t, err)

	var unknown *UnknownPropertyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, int64(70), unknown.DetailID)
	assert.NotContains(t, src.calls, "Relations")
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExporter(testConfig(), facterSource(), afero.NewMemMapFs()).Build(ctx, testReferenceCache())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunExportWritesFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "redmine_dump.jelly", []byte("old"), 0o644))

	cfg := testConfig()
	cfg.ManifestCSV = "out/issues.csv"
	exporter := NewExporter(cfg, facterSource(), fs)
	exporter.SetProgressOutput(io.Discard)

	require.NoError(t, exporter.RunExport(context.Background()))

	data, err := afero.ReadFile(fs, "redmine_dump.jelly")
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, `<JiraJelly xmlns:jira="jelly:com.atlassian.jira.jelly.JiraTagLib">`))
	userAt := strings.Index(content, "<jira:CreateUser")
	projectAt := strings.Index(content, `<jira:CreateProject key="FACT"`)
	versionAt := strings.Index(content, `<jira:AddVersion name="1.0"`)
	issueAt := strings.Index(content, `<jira:CreateIssue issueType="Bug" summary="Facter crashes" priority="Major"`)
	assert.True(t, userAt >= 0 && userAt < projectAt && projectAt < versionAt && versionAt < issueAt)
	assert.Contains(t, content, `description="Imported from Redmine issue #100&#xA;&#xA;Stack trace attached"`)

	mapping, err := LoadIssueMapping(fs, "out/issues.csv")
	require.NoError(t, err)
	assert.Equal(t, models.IssueMapping{"100": "issue_key_100"}, mapping)
}

func TestRunExportWritesNothingOnFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := facterSource()
	src.failOn = "Relations"

	err := NewExporter(testConfig(), src, fs).RunExport(context.Background())
	require.Error(t, err)

	exists, err := afero.Exists(fs, "redmine_dump.jelly")
	require.NoError(t, err)
	assert.False(t, exists)
}
