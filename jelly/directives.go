package jelly

import "strconv"

// Directive はJellyの1ディレクティブ (jira:XXX 要素) です
type Directive interface {
	Element() *Element
}

func directive(name string, attrs ...Attr) *Element {
	return &Element{Name: Prefix + ":" + name, Attrs: attrs}
}

// KeyVar はRedmineチケットIDに対応するキー変数名を返します (例: issue_key_42)
func KeyVar(issueID int64) string {
	return "issue_key_" + strconv.FormatInt(issueID, 10)
}

// KeyRef はキー変数の参照式を返します (例: ${issue_key_42})
func KeyRef(issueID int64) string {
	return "${" + KeyVar(issueID) + "}"
}

// CreateUser はユーザー作成ディレクティブです
type CreateUser struct {
	Username  string
	FullName  string
	Email     string
	SendEmail bool
}

func (d CreateUser) Element() *Element {
	return directive("CreateUser",
		Attr{"username", d.Username},
		Attr{"fullname", d.FullName},
		Attr{"email", d.Email},
		Attr{"sendEmail", strconv.FormatBool(d.SendEmail)},
	)
}

// CreateProject はプロジェクト作成ディレクティブです
type CreateProject struct {
	Key         string
	Name        string
	Lead        string
	URL         string
	Description string
}

func (d CreateProject) Element() *Element {
	return directive("CreateProject",
		Attr{"key", d.Key},
		Attr{"name", d.Name},
		Attr{"lead", d.Lead},
		Attr{"url", d.URL},
		Attr{"description", d.Description},
	)
}

// AddVersion はバージョン追加ディレクティブです
type AddVersion struct {
	Name        string
	Description string
	ReleaseDate string
}

func (d AddVersion) Element() *Element {
	return directive("AddVersion",
		Attr{"name", d.Name},
		Attr{"description", d.Description},
		Attr{"releaseDate", d.ReleaseDate},
	)
}

// CreateIssue はイシュー作成ディレクティブです
type CreateIssue struct {
	IssueType        string
	Summary          string
	Priority         string
	Versions         string
	FixVersions      string
	Assignee         string
	Reporter         string
	Description      string
	DueDate          string
	Created          string
	Updated          string
	IssueIDVar       string
	IssueKeyVar      string
	DuplicateSummary string
}

func (d CreateIssue) Element() *Element {
	return directive("CreateIssue",
		Attr{"issueType", d.IssueType},
		Attr{"summary", d.Summary},
		Attr{"priority", d.Priority},
		Attr{"versions", d.Versions},
		Attr{"fixVersions", d.FixVersions},
		Attr{"assignee", d.Assignee},
		Attr{"reporter", d.Reporter},
		Attr{"description", d.Description},
		Attr{"duedate", d.DueDate},
		Attr{"created", d.Created},
		Attr{"updated", d.Updated},
		Attr{"issueIdVar", d.IssueIDVar},
		Attr{"issueKeyVar", d.IssueKeyVar},
		Attr{"duplicateSummary", d.DuplicateSummary},
	)
}

// AddComment はコメント追加ディレクティブです
type AddComment struct {
	IssueKey  string
	Commenter string
	Comment   string
	Created   string
}

func (d AddComment) Element() *Element {
	return directive("AddComment",
		Attr{"issue-key", d.IssueKey},
		Attr{"commenter", d.Commenter},
		Attr{"comment", d.Comment},
		Attr{"created", d.Created},
	)
}

// LinkIssue はイシューリンクディレクティブです
type LinkIssue struct {
	Key      string
	LinkKey  string
	LinkDesc string
}

func (d LinkIssue) Element() *Element {
	return directive("LinkIssue",
		Attr{"key", d.Key},
		Attr{"linkKey", d.LinkKey},
		Attr{"linkDesc", d.LinkDesc},
	)
}
