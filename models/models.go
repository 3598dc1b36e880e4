package models

import (
	"database/sql"
	"fmt"
)

// Project はRedmineのプロジェクトを表します
type Project struct {
	ID          int64
	Name        string
	Description string
	Homepage    string
}

// Version はプロジェクトに属するバージョンを表します
type Version struct {
	ID            int64
	ProjectID     int64
	Name          string
	Description   string
	EffectiveDate sql.NullTime // リリース日 (未設定の場合あり)
}

// Issue はRedmineのチケットを表します
type Issue struct {
	ID              int64
	ProjectID       int64
	Subject         string
	Description     sql.NullString
	AffectedVersion string // カスタムフィールド「Affected ... version」の値
	FixVersion      string
	Tracker         string
	Status          string
	Priority        string
	DueDate         sql.NullTime
	CreatedOn       sql.NullTime
	UpdatedOn       sql.NullTime
	Votes           int64
	Assignee        string // ログイン名
	Reporter        string // ログイン名
}

// Journal はチケットの履歴エントリ (コメント) を表します
type Journal struct {
	ID        int64
	IssueID   int64
	User      string // ログイン名
	CreatedOn sql.NullTime
	Notes     sql.NullString
}

// JournalDetail は履歴エントリに紐づく1つのフィールド変更を表します
type JournalDetail struct {
	ID        int64
	JournalID int64
	PropKey   string
	OldValue  sql.NullString
	Value     sql.NullString
}

// Relation はチケット間の関連を表します
type Relation struct {
	FromID int64
	ToID   int64
	Type   string
}

// User はRedmineのユーザーを表します
type User struct {
	ID        int64
	Login     string
	FirstName string
	LastName  string
	Mail      string
}

// FullName は "名 姓" 形式の氏名を返します
func (u User) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

// DisplayName は参照キャッシュで使う "名 姓 (login)" 形式の表示名を返します
func (u User) DisplayName() string {
	return fmt.Sprintf("%s %s (%s)", u.FirstName, u.LastName, u.Login)
}

// Category は参照キャッシュの種類です
type Category int

const (
	CategoryProject Category = iota
	CategoryStatus
	CategoryTracker
	CategoryPriority
	CategoryVersion
	CategoryUser
)

// Categories は全カテゴリを読み込み順に並べたものです
var Categories = []Category{
	CategoryProject,
	CategoryStatus,
	CategoryTracker,
	CategoryPriority,
	CategoryVersion,
	CategoryUser,
}

func (c Category) String() string {
	switch c {
	case CategoryProject:
		return "projects"
	case CategoryStatus:
		return "statuses"
	case CategoryTracker:
		return "trackers"
	case CategoryPriority:
		return "priorities"
	case CategoryVersion:
		return "versions"
	case CategoryUser:
		return "users"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// IssueMapping はRedmineチケットIDとJellyのキー変数名のマッピングを表します
type IssueMapping map[string]string
