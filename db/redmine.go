// Package db はRedmineデータベースへの読み取り専用アクセスを提供します
package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"redminetojira/models"
	"redminetojira/utils"
)

// Options はデータベース接続とクエリの設定です
type Options struct {
	Driver string
	DSN    string
	// 「影響バージョン」として扱うカスタムフィールド名
	AffectedVersionFields []string
}

// RedmineDB はRedmineスキーマに対するクエリを実行します
type RedmineDB struct {
	db      *sql.DB
	driver  string
	options Options
}

// Open はデータベースに接続し、疎通を確認します
func Open(ctx context.Context, opts Options) (*RedmineDB, error) {
	dsn, err := normalizeDSN(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "データベース接続エラー (%s)", opts.Driver)
	}
	conn.SetConnMaxLifetime(30 * time.Minute)

	r := NewWithDB(conn, opts)
	if err := r.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

// normalizeDSN はMySQLの接続文字列で parseTime を有効にします
// DATE / DATETIME 列を time.Time として読み取るために必要です
func normalizeDSN(driver, dsn string) (string, error) {
	if driver != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "MySQL接続文字列が不正です")
	}
	if !cfg.ParseTime {
		utils.LogDebug("MySQL接続文字列に parseTime=true を追加します")
		cfg.ParseTime = true
	}
	return cfg.FormatDSN(), nil
}

// NewWithDB は既存の *sql.DB を使ってRedmineDBを作成します
func NewWithDB(conn *sql.DB, opts Options) *RedmineDB {
	return &RedmineDB{db: conn, driver: opts.Driver, options: opts}
}

// Ping はデータベースの疎通を確認します
func (r *RedmineDB) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "データベース疎通確認エラー")
	}
	return nil
}

// Close は接続を閉じます
func (r *RedmineDB) Close() error {
	return r.db.Close()
}

// rebind は "?" プレースホルダをドライバの形式に変換します
func (r *RedmineDB) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// placeholders は IN 句用に "?, ?, ?" を生成します
func placeholders(n int) string {
	if n == 0 {
		return "NULL"
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// query はクエリを実行し、全行を scan で読み取ってから結果セットを閉じます
func (r *RedmineDB) query(ctx context.Context, name, query string, scan func(*sql.Rows) error, args ...interface{}) error {
	utils.LogDebug("クエリ実行: %s", name)
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return errors.Wrapf(err, "%s の取得に失敗しました", name)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return errors.Wrapf(err, "%s の読み取りに失敗しました", name)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "%s の読み取りに失敗しました", name)
	}
	return nil
}

// idNames は "SELECT id, name ..." 形式のクエリを id → 名前のマップにします
func (r *RedmineDB) idNames(ctx context.Context, name, query string, args ...interface{}) (map[int64]string, error) {
	result := make(map[int64]string)
	err := r.query(ctx, name, query, func(rows *sql.Rows) error {
		var id int64
		var value sql.NullString
		if err := rows.Scan(&id, &value); err != nil {
			return err
		}
		result[id] = value.String
		return nil
	}, args...)
	return result, err
}

// ProjectNames はエクスポート対象プロジェクトの id → 名前 を返します
func (r *RedmineDB) ProjectNames(ctx context.Context, names []string) (map[int64]string, error) {
	q := "SELECT id, name FROM projects WHERE projects.name IN (" + placeholders(len(names)) + ")"
	return r.idNames(ctx, "プロジェクト名", q, stringArgs(names)...)
}

// StatusNames はステータスの id → 名前 を返します
func (r *RedmineDB) StatusNames(ctx context.Context) (map[int64]string, error) {
	return r.idNames(ctx, "ステータス", "SELECT id, name FROM issue_statuses")
}

// TrackerNames はトラッカーの id → 名前 を返します
func (r *RedmineDB) TrackerNames(ctx context.Context) (map[int64]string, error) {
	return r.idNames(ctx, "トラッカー", "SELECT id, name FROM trackers")
}

// PriorityNames は優先度の id → 名前 を返します
func (r *RedmineDB) PriorityNames(ctx context.Context) (map[int64]string, error) {
	return r.idNames(ctx, "優先度", "SELECT id, name FROM enumerations WHERE type = 'IssuePriority'")
}

// VersionNames はバージョンの id → 名前 を返します
func (r *RedmineDB) VersionNames(ctx context.Context) (map[int64]string, error) {
	return r.idNames(ctx, "バージョン", "SELECT id, name FROM versions")
}

// UserNames はユーザーの id → "名 姓 (login)" を返します
func (r *RedmineDB) UserNames(ctx context.Context) (map[int64]string, error) {
	users, err := r.users(ctx, "ユーザー", "SELECT id, login, firstname, lastname, mail FROM users")
	if err != nil {
		return nil, err
	}
	result := make(map[int64]string, len(users))
	for _, u := range users {
		result[u.ID] = u.DisplayName()
	}
	return result, nil
}

// SeedUsers は指定ログイン名のユーザーを返します
func (r *RedmineDB) SeedUsers(ctx context.Context, login string) ([]models.User, error) {
	return r.users(ctx, "作成ユーザー",
		"SELECT id, login, firstname, lastname, mail FROM users WHERE login = ? ORDER BY id", login)
}

func (r *RedmineDB) users(ctx context.Context, name, query string, args ...interface{}) ([]models.User, error) {
	var users []models.User
	err := r.query(ctx, name, query, func(rows *sql.Rows) error {
		var u models.User
		var login, first, last, mail sql.NullString
		if err := rows.Scan(&u.ID, &login, &first, &last, &mail); err != nil {
			return err
		}
		u.Login, u.FirstName, u.LastName, u.Mail = login.String, first.String, last.String, mail.String
		users = append(users, u)
		return nil
	}, args...)
	return users, err
}

// Projects はエクスポート対象プロジェクトを返します
func (r *RedmineDB) Projects(ctx context.Context, names []string) ([]models.Project, error) {
	q := "SELECT id, name, description, homepage FROM projects WHERE projects.name IN (" + placeholders(len(names)) + ") ORDER BY id"
	var projects []models.Project
	err := r.query(ctx, "プロジェクト", q, func(rows *sql.Rows) error {
		var p models.Project
		var desc, homepage sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &desc, &homepage); err != nil {
			return err
		}
		p.Description, p.Homepage = desc.String, homepage.String
		projects = append(projects, p)
		return nil
	}, stringArgs(names)...)
	return projects, err
}

// Versions はプロジェクトのバージョンを返します
func (r *RedmineDB) Versions(ctx context.Context, projectID int64) ([]models.Version, error) {
	var versions []models.Version
	err := r.query(ctx, "バージョン一覧",
		"SELECT id, project_id, name, description, effective_date FROM versions WHERE project_id = ? ORDER BY id",
		func(rows *sql.Rows) error {
			var v models.Version
			var desc sql.NullString
			if err := rows.Scan(&v.ID, &v.ProjectID, &v.Name, &desc, &v.EffectiveDate); err != nil {
				return err
			}
			v.Description = desc.String
			versions = append(versions, v)
			return nil
		}, projectID)
	return versions, err
}

// Issues はプロジェクトのチケットをID順に返します
func (r *RedmineDB) Issues(ctx context.Context, projectID int64) ([]models.Issue, error) {
	fields := r.options.AffectedVersionFields
	q := `
		SELECT
			issues.id,
			issues.project_id,
			issues.subject,
			issues.description,
			affected_versions.value,
			fixed_version.name,
			trackers.name,
			issue_statuses.name,
			priority_enumerations.name,
			issues.due_date,
			issues.created_on,
			issues.updated_on,
			issues.votes_value,
			assigned_users.login,
			author_users.login
		FROM
			issues
			INNER JOIN projects
				ON (issues.project_id = projects.id)
			LEFT OUTER JOIN versions fixed_version
				ON (fixed_version.id = issues.fixed_version_id)
			LEFT OUTER JOIN
				(
					SELECT
						affected_custom_values.customized_id,
						affected_custom_values.custom_field_id,
						affected_custom_values.value
					FROM
						custom_values affected_custom_values
						INNER JOIN custom_fields affected_custom_fields
							ON (affected_custom_fields.id = affected_custom_values.custom_field_id
								AND affected_custom_fields.name IN (` + placeholders(len(fields)) + `))
					WHERE affected_custom_values.customized_type = 'Issue'
				) affected_versions
				ON (issues.id = affected_versions.customized_id)
			INNER JOIN issue_statuses
				ON (issues.status_id = issue_statuses.id)
			INNER JOIN trackers
				ON (issues.tracker_id = trackers.id)
			LEFT OUTER JOIN users author_users
				ON (issues.author_id = author_users.id)
			LEFT OUTER JOIN users assigned_users
				ON (issues.assigned_to_id = assigned_users.id)
			LEFT OUTER JOIN enumerations priority_enumerations
				ON (priority_enumerations.id = issues.priority_id
					AND priority_enumerations.type = 'IssuePriority')
		WHERE
			issues.project_id = ?
		ORDER BY
			issues.id,
			affected_versions.custom_field_id`

	args := append(stringArgs(fields), projectID)
	var issues []models.Issue
	err := r.query(ctx, "チケット", q, func(rows *sql.Rows) error {
		var i models.Issue
		var affected, fixVersion, priority, assignee, reporter sql.NullString
		var votes sql.NullInt64
		if err := rows.Scan(
			&i.ID, &i.ProjectID, &i.Subject, &i.Description,
			&affected, &fixVersion, &i.Tracker, &i.Status, &priority,
			&i.DueDate, &i.CreatedOn, &i.UpdatedOn, &votes,
			&assignee, &reporter,
		); err != nil {
			return err
		}
		// 影響バージョンが複数ある場合は同じチケットの行が続くので1件にまとめる
		if n := len(issues); n > 0 && issues[n-1].ID == i.ID {
			issues[n-1].AffectedVersion = joinVersion(issues[n-1].AffectedVersion, affected.String)
			return nil
		}
		i.AffectedVersion, i.FixVersion, i.Priority = affected.String, fixVersion.String, priority.String
		i.Assignee, i.Reporter = assignee.String, reporter.String
		i.Votes = votes.Int64
		issues = append(issues, i)
		return nil
	}, args...)
	return issues, err
}

func joinVersion(current, value string) string {
	if value == "" {
		return current
	}
	if current == "" {
		return value
	}
	for _, v := range strings.Split(current, ",") {
		if v == value {
			return current
		}
	}
	return current + "," + value
}

// Journals はチケットの履歴エントリを作成日時順に返します
func (r *RedmineDB) Journals(ctx context.Context, issueID int64) ([]models.Journal, error) {
	q := `
		SELECT
			journals.id,
			journals.journalized_id,
			users.login,
			journals.created_on,
			journals.notes
		FROM
			journals
			LEFT OUTER JOIN users
				ON (journals.user_id = users.id)
		WHERE
			journals.journalized_id = ?
			AND journals.journalized_type = 'Issue'
		ORDER BY
			journals.created_on, journals.id`

	var journals []models.Journal
	err := r.query(ctx, "履歴", q, func(rows *sql.Rows) error {
		var j models.Journal
		var user sql.NullString
		if err := rows.Scan(&j.ID, &j.IssueID, &user, &j.CreatedOn, &j.Notes); err != nil {
			return err
		}
		j.User = user.String
		journals = append(journals, j)
		return nil
	}, issueID)
	return journals, err
}

// JournalDetails は履歴エントリの属性変更をID順に返します
func (r *RedmineDB) JournalDetails(ctx context.Context, journalID int64) ([]models.JournalDetail, error) {
	q := `
		SELECT
			id,
			journal_id,
			prop_key,
			old_value,
			value
		FROM
			journal_details
		WHERE
			journal_id = ?
			AND property = 'attr'
		ORDER BY
			id`

	var details []models.JournalDetail
	err := r.query(ctx, "変更履歴", q, func(rows *sql.Rows) error {
		var d models.JournalDetail
		if err := rows.Scan(&d.ID, &d.JournalID, &d.PropKey, &d.OldValue, &d.Value); err != nil {
			return err
		}
		details = append(details, d)
		return nil
	}, journalID)
	return details, err
}

// Relations は全チケット関連を (from, to, type) 順に返します
func (r *RedmineDB) Relations(ctx context.Context) ([]models.Relation, error) {
	q := `
		SELECT
			issue_from_id,
			issue_to_id,
			relation_type
		FROM
			issue_relations
		ORDER BY
			issue_from_id,
			issue_to_id,
			relation_type`

	var relations []models.Relation
	err := r.query(ctx, "チケット関連", q, func(rows *sql.Rows) error {
		var rel models.Relation
		if err := rows.Scan(&rel.FromID, &rel.ToID, &rel.Type); err != nil {
			return err
		}
		relations = append(relations, rel)
		return nil
	})
	return relations, err
}
