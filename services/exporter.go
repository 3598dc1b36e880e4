package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"

	"redminetojira/config"
	"redminetojira/jelly"
	"redminetojira/models"
	"redminetojira/utils"
)

const (
	issueIDVar       = "issue_id"
	duplicateSummary = "ignore"
	unresolved       = "Unresolved"
)

// ExportStats はエクスポート件数の集計です
type ExportStats struct {
	Users        int
	Projects     int
	Versions     int
	Issues       int
	Comments     int
	Links        int
	SkippedLinks int
	// JIRAのワークフローステータス・解決状況ごとのチケット数
	ByStatus     map[string]int
	ByResolution map[string]int
}

// ExportResult は組み立てたJellyドキュメントと集計結果です
type ExportResult struct {
	Document *jelly.Element
	Stats    ExportStats
	Issues   []ManifestEntry
}

// Exporter はRedmineのデータをJIRA Jellyスクリプトに変換します
type Exporter struct {
	config   *config.Config
	source   Source
	fs       afero.Fs
	policy   AssignmentPolicy
	progress io.Writer
}

// NewExporter は新しいエクスポーターを作成します
func NewExporter(cfg *config.Config, src Source, fs afero.Fs) *Exporter {
	return &Exporter{
		config: cfg,
		source: src,
		fs:     fs,
		policy: AssignmentPolicy{
			Enabled:     cfg.Reassign,
			Placeholder: cfg.Placeholder,
			Exempt:      cfg.ExemptLogins,
		},
	}
}

// SetProgressOutput は進捗バーの出力先を設定します (nil の場合は表示しない)
func (e *Exporter) SetProgressOutput(w io.Writer) {
	e.progress = w
}

// RunExport は参照キャッシュの読み込みからファイル書き出しまでの全体を実行します。
// ドキュメントの組み立てが完了するまでファイルは書き出しません
func (e *Exporter) RunExport(ctx context.Context) error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "エクスポート処理全体")

	refs, err := LoadReferenceCache(ctx, e.source, e.config.Projects)
	if err != nil {
		return err
	}

	result, err := e.Build(ctx, refs)
	if err != nil {
		return err
	}

	utils.LogInfo("Jellyファイルを書き出しています: %s", e.config.JellyFile)
	if err := jelly.WriteFile(e.fs, e.config.JellyFile, result.Document); err != nil {
		return err
	}

	if e.config.ManifestCSV != "" {
		manifest := NewManifestWriter(e.fs, e.config.ManifestCSV)
		for _, entry := range result.Issues {
			manifest.Add(entry)
		}
		if err := manifest.Write(); err != nil {
			return errors.Wrap(err, "マニフェストCSVの書き出しに失敗しました")
		}
		mapping, err := LoadIssueMapping(e.fs, e.config.ManifestCSV)
		if err != nil {
			return errors.Wrap(err, "マニフェストCSVの確認に失敗しました")
		}
		if len(mapping) != manifest.Len() {
			return errors.Errorf("マニフェストCSVの件数が一致しません (書き込み: %d 件, 読み込み: %d 件)", manifest.Len(), len(mapping))
		}
	}

	logSummary(result.Stats)
	return nil
}

// exportRun は1回のエクスポートの作業状態です
type exportRun struct {
	*Exporter
	ctx       context.Context
	builder   *jelly.Builder
	changeLog *ChangeLogFormatter
	result    *ExportResult
	exported  map[int64]bool
}

// Build はJellyドキュメント全体を組み立てます
func (e *Exporter) Build(ctx context.Context, refs *ReferenceCache) (*ExportResult, error) {
	run := &exportRun{
		Exporter:  e,
		ctx:       ctx,
		builder:   jelly.NewBuilder(),
		changeLog: NewChangeLogFormatter(refs),
		result: &ExportResult{Stats: ExportStats{
			ByStatus:     make(map[string]int),
			ByResolution: make(map[string]int),
		}},
		exported: make(map[int64]bool),
	}

	if err := run.exportUsers(); err != nil {
		return nil, err
	}

	projects, err := e.source.Projects(ctx, e.config.Projects)
	if err != nil {
		return nil, err
	}
	for _, project := range projects {
		if err := run.exportProject(project); err != nil {
			return nil, err
		}
	}

	if err := run.exportRelations(); err != nil {
		return nil, err
	}

	doc, err := run.builder.Document()
	if err != nil {
		return nil, err
	}
	run.result.Document = doc
	return run.result, nil
}

func (r *exportRun) exportUsers() error {
	utils.LogInfo("ユーザーをエクスポートしています")
	users, err := r.source.SeedUsers(r.ctx, r.config.SeedUserLogin)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		utils.LogWarn("作成ユーザー '%s' が見つかりません", r.config.SeedUserLogin)
	}
	for _, u := range users {
		r.builder.Add(jelly.CreateUser{
			Username:  u.Login,
			FullName:  u.FullName(),
			Email:     u.Mail,
			SendEmail: r.config.SendEmail,
		})
		r.result.Stats.Users++
	}
	return nil
}

func (r *exportRun) exportProject(project models.Project) error {
	utils.LogInfo("プロジェクトをエクスポートしています: %s", project.Name)

	key, ok := ProjectKey(project.Name)
	if !ok {
		utils.LogWarn("プロジェクト '%s' のJIRAキーが定義されていません", project.Name)
	}

	directive := jelly.CreateProject{
		Key:         key,
		Name:        project.Name,
		Lead:        r.config.ProjectLead,
		URL:         project.Homepage,
		Description: project.Homepage,
	}
	r.result.Stats.Projects++

	return r.builder.Within(directive, func() error {
		if err := r.exportVersions(project); err != nil {
			return err
		}
		return r.exportIssues(project, key)
	})
}

func (r *exportRun) exportVersions(project models.Project) error {
	versions, err := r.source.Versions(r.ctx, project.ID)
	if err != nil {
		return err
	}
	for _, v := range versions {
		utils.LogInfo("バージョンを追加しています: %s", v.Name)
		r.builder.Add(jelly.AddVersion{
			Name:        v.Name,
			Description: v.Description,
			ReleaseDate: FormatDate(v.EffectiveDate),
		})
		r.result.Stats.Versions++
	}
	return nil
}

func (r *exportRun) exportIssues(project models.Project, projectKey string) error {
	issues, err := r.source.Issues(r.ctx, project.ID)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if r.progress != nil && len(issues) > 0 {
		bar = progressbar.NewOptions(len(issues),
			progressbar.OptionSetWriter(r.progress),
			progressbar.OptionSetDescription(project.Name),
		)
		defer bar.Finish()
	}

	for _, issue := range issues {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		if err := r.exportIssue(issue, projectKey); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return nil
}

// IssueDescription は移行元を示す1行目を付けたチケット説明を返します
func IssueDescription(sourceSystem string, issue models.Issue) string {
	description := fmt.Sprintf("Imported from %s issue #%d", sourceSystem, issue.ID)
	if issue.Description.Valid {
		description += "\n\n" + issue.Description.String
	}
	return description
}

func (r *exportRun) exportIssue(issue models.Issue, projectKey string) error {
	utils.LogDebug("チケットをエクスポートしています: %d", issue.ID)

	issueType, ok := TranslateTracker(issue.Tracker)
	if !ok {
		utils.LogWarn("チケット %d のトラッカー '%s' に対応する課題タイプがありません", issue.ID, issue.Tracker)
	}
	priority, ok := TranslatePriority(issue.Priority)
	if !ok {
		utils.LogWarn("チケット %d の優先度 '%s' に対応する優先度がありません", issue.ID, issue.Priority)
	}

	directive := jelly.CreateIssue{
		IssueType:        issueType,
		Summary:          issue.Subject,
		Priority:         priority,
		Versions:         issue.AffectedVersion,
		FixVersions:      issue.FixVersion,
		Assignee:         r.policy.Apply(issue.Assignee),
		Reporter:         r.policy.Apply(issue.Reporter),
		Description:      IssueDescription(r.config.SourceSystem, issue),
		DueDate:          FormatDateTime(issue.DueDate),
		Created:          FormatDateTime(issue.CreatedOn),
		Updated:          FormatDateTime(issue.UpdatedOn),
		IssueIDVar:       issueIDVar,
		IssueKeyVar:      jelly.KeyVar(issue.ID),
		DuplicateSummary: duplicateSummary,
	}

	r.tally(issue)
	r.exported[issue.ID] = true
	r.result.Issues = append(r.result.Issues, ManifestEntry{
		IssueID:    issue.ID,
		ProjectKey: projectKey,
		KeyVar:     jelly.KeyVar(issue.ID),
		Summary:    issue.Subject,
	})

	return r.builder.Within(directive, func() error {
		return r.exportComments(issue)
	})
}

func (r *exportRun) tally(issue models.Issue) {
	r.result.Stats.Issues++

	status, ok := TranslateStatus(issue.Status)
	if !ok {
		status = ValueUnknown
	}
	r.result.Stats.ByStatus[status]++

	resolution, _ := TranslateResolution(issue.Status)
	if resolution == "" {
		resolution = unresolved
	}
	r.result.Stats.ByResolution[resolution]++
}

func (r *exportRun) exportComments(issue models.Issue) error {
	journals, err := r.source.Journals(r.ctx, issue.ID)
	if err != nil {
		return err
	}

	for _, journal := range journals {
		details, err := r.source.JournalDetails(r.ctx, journal.ID)
		if err != nil {
			return err
		}
		changeLog, err := r.changeLog.Format(details)
		if err != nil {
			return errors.Wrapf(err, "チケット #%d の履歴 %d を変換できません", issue.ID, journal.ID)
		}

		r.builder.Add(jelly.AddComment{
			IssueKey:  jelly.KeyRef(issue.ID),
			Commenter: r.policy.Apply(journal.User),
			Comment:   CommentBody(changeLog, journal.Notes.String),
			Created:   FormatDateTime(journal.CreatedOn),
		})
		r.result.Stats.Comments++
	}
	return nil
}

func (r *exportRun) exportRelations() error {
	utils.LogInfo("チケットをリンクしています")
	relations, err := r.source.Relations(r.ctx)
	if err != nil {
		return err
	}

	for _, rel := range relations {
		if r.config.LinkExportedOnly && !(r.exported[rel.FromID] && r.exported[rel.ToID]) {
			utils.LogDebug("未エクスポートのチケットを含む関連をスキップします: %d -> %d", rel.FromID, rel.ToID)
			r.result.Stats.SkippedLinks++
			continue
		}
		desc, _ := TranslateRelation(rel.Type)
		r.builder.Add(jelly.LinkIssue{
			Key:      jelly.KeyRef(rel.FromID),
			LinkKey:  jelly.KeyRef(rel.ToID),
			LinkDesc: desc,
		})
		r.result.Stats.Links++
	}
	return nil
}

func logSummary(stats ExportStats) {
	utils.LogInfo("エクスポート結果: ユーザー=%d, プロジェクト=%d, バージョン=%d, チケット=%d, コメント=%d, リンク=%d (スキップ=%d)",
		stats.Users, stats.Projects, stats.Versions, stats.Issues, stats.Comments, stats.Links, stats.SkippedLinks)
	utils.LogInfo("JIRAステータス別: %s", formatCounts(stats.ByStatus))
	utils.LogInfo("解決状況別: %s", formatCounts(stats.ByResolution))
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}
