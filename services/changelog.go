package services

import (
	"fmt"
	"strings"

	"redminetojira/models"
)

// PropertyKind は変更履歴で扱う属性の種類です
type PropertyKind int

const (
	PropStatus PropertyKind = iota
	PropAssignee
	PropFixVersion
	PropPriority
	PropSubject
	PropProject
	PropDueDate
	PropStartDate
	PropTracker
	PropParent
)

type propertySpec struct {
	label string
	// 参照キャッシュで解決する場合のカテゴリ。resolve が false の場合は値をそのまま出力
	category models.Category
	resolve  bool
}

var propertySpecs = map[PropertyKind]propertySpec{
	PropStatus:     {label: "Status", category: models.CategoryStatus, resolve: true},
	PropAssignee:   {label: "Assigned to", category: models.CategoryUser, resolve: true},
	PropFixVersion: {label: "Target version", category: models.CategoryVersion, resolve: true},
	PropPriority:   {label: "Priority", category: models.CategoryPriority, resolve: true},
	PropSubject:    {label: "Subject"},
	PropProject:    {label: "Project", category: models.CategoryProject, resolve: true},
	PropDueDate:    {label: "Due Date"},
	PropStartDate:  {label: "Start Date"},
	PropTracker:    {label: "Issue type", category: models.CategoryTracker, resolve: true},
	PropParent:     {label: "Parent issue"},
}

var propertyKeys = map[string]PropertyKind{
	"status_id":        PropStatus,
	"assigned_to_id":   PropAssignee,
	"fixed_version_id": PropFixVersion,
	"priority_id":      PropPriority,
	"subject":          PropSubject,
	"project_id":       PropProject,
	"due_date":         PropDueDate,
	"start_date":       PropStartDate,
	"tracker_id":       PropTracker,
	"parent_id":        PropParent,
}

// 変更履歴に出力しない属性
var excludedProperties = map[string]bool{
	"category_id":     true,
	"done_ratio":      true,
	"estimated_hours": true,
	"support_urls":    true,
}

// Label は属性の表示名を返します
func (k PropertyKind) Label() string {
	return propertySpecs[k].label
}

// UnknownPropertyError は変換方法が定義されていない属性が見つかったことを表します
type UnknownPropertyError struct {
	Property string
	DetailID int64
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("Unknown property '%s' for journal detail entry: %d", e.Property, e.DetailID)
}

// ParsePropertyKind は属性キーを PropertyKind に変換します
func ParsePropertyKind(key string) (PropertyKind, bool) {
	k, ok := propertyKeys[key]
	return k, ok
}

// IsExcludedProperty は変更履歴に出力しない属性かどうかを返します
func IsExcludedProperty(key string) bool {
	return excludedProperties[key]
}

// ChangeLogFormatter は属性変更を人が読める変更履歴テキストに整形します
type ChangeLogFormatter struct {
	refs *ReferenceCache
}

// NewChangeLogFormatter は新しいフォーマッターを作成します
func NewChangeLogFormatter(refs *ReferenceCache) *ChangeLogFormatter {
	return &ChangeLogFormatter{refs: refs}
}

// Format は1つの履歴エントリに属する属性変更を整形します。
// 出力する行がない場合は空文字を返します
func (f *ChangeLogFormatter) Format(details []models.JournalDetail) (string, error) {
	var sb strings.Builder
	for _, d := range details {
		if IsExcludedProperty(d.PropKey) {
			continue
		}
		kind, ok := ParsePropertyKind(d.PropKey)
		if !ok {
			return "", &UnknownPropertyError{Property: d.PropKey, DetailID: d.ID}
		}
		sb.WriteString(f.line(kind, d.OldValue.String, d.Value.String))
	}
	if sb.Len() == 0 {
		return "", nil
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

func (f *ChangeLogFormatter) line(kind PropertyKind, oldValue, newValue string) string {
	spec := propertySpecs[kind]
	if spec.resolve {
		oldValue = f.refs.Resolve(spec.category, oldValue)
		newValue = f.refs.Resolve(spec.category, newValue)
	}
	return fmt.Sprintf("%s: Updated from '%s' to '%s'\n", spec.label, oldValue, newValue)
}

// CommentBody は変更履歴テキストとコメント本文を連結します
func CommentBody(changeLog string, notes string) string {
	return changeLog + notes
}
