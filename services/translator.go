package services

import "redminetojira/config"

// 変換表に存在しない値は空文字 (空の属性) になります

// TranslateResolution はRedmineステータスをJIRAの解決状況に変換します
func TranslateResolution(status string) (string, bool) {
	v, ok := config.StatusToResolution[status]
	return v, ok
}

// TranslateStatus はRedmineステータスをJIRAのワークフローステータスに変換します
func TranslateStatus(status string) (string, bool) {
	v, ok := config.StatusToStatus[status]
	return v, ok
}

// TranslateTracker はRedmineトラッカーをJIRAのイシュータイプに変換します
func TranslateTracker(tracker string) (string, bool) {
	v, ok := config.TrackerToType[tracker]
	return v, ok
}

// TranslatePriority はRedmine優先度をJIRA優先度に変換します
func TranslatePriority(priority string) (string, bool) {
	v, ok := config.PriorityToPriority[priority]
	return v, ok
}

// TranslateRelation はRedmineの関連種別をJIRAのリンク説明に変換します
func TranslateRelation(relation string) (string, bool) {
	v, ok := config.RelationToRelation[relation]
	return v, ok
}

// ProjectKey はRedmineプロジェクト名に対応するJIRAプロジェクトキーを返します
func ProjectKey(name string) (string, bool) {
	v, ok := config.ProjectKeys[name]
	return v, ok
}
