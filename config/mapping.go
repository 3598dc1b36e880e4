package config

// ProjectKeys はRedmineプロジェクト名からJIRAプロジェクトキーへのマッピングです
var ProjectKeys = map[string]string{
	"Puppet":               "PUPT",
	"Facter":               "FACT",
	"MCollective":          "MCOL",
	"Puppet Dashboard":     "DASH",
	"Puppet Documentation": "DOCS",
}

// DefaultProjects はデフォルトのエクスポート対象プロジェクトです
var DefaultProjects = []string{
	"Facter",
	"MCollective",
	"Puppet Dashboard",
	"Puppet Documentation",
	"Puppet",
}

// StatusToResolution はRedmineステータスからJIRA解決状況へのマッピングです
// 値が空文字のステータスは未解決のままです
var StatusToResolution = map[string]string{
	"Closed":                        "Fixed",
	"Rejected":                      "Won't Fix",
	"Duplicate":                     "Duplicate",
	"Accepted":                      "",
	"Ready For Checkin":             "Fixed",
	"Unreviewed":                    "",
	"Needs Decision":                "Incomplete",
	"Needs More Information":        "Incomplete",
	"Re-opened":                     "",
	"In Topic Branch Pending Merge": "",
	"Code Insufficient":             "",
	"Tests Insufficient":            "",
	"Investigating":                 "",
	"Merged - Pending Release":      "Fixed",
	"Requires CLA to be signed":     "Require CLA",
}

// StatusToStatus はRedmineステータスからJIRAワークフローステータスへのマッピングです
var StatusToStatus = map[string]string{
	"Closed":                        "Closed",
	"Rejected":                      "Closed",
	"Duplicate":                     "Closed",
	"Accepted":                      "Open",
	"Ready For Checkin":             "Resolved",
	"Unreviewed":                    "Open",
	"Needs Decision":                "Resolved",
	"Needs More Information":        "Resolved",
	"Re-opened":                     "Reopened",
	"In Topic Branch Pending Merge": "In Progress",
	"Code Insufficient":             "Reopened",
	"Tests Insufficient":            "Reopened",
	"Investigating":                 "In Progress",
	"Merged - Pending Release":      "Resolved",
	"Requires CLA to be signed":     "Resolved",
}

// TrackerToType はRedmineトラッカーからJIRAイシュータイプへのマッピングです
var TrackerToType = map[string]string{
	"Bug":      "Bug",
	"Feature":  "New Feature",
	"Refactor": "Improvement",
}

// PriorityToPriority はRedmine優先度からJIRA優先度へのマッピングです
var PriorityToPriority = map[string]string{
	"Low":       "Trivial",
	"Normal":    "Minor",
	"High":      "Major",
	"Urgent":    "Critical",
	"Immediate": "Blocker",
}

// RelationToRelation はRedmineの関連種別からJIRAリンク説明へのマッピングです
var RelationToRelation = map[string]string{
	"blocks":     "blocks",
	"duplicates": "duplicates",
	"precedes":   "has to be done before",
	"relates":    "relates to",
}

// DefaultAffectedVersionFields は「影響バージョン」として扱うカスタムフィールド名です
var DefaultAffectedVersionFields = []string{
	"Affected Puppet version",
	"Affected Dashboard version",
	"Affected mCollective version",
}
