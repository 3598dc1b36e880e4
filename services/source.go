package services

import (
	"context"

	"redminetojira/models"
)

// ReferenceSource は参照キャッシュの読み込み元です
type ReferenceSource interface {
	ProjectNames(ctx context.Context, names []string) (map[int64]string, error)
	StatusNames(ctx context.Context) (map[int64]string, error)
	TrackerNames(ctx context.Context) (map[int64]string, error)
	PriorityNames(ctx context.Context) (map[int64]string, error)
	VersionNames(ctx context.Context) (map[int64]string, error)
	UserNames(ctx context.Context) (map[int64]string, error)
}

// Source はエクスポートに必要なRedmineデータの読み込み元です
type Source interface {
	ReferenceSource
	SeedUsers(ctx context.Context, login string) ([]models.User, error)
	Projects(ctx context.Context, names []string) ([]models.Project, error)
	Versions(ctx context.Context, projectID int64) ([]models.Version, error)
	Issues(ctx context.Context, projectID int64) ([]models.Issue, error)
	Journals(ctx context.Context, issueID int64) ([]models.Journal, error)
	JournalDetails(ctx context.Context, journalID int64) ([]models.JournalDetail, error)
	Relations(ctx context.Context) ([]models.Relation, error)
}
