package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"redminetojira/models"
	"redminetojira/utils"
)

const (
	// ValueNone はIDが未設定 (NULL/0) の場合の表示です
	ValueNone = "NONE"
	// ValueUnknown はIDがキャッシュに存在しない場合の表示です
	ValueUnknown = "UNKNOWN"
)

// ReferenceCache は起動時に読み込んだ id → 名前 のスナップショットです。
// 読み込み後は変更されません
type ReferenceCache struct {
	tables map[models.Category]map[int64]string
}

// NewReferenceCache はテーブルを指定して参照キャッシュを作成します
func NewReferenceCache(tables map[models.Category]map[int64]string) *ReferenceCache {
	copied := make(map[models.Category]map[int64]string, len(tables))
	for category, table := range tables {
		t := make(map[int64]string, len(table))
		for id, name := range table {
			t[id] = name
		}
		copied[category] = t
	}
	return &ReferenceCache{tables: copied}
}

// LoadReferenceCache はカテゴリごとに1回ずつクエリを実行して参照キャッシュを作成します
func LoadReferenceCache(ctx context.Context, src ReferenceSource, projectNames []string) (*ReferenceCache, error) {
	loaders := map[models.Category]func() (map[int64]string, error){
		models.CategoryProject:  func() (map[int64]string, error) { return src.ProjectNames(ctx, projectNames) },
		models.CategoryStatus:   func() (map[int64]string, error) { return src.StatusNames(ctx) },
		models.CategoryTracker:  func() (map[int64]string, error) { return src.TrackerNames(ctx) },
		models.CategoryPriority: func() (map[int64]string, error) { return src.PriorityNames(ctx) },
		models.CategoryVersion:  func() (map[int64]string, error) { return src.VersionNames(ctx) },
		models.CategoryUser:     func() (map[int64]string, error) { return src.UserNames(ctx) },
	}

	cache := &ReferenceCache{tables: make(map[models.Category]map[int64]string, len(loaders))}
	for _, category := range models.Categories {
		utils.LogInfo("%s をキャッシュしています", category)
		table, err := loaders[category]()
		if err != nil {
			return nil, errors.Wrapf(err, "%s のキャッシュに失敗しました", category)
		}
		cache.tables[category] = table
	}
	return cache, nil
}

// ResolveID はIDを名前に変換します
func (c *ReferenceCache) ResolveID(category models.Category, id int64) string {
	if id == 0 {
		return ValueNone
	}
	if name, ok := c.tables[category][id]; ok {
		return name
	}
	return ValueUnknown
}

// Resolve は変更履歴に記録された生の値 (文字列のID) を名前に変換します
func (c *ReferenceCache) Resolve(category models.Category, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ValueNone
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ValueUnknown
	}
	return c.ResolveID(category, id)
}

// Size はカテゴリのエントリ数を返します
func (c *ReferenceCache) Size(category models.Category) int {
	return len(c.tables[category])
}
