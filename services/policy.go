package services

import (
	"database/sql"

	"github.com/lestrrat-go/strftime"
)

// AssignmentPolicy は担当者・報告者・コメント投稿者の付け替えルールです。
// 試験移行では例外ユーザー以外をすべて代替ユーザーに置き換えます
type AssignmentPolicy struct {
	Enabled     bool
	Placeholder string
	Exempt      []string
}

// Apply は付け替え後のログイン名を返します
func (p AssignmentPolicy) Apply(login string) string {
	if !p.Enabled {
		return login
	}
	for _, exempt := range p.Exempt {
		if login == exempt {
			return login
		}
	}
	return p.Placeholder
}

// Jellyに渡す日付形式
var (
	jellyDateTime = mustPattern("%Y-%m-%d %I:%M %p")
	jellyDate     = mustPattern("%Y-%m-%d")
)

func mustPattern(pattern string) *strftime.Strftime {
	f, err := strftime.New(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

// FormatDateTime は日時をJellyの日付形式 (例: 2010-05-03 02:15 PM) に変換します
func FormatDateTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return jellyDateTime.FormatString(t.Time)
}

// FormatDate は日付を YYYY-MM-DD 形式に変換します
func FormatDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return jellyDate.FormatString(t.Time)
}
