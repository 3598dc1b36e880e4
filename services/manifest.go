package services

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"redminetojira/models"
	"redminetojira/utils"
)

// マニフェストCSVの列
var manifestHeaders = []string{"Redmine Issue ID", "Project Key", "Issue Key Var", "Summary"}

// ManifestEntry はエクスポートしたチケット1件の対応情報です
type ManifestEntry struct {
	IssueID    int64
	ProjectKey string
	KeyVar     string
	Summary    string
}

// ManifestWriter はRedmineチケットとJellyキー変数の対応表をCSVに書き出します
type ManifestWriter struct {
	fs      afero.Fs
	path    string
	entries []ManifestEntry
}

// NewManifestWriter は新しいマニフェストライターを作成します
func NewManifestWriter(fs afero.Fs, path string) *ManifestWriter {
	return &ManifestWriter{fs: fs, path: path}
}

// Add はエントリを追加します
func (m *ManifestWriter) Add(entry ManifestEntry) {
	m.entries = append(m.entries, entry)
}

// Len は追加済みのエントリ数を返します
func (m *ManifestWriter) Len() int {
	return len(m.entries)
}

// Write はCSVファイルを作成します
func (m *ManifestWriter) Write() error {
	utils.LogInfo("マニフェストCSV '%s' を作成します", m.path)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(manifestHeaders); err != nil {
		return errors.Wrap(err, "ヘッダー書き込みエラー")
	}
	for _, e := range m.entries {
		row := []string{strconv.FormatInt(e.IssueID, 10), e.ProjectKey, e.KeyVar, e.Summary}
		if err := writer.Write(row); err != nil {
			return errors.Wrap(err, "行書き込みエラー")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, "CSV書き込み完了エラー")
	}

	if dir := filepath.Dir(m.path); dir != "." {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "出力ディレクトリの作成に失敗しました: %s", dir)
		}
	}
	if err := afero.WriteFile(m.fs, m.path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "CSVファイル作成エラー: %s", m.path)
	}

	utils.LogInfo("CSV書き込み完了: %d 行", m.Len())
	return nil
}

// LoadIssueMapping はマニフェストCSVから Redmine ID → キー変数 のマッピングを読み込みます
func LoadIssueMapping(fs afero.Fs, path string) (models.IssueMapping, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "マッピングCSVオープンエラー")
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "マッピングCSV読み込みエラー")
	}
	if len(records) < 1 {
		return nil, errors.New("マッピングデータが不足しています")
	}

	idIndex, keyIndex := -1, -1
	for i, header := range records[0] {
		switch header {
		case "Redmine Issue ID":
			idIndex = i
		case "Issue Key Var":
			keyIndex = i
		}
	}
	if idIndex == -1 || keyIndex == -1 {
		return nil, errors.New("マッピングに必要なカラムが見つかりません")
	}

	mapping := make(models.IssueMapping)
	for _, record := range records[1:] {
		if len(record) <= idIndex || len(record) <= keyIndex {
			continue
		}
		if record[idIndex] != "" && record[keyIndex] != "" {
			mapping[record[idIndex]] = record[keyIndex]
		}
	}
	return mapping, nil
}
