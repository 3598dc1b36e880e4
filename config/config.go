package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// 移行元データベース設定
	DBDriver string
	DBDSN    string

	// 出力ファイル
	JellyFile   string
	ManifestCSV string // 空の場合はマニフェストを出力しない

	// エクスポート設定
	Projects              []string
	ProjectLead           string
	SeedUserLogin         string
	SendEmail             bool
	SourceSystem          string
	LinkExportedOnly      bool
	AffectedVersionFields []string

	// 担当者・報告者の付け替えポリシー
	Reassign     bool
	Placeholder  string
	ExemptLogins []string

	// ログ・進捗表示
	LogLevel     string
	LogFormat    string
	ShowProgress bool
}

// SupportedDrivers は利用可能なデータベースドライバです
var SupportedDrivers = []string{"mysql", "postgres", "sqlite3"}

// 設定キーと環境変数名の対応
var envBindings = map[string]string{
	"db.driver":                      "REDMINE_DB_DRIVER",
	"db.dsn":                         "REDMINE_DB_DSN",
	"output.jelly":                   "JELLY_FILE",
	"output.manifest":                "ISSUE_MAP_CSV",
	"export.projects":                "EXPORT_PROJECTS",
	"export.lead":                    "JIRA_PROJECT_LEAD",
	"export.seed_user":               "SEED_USER_LOGIN",
	"export.send_email":              "SEND_EMAIL",
	"export.source_system":           "SOURCE_SYSTEM_NAME",
	"export.link_exported_only":      "LINK_EXPORTED_ONLY",
	"export.affected_version_fields": "AFFECTED_VERSION_FIELDS",
	"policy.reassign":                "REASSIGN_USERS",
	"policy.placeholder":             "PLACEHOLDER_USER",
	"policy.exempt":                  "EXEMPT_USERS",
	"log.level":                      "LOG_LEVEL",
	"log.format":                     "LOG_FORMAT",
	"progress":                       "SHOW_PROGRESS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.dsn", "root@tcp(localhost:3306)/redmine?parseTime=true")
	v.SetDefault("output.jelly", "redmine_dump.jelly")
	v.SetDefault("output.manifest", "")
	v.SetDefault("export.projects", DefaultProjects)
	v.SetDefault("export.lead", "jhelwig")
	v.SetDefault("export.seed_user", "community")
	v.SetDefault("export.send_email", false)
	v.SetDefault("export.source_system", "Redmine")
	v.SetDefault("export.link_exported_only", false)
	v.SetDefault("export.affected_version_fields", DefaultAffectedVersionFields)
	v.SetDefault("policy.reassign", true)
	v.SetDefault("policy.placeholder", "community")
	v.SetDefault("policy.exempt", []string{"jhelwig"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("progress", true)
}

// LoadConfig は .env・環境変数・設定ファイル (任意) から設定を読み込みます
func LoadConfig(configFile string) (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "環境変数のバインドに失敗しました: %s", env)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "設定ファイルの読み込みに失敗しました: %s", configFile)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		DBDriver:              v.GetString("db.driver"),
		DBDSN:                 v.GetString("db.dsn"),
		JellyFile:             v.GetString("output.jelly"),
		ManifestCSV:           v.GetString("output.manifest"),
		Projects:              getList(v, "export.projects"),
		ProjectLead:           v.GetString("export.lead"),
		SeedUserLogin:         v.GetString("export.seed_user"),
		SendEmail:             v.GetBool("export.send_email"),
		SourceSystem:          v.GetString("export.source_system"),
		LinkExportedOnly:      v.GetBool("export.link_exported_only"),
		AffectedVersionFields: getList(v, "export.affected_version_fields"),
		Reassign:              v.GetBool("policy.reassign"),
		Placeholder:           v.GetString("policy.placeholder"),
		ExemptLogins:          getList(v, "policy.exempt"),
		LogLevel:              v.GetString("log.level"),
		LogFormat:             v.GetString("log.format"),
		ShowProgress:          v.GetBool("progress"),
	}
}

// 環境変数ではカンマ区切り、設定ファイルではリストとして指定できる値を取得
func getList(v *viper.Viper, key string) []string {
	raw := v.Get(key)
	if s, ok := raw.(string); ok {
		return SplitList(s)
	}
	return cast.ToStringSlice(raw)
}

// SplitList はカンマ区切りの文字列を空要素を除いたリストに分割します
func SplitList(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// Validate は設定値の整合性をチェックします
func (c *Config) Validate() error {
	supported := false
	for _, d := range SupportedDrivers {
		if c.DBDriver == d {
			supported = true
			break
		}
	}
	if !supported {
		return errors.Errorf("未対応のデータベースドライバです: %q (利用可能: %s)", c.DBDriver, strings.Join(SupportedDrivers, ", "))
	}
	if c.DBDSN == "" {
		return errors.New("データベース接続文字列 (REDMINE_DB_DSN) が未設定です")
	}
	if c.JellyFile == "" {
		return errors.New("出力ファイル (JELLY_FILE) が未設定です")
	}
	if len(c.Projects) == 0 {
		return errors.New("エクスポート対象のプロジェクトがありません")
	}
	for _, name := range c.Projects {
		if _, ok := ProjectKeys[name]; !ok {
			return errors.Errorf("プロジェクト %q のJIRAキーが定義されていません", name)
		}
	}
	if c.Reassign && c.Placeholder == "" {
		return errors.New("付け替えが有効ですが代替ユーザー (PLACEHOLDER_USER) が未設定です")
	}
	return nil
}
