package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"redminetojira/config"
	"redminetojira/db"
	"redminetojira/services"
	"redminetojira/utils"
)

// コマンドラインで設定を上書きするオプション
type options struct {
	configFile string
	output     string
	manifest   string
	driver     string
	dsn        string
	noProgress bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		utils.LogError("エクスポート処理に失敗しました: %v", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "jelly_export",
		Short: "Redmine → JIRA Jelly エクスポートツール",
		Long: `Redmine → JIRA Jelly エクスポートツール

Redmineデータベースからプロジェクト・バージョン・チケット・コメント・関連を読み込み、
JIRAのJellyインポートスクリプト (デフォルト: redmine_dump.jelly) を作成します。

環境変数:
  REDMINE_DB_DRIVER   データベースドライバ mysql / postgres / sqlite3 (デフォルト: mysql)
  REDMINE_DB_DSN      データベース接続文字列 (デフォルト: root@tcp(localhost:3306)/redmine?parseTime=true)
  JELLY_FILE          出力するJellyファイル (デフォルト: redmine_dump.jelly)
  ISSUE_MAP_CSV       チケット対応表CSV (デフォルト: 出力しない)
  EXPORT_PROJECTS     エクスポート対象プロジェクト (カンマ区切り)
  JIRA_PROJECT_LEAD   JIRAプロジェクトのリーダー (デフォルト: jhelwig)
  SEED_USER_LOGIN     作成するユーザーのログイン名 (デフォルト: community)
  REASSIGN_USERS      担当者・報告者を代替ユーザーに付け替える (デフォルト: true)
  PLACEHOLDER_USER    代替ユーザー (デフォルト: community)
  EXEMPT_USERS        付け替えない例外ユーザー (カンマ区切り, デフォルト: jhelwig)
  LOG_LEVEL           ログレベル (デフォルト: info)
  LOG_FORMAT          ログ形式 text / json (デフォルト: text)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "設定ファイル (YAML)")
	flags.StringVarP(&opts.output, "output", "o", "", "出力するJellyファイル (指定しない場合は環境変数から取得)")
	flags.StringVar(&opts.manifest, "manifest", "", "チケット対応表CSVの出力先")
	flags.StringVar(&opts.driver, "driver", "", "データベースドライバ (mysql / postgres / sqlite3)")
	flags.StringVar(&opts.dsn, "dsn", "", "データベース接続文字列")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "進捗バーを表示しない")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	// 開始時間の記録
	startTime := time.Now()

	// 設定の読み込み
	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	if err := utils.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	utils.LogInfo("Redmine → JIRA Jelly エクスポートツール")
	utils.LogInfo("設定読み込み完了 (ドライバ: %s, 対象プロジェクト: %d 件)", cfg.DBDriver, len(cfg.Projects))
	if cfg.Reassign {
		utils.LogWarn("担当者・報告者を '%s' に付け替えます (例外: %v)", cfg.Placeholder, cfg.ExemptLogins)
	}

	source, err := db.Open(ctx, db.Options{
		Driver:                cfg.DBDriver,
		DSN:                   cfg.DBDSN,
		AffectedVersionFields: cfg.AffectedVersionFields,
	})
	if err != nil {
		return err
	}
	defer source.Close()

	exporter := services.NewExporter(cfg, source, afero.NewOsFs())
	if cfg.ShowProgress {
		exporter.SetProgressOutput(os.Stderr)
	}
	if err := exporter.RunExport(ctx); err != nil {
		return err
	}

	utils.LogInfo("エクスポートが完了しました。合計実行時間: %s", time.Since(startTime))
	return nil
}

// コマンドラインで指定された値で設定を上書き
func applyOverrides(cfg *config.Config, opts *options) {
	if opts.output != "" {
		cfg.JellyFile = opts.output
	}
	if opts.manifest != "" {
		cfg.ManifestCSV = opts.manifest
	}
	if opts.driver != "" {
		cfg.DBDriver = opts.driver
	}
	if opts.dsn != "" {
		cfg.DBDSN = opts.dsn
	}
	if opts.noProgress {
		cfg.ShowProgress = false
	}
}
