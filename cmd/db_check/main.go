package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"redminetojira/config"
	"redminetojira/db"
	"redminetojira/models"
	"redminetojira/services"
	"redminetojira/utils"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:   "db_check",
		Short: "Redmineデータベース接続確認ツール",
		Long: `Redmineデータベース接続確認ツール

このツールはRedmineデータベースに接続できるか、エクスポート対象のプロジェクトと
作成ユーザーが存在するかを確認し、参照テーブルの件数を表示します。
確認が成功すれば jelly_export も正常に動作する可能性が高いです。

環境変数:
  REDMINE_DB_DRIVER   データベースドライバ (デフォルト: mysql)
  REDMINE_DB_DSN      データベース接続文字列
  EXPORT_PROJECTS     エクスポート対象プロジェクト (カンマ区切り)
  SEED_USER_LOGIN     作成するユーザーのログイン名 (デフォルト: community)
  ISSUE_MAP_CSV       前回出力したチケット対応表CSV (存在する場合は件数を表示)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(cmd.Context(), configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "設定ファイル (YAML)")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		utils.LogError("データベース確認エラー: %v", err)
		utils.LogError("接続情報とエクスポート対象の設定を確認してください。")
		os.Exit(1)
	}
}

func check(ctx context.Context, configFile string) error {
	utils.LogInfo("Redmineデータベース接続確認ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if err := utils.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	utils.LogInfo("データベースに接続しています (%s)...", cfg.DBDriver)
	source, err := db.Open(ctx, db.Options{
		Driver:                cfg.DBDriver,
		DSN:                   cfg.DBDSN,
		AffectedVersionFields: cfg.AffectedVersionFields,
	})
	if err != nil {
		return err
	}
	defer source.Close()
	utils.LogInfo("データベース接続成功")

	refs, err := services.LoadReferenceCache(ctx, source, cfg.Projects)
	if err != nil {
		return err
	}
	for _, category := range models.Categories {
		utils.LogInfo("%s: %d 件", category, refs.Size(category))
	}

	if found := refs.Size(models.CategoryProject); found != len(cfg.Projects) {
		return errors.Errorf("エクスポート対象のプロジェクトが見つかりません (設定: %d 件, 存在: %d 件)", len(cfg.Projects), found)
	}

	users, err := source.SeedUsers(ctx, cfg.SeedUserLogin)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return errors.Errorf("作成ユーザー '%s' が見つかりません", cfg.SeedUserLogin)
	}

	if _, err := checkManifest(afero.NewOsFs(), cfg.ManifestCSV); err != nil {
		return err
	}

	utils.LogInfo("データベースの内容は正常です。")
	return nil
}

// checkManifest は前回のエクスポートで出力したチケット対応表の件数を確認します
func checkManifest(fs afero.Fs, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return 0, errors.Wrapf(err, "チケット対応表の確認に失敗しました: %s", path)
	}
	if !exists {
		utils.LogInfo("チケット対応表 '%s' はまだ作成されていません", path)
		return 0, nil
	}

	mapping, err := services.LoadIssueMapping(fs, path)
	if err != nil {
		return 0, err
	}
	utils.LogInfo("チケット対応表 '%s': %d 件", path, len(mapping))
	return len(mapping), nil
}
