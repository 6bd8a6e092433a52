// Package main — консольная утилита cellmapper: просмотр листов шаблона,
// проекция извлечённых данных на привязки, проверка и сохранение наборов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nikitaxru/cellmapper"
	"github.com/nikitaxru/cellmapper/internal/config"
	"github.com/nikitaxru/cellmapper/internal/logging"
	"github.com/nikitaxru/cellmapper/internal/store"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	dataPaths   []string
	mappingPath string
	templateID  string
	sheetName   string
	profilePath string
	asJSON      bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd собирает корневую команду со всеми подкомандами.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cellmapper",
		Short: "Привязка полей извлечённых данных к ячейкам шаблона xlsx",
		Long: `cellmapper показывает, какие значения извлечённых данных попадут
в ячейки шаблона по набору привязок, проверяет набор и сохраняет его.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "YAML-профиль домена (по умолчанию CELLMAPPER_PROFILE)")

	rootCmd.AddCommand(
		sheetsCmd(),
		renderCmd(),
		resolveCmd(),
		validateCmd(),
		saveCmd(),
		listCmd(),
	)
	return rootCmd
}

func setup(cmd *cobra.Command, args []string) error {
	// Overload: значения из .env важнее окружения
	if err := godotenv.Overload(); err != nil {
		slog.Debug("файл .env не найден, используются переменные окружения")
	}

	c, err := config.Load()
	if err != nil {
		return err
	}
	if profilePath != "" {
		c.Profile.Path = profilePath
	}
	cfg = c

	logger = logging.SetupTo(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("конфигурация загружена", "config", cfg.String())
	return nil
}

// loadProfile читает профиль, если он задан; иначе пустой профиль.
func loadProfile() (*cellmapper.Profile, error) {
	if cfg.Profile.Path == "" {
		return &cellmapper.Profile{}, nil
	}
	return cellmapper.LoadProfile(cfg.Profile.Path)
}

// loadData читает и сливает ответы экстрактора из файлов.
func loadData(paths []string) (interface{}, error) {
	outputs := make([]string, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("чтение данных: %w", err)
		}
		outputs = append(outputs, string(b))
	}
	return cellmapper.ParseExtracted(outputs...)
}

// openStore открывает PostgreSQL, если задан DSN, иначе JSON-файл.
func openStore(ctx context.Context) (*store.Store, error) {
	if cfg.Store.UsePostgres() {
		return store.NewPostgres(ctx, cfg.Store.DSN, cfg.Store.CacheSize)
	}
	return store.NewFile(cfg.Store.Path), nil
}

// loadMapping берёт набор из файла (--mapping) или из хранилища (--id).
func loadMapping(ctx context.Context) (cellmapper.MappingSet, error) {
	if mappingPath != "" {
		return cellmapper.LoadMappingSet(mappingPath)
	}
	if templateID == "" {
		return cellmapper.MappingSet{}, fmt.Errorf("нужен --mapping или --id")
	}
	st, err := openStore(ctx)
	if err != nil {
		return cellmapper.MappingSet{}, err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	defer cancel()
	return st.LoadMappingSet(ctx, templateID)
}

// newSession собирает сессию по шаблону, данным и набору привязок.
func newSession(ctx context.Context, templatePath string, withData bool) (*cellmapper.Session, error) {
	profile, err := loadProfile()
	if err != nil {
		return nil, err
	}
	sheets, err := cellmapper.NewSheetLoader(logger).Load(templatePath)
	if err != nil {
		return nil, err
	}
	set, err := loadMapping(ctx)
	if err != nil {
		return nil, err
	}
	var data interface{}
	if withData {
		if data, err = loadData(dataPaths); err != nil {
			return nil, err
		}
	}
	opts := []cellmapper.Option{
		cellmapper.WithProfile(profile),
		cellmapper.WithSearchDepth(cfg.Search.Depth),
		cellmapper.WithMappingSet(set),
		cellmapper.WithLogger(logger),
	}
	if templateID != "" {
		opts = append(opts, cellmapper.WithTemplateID(templateID))
	}
	return cellmapper.NewSession(sheets, data, opts...), nil
}
