package cli

import (
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-engine/internal/config"
	"quiz-engine/internal/infra/file"
	pgloader "quiz-engine/internal/infra/postgres"
	"quiz-engine/internal/logger"
)

// NewImportCmd loads a JSON questions file into Postgres under a pool id.
func NewImportCmd(configPath *string) *cobra.Command {
	var poolID string
	cmd := &cobra.Command{
		Use:   "import <questions.json>",
		Short: "Import a question pool file into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			pool, err := file.Decode(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			if poolID == "" {
				poolID = cfg.DefaultPool()
			}
			pool.ID = poolID

			db, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := pgloader.NewPoolLoader(db).SavePool(ctx, pool); err != nil {
				return err
			}
			log.Info("pool imported", zap.String("pool_id", pool.ID), zap.Int("questions", len(pool.Questions)))
			return nil
		},
	}
	cmd.Flags().StringVar(&poolID, "pool", "", "pool id to store the questions under (defaults to pool.default)")
	return cmd
}
