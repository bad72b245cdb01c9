// nestctl 运维命令行：建表、造数、导入收容所、手动重试同步、查看事件流。
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nest-data/common/database"
	"nest-data/common/logger"
	"nest-data/internal/config"
	"nest-data/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app 子命令共享的配置与日志
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "nestctl",
		Short:         "Operator tooling for nest-data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadTooling()
			if err != nil {
				return err
			}
			log, err := logger.NewLogger(a.logLevel, "console", "nestctl")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		migrateCmd(a),
		seedCmd(a),
		importSheltersCmd(a),
		syncCmd(a),
		eventsCmd(a),
	)
	return cmd
}

// openStore 运维命令只操作真实数据库
func (a *app) openStore() (*sql.DB, repository.Store, error) {
	db, err := database.NewPostgresDB(&a.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, repository.NewPostgresStore(db), nil
}
