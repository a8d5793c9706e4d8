package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quailyquaily/pagefix/internal/config"
	"github.com/quailyquaily/pagefix/internal/logutil"
	"github.com/quailyquaily/pagefix/internal/ops"
	"github.com/quailyquaily/pagefix/internal/pdfsub"
	"github.com/quailyquaily/pagefix/internal/telegram"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func newTelegramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Run the Telegram bot that rewrites received PDFs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			settings := config.FromViper()
			loader := config.NewLoader(settings)
			if err := loader.Validate(); err != nil {
				return fmt.Errorf("startup config: %w", err)
			}

			token, err := loader.Token()
			if err != nil {
				return err
			}
			userID, err := loader.AuthorizedUserID()
			if err != nil {
				return err
			}

			engine := pdfsub.NewEngine(logger)
			sess, err := telegram.New(telegram.Config{
				Token: token,
				Authorize: func(id int64) bool {
					return id == userID
				},
				PollTimeout:    settings.PollTimeout,
				MaxConcurrency: settings.MaxConcurrency,
			}, loader, engine, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(runCtx)
			g.Go(func() error {
				return sess.Run(ctx)
			})
			if settings.OpsEnabled {
				srv := ops.NewServer(settings.OpsBind, logger)
				g.Go(func() error {
					return srv.Run(ctx)
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().String("token-file", "", "Path to the bot token file.")
	cmd.Flags().String("user-id-file", "", "Path to the authorized user id file.")
	cmd.Flags().String("rules-file", "", "Path to the substitution rules file.")
	cmd.Flags().Duration("poll-timeout", 0, "Long-poll timeout for getUpdates.")
	cmd.Flags().Int("max-concurrency", 0, "Documents processed at once.")
	cmd.Flags().Bool("ops-enabled", true, "Serve /healthz and /version.")
	cmd.Flags().String("ops-bind", "", "Ops listen address.")

	_ = viper.BindPFlag("telegram.token_file", cmd.Flags().Lookup("token-file"))
	_ = viper.BindPFlag("telegram.user_id_file", cmd.Flags().Lookup("user-id-file"))
	_ = viper.BindPFlag("rules.file", cmd.Flags().Lookup("rules-file"))
	_ = viper.BindPFlag("telegram.poll_timeout", cmd.Flags().Lookup("poll-timeout"))
	_ = viper.BindPFlag("telegram.max_concurrency", cmd.Flags().Lookup("max-concurrency"))
	_ = viper.BindPFlag("ops.enabled", cmd.Flags().Lookup("ops-enabled"))
	_ = viper.BindPFlag("ops.bind", cmd.Flags().Lookup("ops-bind"))

	return cmd
}
