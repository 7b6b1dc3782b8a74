package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abelzeko/ecms-bot/internal/api"
	"github.com/abelzeko/ecms-bot/internal/integration"
	"github.com/abelzeko/ecms-bot/internal/usecases"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long:  "Runs the Telegram front end. When telegram.digest_chat_id is set the count digest is also scheduled into that chat.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Telegram.Token == "" {
			return eris.New("telegram.token is not set (ECMS_TELEGRAM_TOKEN)")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		fetcher := integration.NewImageFetcher(30*time.Second, 0)
		telegramBot, err := api.NewTelegramBot(cfg.Telegram.Token, e.useCase, fetcher)
		if err != nil {
			return err
		}

		if cfg.Telegram.DigestChatID != 0 {
			digest := usecases.NewDigest(e.useCase, telegramBot.Notifier(cfg.Telegram.DigestChatID))
			if err := digest.Schedule(cfg.Digest.Schedule); err != nil {
				return err
			}
			defer digest.Stop()
		}

		zap.L().Info("starting ECMS bot")
		telegramBot.Start(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
