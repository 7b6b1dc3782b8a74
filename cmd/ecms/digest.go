package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abelzeko/ecms-bot/internal/api"
	"github.com/abelzeko/ecms-bot/internal/integration"
	"github.com/abelzeko/ecms-bot/internal/usecases"
)

var digestOnce bool

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Report record counts on a schedule",
	Long:  "Logs the dashboard counts on digest.schedule and, when telegram.digest_chat_id is set, posts them to that chat.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		var notifier usecases.Notifier
		if cfg.Telegram.Token != "" && cfg.Telegram.DigestChatID != 0 {
			telegramBot, err := api.NewTelegramBot(cfg.Telegram.Token, e.useCase, integration.NewImageFetcher(0, 0))
			if err != nil {
				return err
			}
			notifier = telegramBot.Notifier(cfg.Telegram.DigestChatID)
		}

		digest := usecases.NewDigest(e.useCase, notifier)
		if digestOnce {
			return digest.Send(ctx)
		}

		if err := digest.Schedule(cfg.Digest.Schedule); err != nil {
			return err
		}
		<-ctx.Done()
		zap.L().Info("stopping digest")
		digest.Stop()
		return nil
	},
}

func init() {
	digestCmd.Flags().BoolVar(&digestOnce, "once", false, "send one digest now and exit")
	rootCmd.AddCommand(digestCmd)
}
