package commands

// Command to run the monitor: Telegram alerts, commands and the liveness server
// Implements graceful shutdown on SIGINT/SIGTERM

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dex-sniper/bots_monitor"
	"dex-sniper/internal/infra/config"
	"dex-sniper/internal/infra/health"
	logging "dex-sniper/internal/infra/log"
	"dex-sniper/internal/observability"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runOnce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sniper monitor (Telegram + liveness endpoint)",
	Long: `Run the scheduler loop: inside the daily window scan DexScreener every few minutes,
send alerts and answer /stats and /top; outside it stay idle.`,
	RunE: runMonitor,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle regardless of the window and exit")
	runCmd.Flags().Int("port", 0, "liveness server port (env: PORT)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	active, _, err := cfg.Windows()
	if err != nil {
		return err
	}

	notifier, commands, err := initializeTelegram(cfg)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	status := health.NewStatus(time.Now())

	if !runOnce {
		if err := health.NewServer(cfg.App.Port, status, metrics.Registry).Start(ctx); err != nil {
			return err
		}
	}

	monitor := bots_monitor.NewSniperMonitor(bots_monitor.MonitorConfig{
		Active:         active,
		MaxAPIFailures: cfg.Session.MaxAPIFailures,
		MinInterval:    cfg.Session.MinInterval,
		MaxInterval:    cfg.Session.MaxInterval,
		IdleInterval:   cfg.Session.IdleInterval,
		Cooldown:       cfg.Session.Cooldown,
		CSVPath:        cfg.Export.CSVPath,
	}, newEngine(cfg), notifier, commands, status, metrics)

	if runOnce {
		logging.LogInfo("Running a single cycle")
		return monitor.RunOnce(ctx)
	}

	logging.LogSuccess("Sniper is running",
		zap.String("window", active.String()),
		zap.Int("port", cfg.App.Port))
	return monitor.Run(ctx)
}

func initializeTelegram(cfg *config.Config) (bots_monitor.Notifier, bots_monitor.CommandSource, error) {
	if cfg.Telegram.BotToken == "" {
		logging.LogWarn("TELEGRAM_BOT_TOKEN not set, alerts are logged only")
		return bots_monitor.NopNotifier{}, bots_monitor.NopNotifier{}, nil
	}

	chatIDs, err := cfg.TelegramChatIDs()
	if err != nil {
		return nil, nil, err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logging.LogInfo("Telegram bot authorized",
		zap.String("username", bot.Self.UserName),
		zap.Int("chats", len(chatIDs)))

	n := bots_monitor.NewTelegramNotifier(bot, chatIDs)
	return n, n, nil
}
