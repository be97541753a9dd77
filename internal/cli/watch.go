package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nigran/internal/client"
	"nigran/internal/config"
	"nigran/internal/models"

	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	var (
		serverURL string
		token     string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Attach to a running server and follow its telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			mirror := client.NewMirror()
			watcher := client.NewWatcher(serverURL, token, mirror, cfg.WatchdogTimeout)
			watcher.OnUpdate(printSummary)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = watcher.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&serverURL, "url", "u", "ws://localhost:8080/ws", "server websocket URL")
	cmd.Flags().StringVarP(&token, "token", "t", "", "session token (from /auth/token)")
	return cmd
}

// printSummary writes a one-line digest of the reconciled mirror state.
func printSummary(snap *models.Snapshot) {
	if snap == nil {
		return
	}

	cpu, mem, health := "-", "-", "-"
	if snap.CPU != nil {
		cpu = fmt.Sprintf("%.1f%%", snap.CPU.UsagePercent)
	}
	if snap.Memory != nil {
		mem = fmt.Sprintf("%.1f%%", snap.Memory.UsedPercent)
	}
	if snap.Health != nil {
		health = fmt.Sprintf("%.0f (%s)", snap.Health.Score, snap.Health.Status)
	}

	fmt.Printf("%s  cpu %s  mem %s  health %s\n",
		snap.Timestamp.Format("15:04:05"), cpu, mem, health)
}
