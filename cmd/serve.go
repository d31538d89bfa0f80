package cmd

import (
	"OnlineStore/routers"
	"OnlineStore/services"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "啟動HTTP伺服器與定期自動完成訂單",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		gin.SetMode(a.cfg.Server.Mode)
		server := &http.Server{
			Addr:              a.cfg.Server.Addr,
			Handler:           routers.SetupRouters(a.routerDependencies()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			a.log.Info("伺服器啟動", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			a.log.Info("正在關閉伺服器")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		g.Go(func() error {
			runAutoComplete(ctx, a.orders, a.cfg.Orders.AutoCompleteDays, a.cfg.Orders.AutoCompleteInterval, a.log)
			return nil
		})

		return g.Wait()
	},
}

// runAutoComplete 每隔interval執行一次逾期訂單自動完成，直到ctx結束
func runAutoComplete(ctx context.Context, orders *services.OrderService, days int, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		log.Info("未啟用定期自動完成訂單")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := orders.AutoCompleteStaleOrders(ctx, days)
			if err != nil {
				log.Error("自動完成訂單失敗", "error", err)
				continue
			}
			if len(result.OrderIDs) > 0 {
				log.Info("已自動完成逾期訂單", "count", len(result.OrderIDs), "cutoff", result.Cutoff)
			}
		}
	}
}
