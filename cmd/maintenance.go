package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var autoCompleteDays int

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "訂單維運工作",
}

var autoCompleteCmd = &cobra.Command{
	Use:   "auto-complete",
	Short: "將超過天數仍為shipped的訂單標記為completed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		days := a.cfg.Orders.AutoCompleteDays
		if cmd.Flags().Changed("days") {
			days = autoCompleteDays
		}

		result, err := a.orders.AutoCompleteStaleOrders(cmd.Context(), days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已完成 %d 筆訂單 (截止時間 %s)\n",
			len(result.OrderIDs), result.Cutoff.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "會員資格維運工作",
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute <userID>",
	Short: "重新計算指定使用者的會員資格",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || userID == 0 {
			return fmt.Errorf("userID格式錯誤: %q", args[0])
		}

		a, err := bootApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.membership.Evaluate(cmd.Context(), uint(userID))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "使用者 %s 會員: %t (近期已完成訂單 %d 筆, 變更: %t)\n",
			result.Username, result.IsMember, result.CompletedOrders, result.Changed)
		return nil
	},
}

func init() {
	autoCompleteCmd.Flags().IntVar(&autoCompleteDays, "days", 15, "出貨超過幾天自動完成")
	ordersCmd.AddCommand(autoCompleteCmd)
	membersCmd.AddCommand(recomputeCmd)
}
