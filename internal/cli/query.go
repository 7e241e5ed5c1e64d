package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hotel-rate-intel/internal/app"
)

var (
	opportunityLimit int
	weeklyLimit      int
	weeklyMonth      bool
	collectHotel     []string
)

var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "采集实时价格并列出最佳预订机会",
	RunE: func(cmd *cobra.Command, args []string) error {
		if opportunityLimit < 0 {
			return fmt.Errorf("--limit cannot be negative")
		}
		return getApp().Opportunities(cmd.Context(), app.ShowOptions{Limit: opportunityLimit})
	},
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "列出未来 30 天的季节性最佳日期",
	RunE: func(cmd *cobra.Command, args []string) error {
		if weeklyMonth {
			return getApp().CurrentMonth()
		}
		if weeklyLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().Weekly(app.ShowOptions{Limit: weeklyLimit})
	},
}

var cityCmd = &cobra.Command{
	Use:   "city <name>",
	Short: "显示城市内酒店的月度季节性价格",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().City(app.ShowOptions{City: args[0]})
	},
}

var hotelsCmd = &cobra.Command{
	Use:   "hotels",
	Short: "列出监控的酒店",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Hotels()
	},
}

var windowCmd = &cobra.Command{
	Use:   "window <hotel-id>",
	Short: "采集实时价格并分析酒店的预订窗口",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Window(cmd.Context(), app.ShowOptions{Hotel: args[0]})
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "采集一次实时价格并打印观测结果",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Collect(cmd.Context(), app.ShowOptions{Hotels: collectHotel})
	},
}

func init() {
	opportunitiesCmd.Flags().IntVar(&opportunityLimit, "limit", 5, "Maximum opportunities to display")
	weeklyCmd.Flags().IntVar(&weeklyLimit, "limit", 10, "Maximum suggestions to display")
	weeklyCmd.Flags().BoolVar(&weeklyMonth, "this-month", false, "Show this month's strong seasonal deals instead")
	collectCmd.Flags().StringSliceVar(&collectHotel, "hotel", nil, "Hotel ids to collect (defaults to the whole catalog)")
}
