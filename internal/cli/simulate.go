package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateHotel string
	simulateRate  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次酒店降价并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateHotel == "" {
			return errors.New("--hotel 必须指定")
		}
		if simulateRate <= 0 {
			return errors.New("--rate 必须大于 0")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateHotel, simulateRate)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateHotel, "hotel", "", "酒店 id")
	simulateCmd.Flags().Float64Var(&simulateRate, "rate", 0, "模拟的当前房价")
}
