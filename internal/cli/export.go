package cli

import (
	"github.com/spf13/cobra"

	"hotel-rate-intel/internal/app"
)

var (
	exportPNGPath string
	exportCSVPath string
	exportHotel   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export opportunities as CSV and a hotel's seasonal curve as PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			PNGPath: exportPNGPath,
			CSVPath: exportCSVPath,
			HotelID: exportHotel,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write the seasonal PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write opportunities CSV")
	exportCmd.Flags().StringVar(&exportHotel, "hotel", "", "Hotel id charted in the PNG")
}
