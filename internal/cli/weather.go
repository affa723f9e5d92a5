package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/services"
)

var (
	weatherCondition string
	weatherTempMax   float64
	weatherPrecip    float64
)

var weatherCmd = &cobra.Command{
	Use:   "weather <date>",
	Short: "Record the weather for a day",
	Long: `Record the weather for a day. Weather badges are re-evaluated afterwards.

Conditions: clear, clouds, rain, snow, storm, fog.

Example:
  stride weather 2024-05-14 --condition rain --precip 6.5 --temp 14`,
	Args: cobra.ExactArgs(1),
	RunE: runWeather,
}

func init() {
	weatherCmd.Flags().StringVar(&weatherCondition, "condition", models.WeatherClear, "weather condition")
	weatherCmd.Flags().Float64Var(&weatherTempMax, "temp", 0, "maximum temperature in °C")
	weatherCmd.Flags().Float64Var(&weatherPrecip, "precip", 0, "precipitation in mm")
}

func runWeather(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	achievements := services.NewAchievementService(a.store, nil)
	stop := achievements.Start()
	defer stop()

	day := models.WeatherDay{
		Date:            args[0],
		Condition:       weatherCondition,
		TempMaxC:        weatherTempMax,
		PrecipitationMM: weatherPrecip,
	}
	if err := a.store.PutWeather(day); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", day.Date, day.Condition)
	return nil
}
