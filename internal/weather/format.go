package weather

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCase builds a Caser per call; a Caser keeps state and must not be
// shared between goroutines.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// FormatCurrent renders c for display in a chat client.
func FormatCurrent(c *Current) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current weather in %s, %s:\n", c.City, c.Country)
	fmt.Fprintf(&sb, "🌡️ Temperature: %.1f°C (feels like %.1f°C)\n", c.Temperature, c.FeelsLike)
	fmt.Fprintf(&sb, "☁️ Conditions: %s\n", titleCase(c.Description))
	fmt.Fprintf(&sb, "💧 Humidity: %d%%\n", c.Humidity)
	fmt.Fprintf(&sb, "🌬️ Wind: %g m/s\n", c.WindSpeed)
	fmt.Fprintf(&sb, "📊 Pressure: %d hPa", c.Pressure)
	if c.Visibility > 0 {
		fmt.Fprintf(&sb, "\n👁️ Visibility: %.1f km", float64(c.Visibility)/1000)
	}
	return sb.String()
}

// FormatForecast renders f as one block per day.
func FormatForecast(f *Forecast) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d-day weather forecast for %s, %s:\n", len(f.Days), f.City, f.Country)
	for _, d := range f.Days {
		fmt.Fprintf(&sb, "\n📅 %s:\n", d.Date)
		fmt.Fprintf(&sb, "   🌡️ %.1f°C - %.1f°C\n", d.TempMin, d.TempMax)
		fmt.Fprintf(&sb, "   ☁️ %s\n", titleCase(d.Description))
		fmt.Fprintf(&sb, "   💧 %d%% humidity\n", d.Humidity)
		fmt.Fprintf(&sb, "   🌬️ %.1f m/s wind\n", d.WindSpeed)
	}
	return strings.TrimRight(sb.String(), "\n")
}
