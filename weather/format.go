package weather

import (
	"fmt"
	"strings"
)

// FormatAlerts renders active alerts as the plain text a tool response
// carries. An empty list is a normal outcome, not an error.
func FormatAlerts(state string, alerts []Alert) string {
	state = strings.ToUpper(strings.TrimSpace(state))
	if len(alerts) == 0 {
		return fmt.Sprintf("No active alerts for %s.", state)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active alerts for %s:\n\n", state)
	for _, a := range alerts {
		fmt.Fprintf(&b, "Event: %s\n", orUnknown(a.Event))
		fmt.Fprintf(&b, "Area: %s\n", orUnknown(a.AreaDesc))
		fmt.Fprintf(&b, "Severity: %s\n", orUnknown(a.Severity))
		fmt.Fprintf(&b, "Status: %s\n", orUnknown(a.Status))
		if a.Headline != "" {
			fmt.Fprintf(&b, "Headline: %s\n", a.Headline)
		}
		b.WriteString("---\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatForecast renders forecast periods as plain text.
func FormatForecast(periods []ForecastPeriod) string {
	if len(periods) == 0 {
		return "No forecast data available."
	}

	var b strings.Builder
	for _, p := range periods {
		fmt.Fprintf(&b, "%s:\n", orUnknown(p.Name))
		fmt.Fprintf(&b, "Temperature: %d°%s\n", p.Temperature, orUnknown(p.TemperatureUnit))
		fmt.Fprintf(&b, "Wind: %s %s\n", orUnknown(p.WindSpeed), p.WindDirection)
		fmt.Fprintf(&b, "%s\n", orUnknown(p.DetailedForecast))
		b.WriteString("---\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
