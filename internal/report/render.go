package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Output formats accepted by Render.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Render writes the summary to w as aligned text tables or indented JSON.
func Render(w io.Writer, s Summary, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatTable, "":
		return renderTables(w, s)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func renderTables(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Cleaned trips: %d\n\n", s.Trips)

	fmt.Fprintln(tw, "RIDES BY HOUR")
	fmt.Fprintln(tw, "hour\trides\t")
	for _, r := range s.RidesByHour {
		fmt.Fprintf(tw, "%02d\t%d\t\n", r.Hour, r.Count)
	}

	fmt.Fprintln(tw, "\nWEEKDAY VS WEEKEND BY HOUR")
	fmt.Fprintln(tw, "day type\thour\trides\tshare %\t")
	for _, r := range s.WeekdayVsWeekendByHour {
		fmt.Fprintf(tw, "%s\t%02d\t%d\t%.2f\t\n", r.DayType, r.Hour, r.Count, r.Percentage)
	}

	fmt.Fprintln(tw, "\nAIRPORT RIDES BY DAY OF WEEK")
	fmt.Fprintln(tw, "day\tname\trides\t")
	for _, r := range s.AirportRides {
		fmt.Fprintf(tw, "%d\t%s\t%d\t\n", r.DayOfWeek, r.DayName, r.Count)
	}

	fmt.Fprintln(tw, "\nMEAN FARE BY PASSENGER COUNT")
	fmt.Fprintln(tw, "passengers\trides\tmean fare\t")
	for _, r := range s.FareByPassengerCount {
		fmt.Fprintf(tw, "%d\t%d\t%.2f\t\n", r.PassengerCount, r.Rides, r.MeanFare)
	}

	return tw.Flush()
}
