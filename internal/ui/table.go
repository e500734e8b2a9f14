package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// ProbeResultRow is one guest's outcome in the probe table.
type ProbeResultRow struct {
	Peer         string
	Joined       bool
	Connected    bool
	SawHostLeave bool
	RTT          time.Duration
	Err          string
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

// FormatRTT renders a round trip time, or "-" when none was measured.
func FormatRTT(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})
}

// ProbeTableView renders the per-guest results.
func ProbeTableView(items []ProbeResultRow) string {
	if len(items) == 0 {
		return MutedStyle.Render("No guests")
	}

	headers := []string{"Guest", "Joined", "Connected", "RTT", "Host Leave", "Error"}

	var rows [][]string
	for _, item := range items {
		errText := item.Err
		if errText == "" {
			errText = "-"
		}
		rows = append(rows, []string{
			item.Peer,
			yesNo(item.Joined),
			yesNo(item.Connected),
			FormatRTT(item.RTT),
			yesNo(item.SawHostLeave),
			errText,
		})
	}

	return newTable(headers, rows).Render()
}

type ProbeSummary struct {
	URL      string
	RoomCode string
	HostID   string
	Mode     string
	Elapsed  time.Duration
	OK       bool
}

func ProbeSummaryView(s ProbeSummary) string {
	status := SuccessStyle.Render("PASS")
	if !s.OK {
		status = ErrorStyle.Render("FAIL")
	}

	content := fmt.Sprintf("%s Relay:    %s\n%s Room:     %s\n%s Host:     %s\n%s Mode:     %s\n%s Elapsed:  %s\n\nResult: %s",
		IconServer, MutedStyle.Render(s.URL),
		IconRoom, BoldStyle.Foreground(Primary).Render(s.RoomCode),
		IconHost, s.HostID,
		IconConnect, s.Mode,
		IconTime, s.Elapsed.Round(time.Millisecond),
		status,
	)
	return InfoBoxStyle.Render(content)
}
