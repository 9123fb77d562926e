package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"restaurant-pos-api/internal/models"
	"restaurant-pos-api/internal/notifications"
	"restaurant-pos-api/internal/wsclient"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

var priorityStyles = map[models.Priority]color.Style{
	models.PriorityUrgent: color.New(color.FgWhite, color.BgRed, color.OpBold),
	models.PriorityHigh:   color.New(color.FgRed, color.OpBold),
	models.PriorityMedium: color.New(color.FgYellow),
	models.PriorityLow:    color.New(color.FgGray),
}

func paint(p models.Priority, s string) string {
	style, ok := priorityStyles[p]
	if !ok {
		return s
	}
	return style.Render(s)
}

func stateLabel(s wsclient.State) string {
	switch s {
	case wsclient.StateConnected:
		return color.Green.Render(string(s))
	case wsclient.StateConnecting:
		return color.Yellow.Render(string(s))
	default:
		return color.Red.Render(string(s))
	}
}

// render draws the status line, live toasts and the visible notifications.
func render(w io.Writer, restaurantID string, state wsclient.State, store *notifications.Store, now time.Time) {
	fmt.Fprintf(w, "Restaurant %s  [%s]  unread: %d\n",
		restaurantID, stateLabel(state), store.UnreadCount())

	for _, t := range store.Toasts() {
		fmt.Fprintf(w, "  %s %s\n", paint(t.Priority, "▶ "+t.Title), t.Message)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Priority", "Type", "Title", "Message", "Age", "Read"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for i, n := range store.Visible() {
		read := ""
		if n.Read {
			read = "✓"
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			paint(n.Priority, string(n.Priority)),
			n.Type,
			n.Title,
			n.Message,
			age(now.Sub(n.CreatedAt)),
			read,
		})
	}
	table.Render()
}

func age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
