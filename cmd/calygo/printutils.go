package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/calygofire/calygo"
)

type color string

const (
	colorRed    color = "\033[31m"
	colorGreen  color = "\033[32m"
	colorYellow color = "\033[33m"
	colorCyan   color = "\033[36m"
	colorReset  color = "\033[0m"
	dash              = '─'
)

var faintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(false)

func line(length int) string {
	return strings.Repeat(string(dash), max(length, 0))
}

func colorize(c color, s string) string {
	return string(c) + s + string(colorReset)
}

func statusColor(s calygo.AddressStatus) color {
	switch s {
	case calygo.StatusSold:
		return colorGreen
	case calygo.StatusRefused:
		return colorRed
	case calygo.StatusRevisit, calygo.StatusAbsent:
		return colorYellow
	}
	return colorReset
}

func formatStop(n int, a calygo.ExistingAddressRecord) string {
	return fmt.Sprintf("%2d. #%d %s %s", n, a.ID, a.FullAddress, colorize(statusColor(a.Status), string(a.Status)))
}

func formatTournee(t calygo.ExistingTourneeRecord) string {
	return fmt.Sprintf("%s [%s] %s, %d stops", t.ScheduledDate.Format(dateFormat), t.Status, t.Name, len(t.AddressIDs))
}

func formatConnectivity(online bool, pending int) string {
	state := colorize(colorGreen, "online")
	if !online {
		state = colorize(colorRed, "offline")
	}
	if pending == 0 {
		return state
	}
	return fmt.Sprintf("%s %s", state, colorize(colorYellow, fmt.Sprintf("(%d pending)", pending)))
}
