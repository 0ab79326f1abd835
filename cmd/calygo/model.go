package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/calygofire/calygo"
	"github.com/calygofire/calygo/offline"
)

const logo = `
	 ██████╗ █████╗ ██╗  ██╗   ██╗ ██████╗  ██████╗
	██╔════╝██╔══██╗██║  ╚██╗ ██╔╝██╔════╝ ██╔═══██╗
	██║     ███████║██║   ╚████╔╝ ██║  ███╗██║   ██║
	██║     ██╔══██║██║    ╚██╔╝  ██║   ██║██║   ██║
	╚██████╗██║  ██║███████╗██║   ╚██████╔╝╚██████╔╝
	 ╚═════╝╚═╝  ╚═╝╚══════╝╚═╝    ╚═════╝  ╚═════╝`

const commandHelp = `COMMANDS:
  /s <addressID> <amount> <method>: record a sale (amount in euros)
  /v <addressID> <status>: record a visit (sold, refused, revisit, absent)
  /t <name> <YYYY-MM-DD> <id,id,...>: plan a tournée in walking order
  /y: sync queued writes now
  /r: reload tournées

  /h: show this help
`

const savedOffline = "saved offline, will sync"

// syncQueue is the part of the offline queue the program drives directly.
type syncQueue interface {
	IsOnline() bool
	PendingCount() int
	Flush(ctx context.Context) (int, error)
}

type model struct {
	// children
	vp        viewport.Model
	userinput textinput.Model

	// supplied
	l     calygo.Logger
	svc   FieldSvc
	queue syncQueue

	// state
	tournee   *calygo.ExistingTourneeRecord
	addresses map[int]calygo.ExistingAddressRecord
	online    bool
	pending   int
	alerts    []string
	quitting  bool
	h         int

	// configuration
	cmdTimeout time.Duration
}

func newModel(l calygo.Logger, svc FieldSvc, queue syncQueue, cmdTimeout time.Duration) model {
	userinput := textinput.New()
	userinput.Focus()
	userinput.CharLimit = 280
	userinput.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))

	return model{
		l:          l,
		svc:        svc,
		queue:      queue,
		addresses:  make(map[int]calygo.ExistingAddressRecord),
		online:     queue.IsOnline(),
		pending:    queue.PendingCount(),
		cmdTimeout: cmdTimeout,
		userinput:  userinput,
		vp:         viewport.New(0, 0),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadTournees, textinput.Blink)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var tiCmd, vpCmd, cmd tea.Cmd

	m, cmd = m.updateParent(msg)

	// update children

	m.userinput, tiCmd = m.userinput.Update(msg)

	switch msg.(type) {
	case tea.KeyMsg:
		// vp updates on KeyMsg cause the view to flicker
	default:
		m.vp, vpCmd = m.vp.Update(msg)
	}

	return m, tea.Batch(tiCmd, vpCmd, cmd)
}

func (m model) updateParent(msg tea.Msg) (model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.h = msg.Height
		m.userinput.Width = msg.Width
		m.vp.Width = msg.Width
		m.refresh()
		return m, nil
	case QueueEventMsg:
		m.online = msg.event.IsOnline
		m.pending = msg.event.Pending
		if msg.event.Kind == offline.EventConnectivity && m.online && m.tournee == nil {
			return m, m.loadTournees
		}
		m.refresh()
		return m, nil
	case InitTourneesMsg:
		for _, a := range msg.addresses {
			m.addresses[a.ID] = a
		}
		m.tournee = currentTournee(msg.tournees)
		m.refresh()
		return m, nil
	case WriteMsg:
		if msg.queued {
			m.addAlert(fmt.Sprintf("%s %s", msg.what, savedOffline), colorYellow)
		} else {
			m.addAlert(msg.what+" saved", colorGreen)
		}
		m.refresh()
		return m, nil
	case PlanMsg:
		m.tournee = &calygo.ExistingTourneeRecord{TourneeRecord: msg.plan.Tournee}
		m.addAlert(fmt.Sprintf("planned %d stops, %.2f km", len(msg.plan.Tournee.AddressIDs), msg.plan.DistanceKm), colorGreen)
		if len(msg.plan.Skipped) > 0 {
			m.addAlert(fmt.Sprintf("skipped without coordinates: %v", msg.plan.Skipped), colorYellow)
		}
		if len(msg.plan.OutsideArea) > 0 {
			m.addAlert(fmt.Sprintf("outside the canvassing area: %v", msg.plan.OutsideArea), colorYellow)
		}
		if msg.plan.Queued {
			m.addAlert("tournée "+savedOffline, colorYellow)
		}
		m.refresh()
		return m, nil
	case FlushMsg:
		m.addAlert(fmt.Sprintf("synced %d queued writes", msg.removed), colorGreen)
		m.refresh()
		return m, nil
	case AlertMsg:
		m.addAlert(msg.err.Error(), colorRed)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			input := m.userinput.Value()
			m.userinput.Reset()
			if input == "" {
				return m, nil
			}

			var cmd tea.Cmd
			m.alerts = nil
			m, cmd = m.handleInput(input)
			m.refresh()
			return m, cmd
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) handleInput(input string) (model, tea.Cmd) {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch parts[0] {
	case "/s":
		args, err := parseSale(arg)
		if err != nil {
			m.addAlert(err.Error(), colorYellow)
			return m, nil
		}
		m.setStatus(args.addressID, calygo.StatusSold)
		return m, func() tea.Msg {
			timeout, cancel := m.newTimeout()
			defer cancel()
			res, err := m.svc.RecordSale(timeout, args.addressID, args.amount, args.paymentMethod)
			if err != nil {
				return AlertMsg{err: err}
			}
			return WriteMsg{what: "sale of " + formatAmount(args.amount), queued: res.Queued}
		}
	case "/v":
		args, err := parseVisit(arg)
		if err != nil {
			m.addAlert(err.Error(), colorYellow)
			return m, nil
		}
		m.setStatus(args.addressID, args.status)
		return m, func() tea.Msg {
			timeout, cancel := m.newTimeout()
			defer cancel()
			res, err := m.svc.RecordVisit(timeout, args.addressID, args.status)
			if err != nil {
				return AlertMsg{err: err}
			}
			return WriteMsg{what: "visit", queued: res.Queued}
		}
	case "/t":
		args, err := parseTournee(arg)
		if err != nil {
			m.addAlert(err.Error(), colorYellow)
			return m, nil
		}
		return m, func() tea.Msg {
			timeout, cancel := m.newTimeout()
			defer cancel()
			plan, err := m.svc.PlanTournee(timeout, args.name, args.date, args.addressIDs)
			if err != nil {
				return AlertMsg{err: err}
			}
			return PlanMsg{plan: plan}
		}
	case "/y":
		if !m.online {
			m.addAlert("offline, writes will sync when the server is back", colorYellow)
			return m, nil
		}
		return m, func() tea.Msg {
			// replay attempts carry their own timeout
			removed, err := m.queue.Flush(context.Background())
			if err != nil {
				return AlertMsg{err: err}
			}
			return FlushMsg{removed: removed}
		}
	case "/r":
		return m, m.loadTournees
	case "/h":
		m.addAlert(commandHelp, colorYellow)
		return m, nil
	}

	m.addAlert(fmt.Sprintf("unknown command %q, enter /h for help", parts[0]), colorYellow)
	return m, nil
}

func (m model) loadTournees() tea.Msg {
	timeout, cancel := m.newTimeout()
	defer cancel()

	tournees, err := m.svc.GetTournees(timeout)
	if errors.Is(err, offline.ErrOffline) {
		return alertMsg("offline, tournées will load when the server is back")
	}
	if err != nil {
		return AlertMsg{err: err}
	}
	addresses, err := m.svc.GetAddresses(timeout)
	if err != nil {
		return AlertMsg{err: err}
	}

	return InitTourneesMsg{
		tournees:  tournees,
		addresses: addresses,
	}
}

// currentTournee picks the earliest tournée still to be walked.
func currentTournee(tournees []calygo.ExistingTourneeRecord) *calygo.ExistingTourneeRecord {
	var current *calygo.ExistingTourneeRecord
	for i := range tournees {
		t := &tournees[i]
		if t.Status != calygo.TourneePlanned && t.Status != calygo.TourneeInProgress {
			continue
		}
		if current == nil || t.ScheduledDate.Before(current.ScheduledDate) {
			current = t
		}
	}
	return current
}

// setStatus updates the local view of an address ahead of the server.
func (m *model) setStatus(addressID int, status calygo.AddressStatus) {
	if a, ok := m.addresses[addressID]; ok {
		a.Status = status
		m.addresses[addressID] = a
	}
}

func (m model) View() string {
	return lipgloss.JoinVertical(0, m.vp.View(), m.renderFooter())
}

func (m model) renderTournee() string {
	if m.tournee == nil {
		return faintStyle.Render("no tournée planned")
	}

	lines := []string{
		colorize(colorCyan, formatTournee(*m.tournee)),
		faintStyle.Render(line(m.vp.Width)),
	}
	for i, id := range m.tournee.AddressIDs {
		a, ok := m.addresses[id]
		if !ok {
			a = calygo.ExistingAddressRecord{ID: id}
		}
		lines = append(lines, formatStop(i+1, a))
	}
	return strings.Join(lines, "\n")
}

func (m model) renderFooter() string {
	if m.quitting {
		return ""
	}

	var footer strings.Builder
	footer.WriteRune('\n')
	footer.WriteString(m.userinput.View())
	footer.WriteString("\n\n")
	footer.WriteString(formatConnectivity(m.online, m.pending))
	footer.WriteString("\n\n")

	if len(m.alerts) > 0 {
		footer.WriteString(strings.Join(m.alerts, "\n"))
		footer.WriteString("\n\n")
	} else {
		footer.WriteString(faintStyle.Render("(ctrl+c to quit)"))
		footer.WriteRune('\n')
	}

	return footer.String()
}

func (m *model) refresh() {
	content := m.renderTournee()
	m.vp.SetContent(content)
	footerHeight := lipgloss.Height(m.renderFooter())
	m.vp.Height = max(0, min(lipgloss.Height(content), m.h-footerHeight))
}

func (m model) newTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.cmdTimeout)
}

func (m *model) addAlert(alert string, c color) {
	m.alerts = append(m.alerts, colorize(c, alert))
}
