// SPDX-License-Identifier: MIT
/*
Package tui renders the running visualization in the terminal with Bubble
Tea. It is a pure consumer: each render tick it drains the latest frame,
applies it to the display meters, advances the physics clock and redraws.
*/
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vizmon/internal/monitor"
	"vizmon/internal/viz"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065"))

	hotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D94F4F"))

	capStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))
)

// Meter bars span the full bracket range; the top three segments render hot.
const (
	meterSegments = 19
	hotFrom       = 16
	histHeight    = 12
)

type tickMsg time.Time

// MeterModel is the Bubble Tea model driving the meter display.
type MeterModel struct {
	session *monitor.Session
	tick    time.Duration
	width   int

	// frame bookkeeping shown in the footer
	frames uint64
	idle   bool
}

// NewMeterModel builds the display model for a running session.
func NewMeterModel(session *monitor.Session, renderTick time.Duration) MeterModel {
	if renderTick <= 0 {
		renderTick = 33 * time.Millisecond
	}
	return MeterModel{session: session, tick: renderTick, width: 80}
}

func (m MeterModel) Init() tea.Cmd {
	return m.scheduleTick()
}

func (m MeterModel) scheduleTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		now := time.Time(msg)
		meters := m.session.Meters()
		if frame := m.session.TryTakeLatestFrame(); frame != nil {
			meters.Apply(frame, now)
			m.frames++
			m.idle = false
		} else {
			m.idle = true
		}
		meters.Tick(now)
		return m, m.scheduleTick()
	}

	return m, nil
}

func (m MeterModel) View() string {
	var b strings.Builder

	kind := m.session.Kind()
	b.WriteString(titleStyle.Render("vizmon"))
	b.WriteString("  ")
	b.WriteString(labelStyle.Render(kind.String()))
	b.WriteString("\n\n")

	meters := m.session.Meters()

	switch kind {
	case viz.VuMono, viz.PeakMono:
		b.WriteString(renderChannel("M", meters.MonoLevel(), meters.MonoHold()))
	case viz.VuStereo, viz.PeakStereo:
		b.WriteString(renderChannel("L", meters.LeftLevel(), meters.LeftHold()))
		b.WriteString(renderChannel("R", meters.RightLevel(), meters.RightHold()))
	case viz.VuStereoWithCenterPeak:
		b.WriteString(renderChannel("L", meters.LeftLevel(), meters.LeftHold()))
		b.WriteString(renderChannel("C", meters.MonoLevel(), meters.MonoHold()))
		b.WriteString(renderChannel("R", meters.RightLevel(), meters.RightHold()))
	case viz.HistMono:
		b.WriteString(renderSpectrum(meters.LeftBars(), meters.LeftCaps()))
	case viz.HistStereo:
		b.WriteString(renderSpectrum(meters.LeftBars(), meters.LeftCaps()))
		b.WriteString("\n")
		b.WriteString(renderSpectrum(meters.RightBars(), meters.RightCaps()))
	default:
		b.WriteString(dimStyle.Render("visualization off"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	status := fmt.Sprintf("frames %d", m.frames)
	if m.idle {
		status += "  (idle)"
	}
	b.WriteString(labelStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q to quit"))
	b.WriteString("\n")

	return b.String()
}

// renderChannel draws one horizontal meter row. level and hold are bracket
// indices; the hold marker overwrites its segment.
func renderChannel(label string, level, hold int) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(label))
	b.WriteString(" ")

	for i := 0; i < meterSegments; i++ {
		switch {
		case i == hold && hold > 0:
			b.WriteString(capStyle.Render("▌"))
		case i < level && i >= hotFrom:
			b.WriteString(hotStyle.Render("█"))
		case i < level:
			b.WriteString(barStyle.Render("█"))
		default:
			b.WriteString(dimStyle.Render("·"))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// renderSpectrum draws vertical band columns, tallest row first. Bar values
// are 0..48 and get scaled to the fixed display height; caps render as a
// floating segment above the bar.
func renderSpectrum(bars, caps []int) string {
	rows := make([]int, len(bars))
	capRows := make([]int, len(caps))
	for i := range bars {
		rows[i] = scaleBand(bars[i])
		capRows[i] = scaleBand(caps[i])
	}

	var b strings.Builder
	for row := histHeight; row >= 1; row-- {
		for i := range rows {
			switch {
			case capRows[i] == row && capRows[i] > rows[i]:
				b.WriteString(capStyle.Render("▔▔"))
			case rows[i] >= row:
				if row > histHeight*3/4 {
					b.WriteString(hotStyle.Render("██"))
				} else {
					b.WriteString(barStyle.Render("██"))
				}
			default:
				b.WriteString(dimStyle.Render(" ·"))
			}
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func scaleBand(level int) int {
	// Band levels run 0..48.
	rows := (level*histHeight + 47) / 48
	if rows > histHeight {
		rows = histHeight
	}
	return rows
}

// Run blocks running the meter UI until the user quits.
func Run(session *monitor.Session, renderTick time.Duration) error {
	p := tea.NewProgram(NewMeterModel(session, renderTick), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
