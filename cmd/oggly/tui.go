// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ik5/oggly/audio"
	"github.com/ik5/oggly/playback"
)

const (
	volumeStep  = 0.1
	speedStep   = 0.25
	refreshRate = 100 * time.Millisecond
)

// controller is the part of a playback session the player view drives.
type controller interface {
	State() playback.State
	Format() audio.Format
	Parameters() playback.Parameters
	Elapsed() time.Duration
	Done() <-chan struct{}
	Err() error
	Pause() error
	Resume() error
	Stop()
	SetVolume(float64) error
	SetSpeed(float64) error
}

type (
	tickMsg  time.Time
	stateMsg playback.State
	doneMsg  struct{}
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Faint(true).Width(8)
	stateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// playerModel is the interactive view of one session.
type playerModel struct {
	ctl     controller
	name    string
	states  <-chan playback.State
	state   playback.State
	params  playback.Parameters
	format  audio.Format
	elapsed time.Duration
	notice  string
	done    bool
}

func newPlayerModel(ctl controller, name string, states <-chan playback.State) playerModel {
	return playerModel{
		ctl:    ctl,
		name:   name,
		states: states,
		state:  ctl.State(),
		params: ctl.Parameters(),
	}
}

func (m playerModel) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitState(), m.waitDone())
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m playerModel) waitState() tea.Cmd {
	if m.states == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-m.states:
			return stateMsg(s)
		case <-m.ctl.Done():
			return nil
		}
	}
}

func (m playerModel) waitDone() tea.Cmd {
	return func() tea.Msg {
		<-m.ctl.Done()
		return doneMsg{}
	}
}

func (m playerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		m.refresh()
		if m.done {
			return m, nil
		}
		return m, tick()
	case stateMsg:
		m.state = playback.State(msg)
		return m, m.waitState()
	case doneMsg:
		m.refresh()
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *playerModel) refresh() {
	m.state = m.ctl.State()
	m.params = m.ctl.Parameters()
	m.format = m.ctl.Format()
	m.elapsed = m.ctl.Elapsed()
}

func (m playerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.ctl.Stop()
		m.notice = "stopping"
		return m, nil
	case " ", "p":
		if m.ctl.State() == playback.Paused {
			err = m.ctl.Resume()
		} else {
			err = m.ctl.Pause()
		}
	case "+", "=", "up":
		err = m.ctl.SetVolume(m.ctl.Parameters().Volume + volumeStep)
	case "-", "down":
		err = m.ctl.SetVolume(max(m.ctl.Parameters().Volume-volumeStep, 0))
	case "]", "right":
		err = m.ctl.SetSpeed(m.ctl.Parameters().Speed + speedStep)
	case "[", "left":
		err = m.ctl.SetSpeed(m.ctl.Parameters().Speed - speedStep)
	case "r":
		err = errors.Join(m.ctl.SetVolume(1), m.ctl.SetSpeed(1))
	default:
		return m, nil
	}

	m.notice = ""
	if err != nil {
		m.notice = err.Error()
	}
	m.refresh()
	return m, nil
}

func (m playerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("oggly "+m.name) + "\n\n")
	b.WriteString(labelStyle.Render("State") + stateStyle.Render(m.state.String()) + "\n")
	if m.format.Container != "" {
		b.WriteString(labelStyle.Render("Format") + fmt.Sprintf("%s %dHz %dch %d-bit",
			m.format.Container, m.format.SampleRate, m.format.Channels, m.format.BitDepth) + "\n")
	}
	b.WriteString(labelStyle.Render("Time") + m.elapsed.Truncate(100*time.Millisecond).String() + "\n")
	b.WriteString(labelStyle.Render("Volume") + fmt.Sprintf("%s %.2f", bar(m.params.Volume, 2, 20), m.params.Volume) + "\n")
	b.WriteString(labelStyle.Render("Speed") + fmt.Sprintf("%.2fx", m.params.Speed) + "\n")

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("space:pause  +/-:volume  [/]:speed  r:reset  q:stop") + "\n")

	return b.String()
}

// bar renders v out of full as a gauge width cells wide.
func bar(v, full float64, width int) string {
	filled := int(v / full * float64(width))
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// runInteractive shows the player view for s until the session ends.
func runInteractive(ctx context.Context, s controller, name string, states <-chan playback.State, in io.Reader, out io.Writer) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}

	p := tea.NewProgram(newPlayerModel(s, name, states), opts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		s.Stop()
		<-s.Done()
		return fmt.Errorf("interactive view: %w", err)
	}

	<-s.Done()
	return s.Err()
}
