// Package tui renders the phone in the terminal: a keypad with a digital
// display while idle, and an in-call view with a speech visualizer once a
// connection is up. All call logic lives in the controller; the model
// only forwards keys and paints snapshots.
package tui

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/timedial/timephone/internal/call"
	"github.com/timedial/timephone/internal/directory"
	"github.com/timedial/timephone/internal/history"
)

const (
	animInterval = 100 * time.Millisecond
	shakeFrames  = 6
	visualBars   = 7
	recentShown  = 3
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("51")).
			Padding(1, 3)

	liveFrameStyle = frameStyle.
			BorderForeground(lipgloss.Color("42"))

	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	displayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("159")).
			Background(lipgloss.Color("17")).
			Padding(0, 2).
			Width(22).
			Align(lipgloss.Center)

	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	keypadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	liveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	eraStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// HistorySource supplies the recent-calls footer.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

type stateMsg call.State

type animMsg time.Time

type recentMsg []history.Entry

// Model is the bubbletea model for the phone.
type Model struct {
	ctrl *call.Controller
	dir  *directory.Directory
	hist HistorySource

	state  call.State
	recent []history.Entry

	lastShakeSeq int
	shakeLeft    int
	lastStatus   call.Status
	ticks        int
	bars         [visualBars]int
}

// New builds the model. hist may be nil to disable the footer.
func New(ctrl *call.Controller, dir *directory.Directory, hist HistorySource) Model {
	m := Model{ctrl: ctrl, dir: dir, hist: hist, state: ctrl.State()}
	m.lastStatus = m.state.Status
	for i := range m.bars {
		m.bars[i] = 1
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.ctrl), animTick(), m.loadRecent())
}

func waitForUpdate(ctrl *call.Controller) tea.Cmd {
	return func() tea.Msg {
		<-ctrl.Updates()
		return stateMsg(ctrl.State())
	}
}

func animTick() tea.Cmd {
	return tea.Tick(animInterval, func(t time.Time) tea.Msg { return animMsg(t) })
}

func (m Model) loadRecent() tea.Cmd {
	if m.hist == nil {
		return nil
	}
	hist := m.hist
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		entries, err := hist.Recent(ctx, recentShown)
		if err != nil {
			return recentMsg(nil)
		}
		return recentMsg(entries)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		prev := m.lastStatus
		m.state = call.State(msg)
		m.lastStatus = m.state.Status
		if m.state.ShakeSeq != m.lastShakeSeq {
			m.lastShakeSeq = m.state.ShakeSeq
			m.shakeLeft = shakeFrames
		}
		cmds := []tea.Cmd{waitForUpdate(m.ctrl)}
		// A call just ended; refresh the footer.
		if prev == call.StatusConnected && m.state.Status == call.StatusIdle {
			cmds = append(cmds, m.loadRecent())
		}
		return m, tea.Batch(cmds...)

	case animMsg:
		m.ticks++
		if m.shakeLeft > 0 {
			m.shakeLeft--
		}
		if m.state.Status == call.StatusConnected && m.state.RemoteSpeaking {
			for i := range m.bars {
				m.bars[i] = 1 + rand.Intn(5)
			}
		} else {
			for i := range m.bars {
				m.bars[i] = 1
			}
		}
		return m, animTick()

	case recentMsg:
		m.recent = []history.Entry(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.ctrl.EndCall()
		return m, tea.Quit

	case "backspace":
		m.ctrl.Backspace()
		return m, nil

	case "esc":
		if m.state.Status == call.StatusIdle {
			m.ctrl.ClearDialed()
		} else {
			m.ctrl.EndCall()
		}
		return m, nil

	case "h":
		if m.state.Status != call.StatusIdle {
			m.ctrl.EndCall()
		}
		return m, nil

	case "*":
		m.ctrl.Randomize()
		return m, nil

	case "#", "enter":
		if m.state.Status == call.StatusIdle {
			m.ctrl.PlaceCall()
		} else {
			m.ctrl.EndCall()
		}
		return m, nil
	}

	if r := msg.Runes; len(r) == 1 && r[0] >= '0' && r[0] <= '9' {
		m.ctrl.Press(r[0])
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state.Status {
	case call.StatusConnecting, call.StatusConnected:
		return m.viewCall()
	default:
		return m.viewKeypad()
	}
}

func (m Model) viewKeypad() string {
	display := m.state.Dialed
	for len(display) < 4 {
		display += "_"
	}
	if m.shakeLeft%2 == 1 {
		display = " " + display
	}

	var status string
	switch {
	case m.state.Status == call.StatusError && m.state.Notice == call.NoticeExhausted:
		status = warnStyle.Render("API CREDITS EXHAUSTED")
	case m.state.Status == call.StatusError:
		status = errorStyle.Render("ERA UNREACHABLE")
	default:
		status = hintStyle.Render(m.personaHint())
	}

	keypad := keypadStyle.Render(
		" 1   2   3 \n" +
			" 4   5   6 \n" +
			" 7   8   9 \n" +
			" *   0   # ")

	body := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("TIME PHONE"),
		"",
		displayStyle.Render(display),
		status,
		"",
		keypad,
		"",
		hintStyle.Render("* random   # call   esc clear   q quit"),
	)

	sections := []string{frameStyle.Render(body)}
	if footer := m.viewRecent(); footer != "" {
		sections = append(sections, footer)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) viewCall() string {
	name, era := "UNKNOWN", ""
	if p := m.state.Persona; p != nil {
		name, era = p.Name, p.Era
	}

	var header, detail string
	if m.state.Status == call.StatusConnecting {
		dots := dotFrames[(m.ticks/4)%len(dotFrames)]
		header = pendingStyle.Render("CONNECTING" + dots)
		detail = eraStyle.Render("reaching " + name)
	} else {
		header = liveStyle.Render("● " + name)
		detail = eraStyle.Render(era) + "   " + liveStyle.Render(formatDuration(m.state.DurationSecs))
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("TIME PHONE"),
		"",
		header,
		detail,
		"",
		barStyle.Render(m.viewBars()),
		"",
		hintStyle.Render("h/enter hang up   q quit"),
	)
	return liveFrameStyle.Render(body) + "\n"
}

var dotFrames = []string{"", ".", "..", "..."}

// viewBars renders the speech visualizer as a row of block glyphs.
func (m Model) viewBars() string {
	glyphs := []rune{' ', '▁', '▃', '▅', '▆', '█'}
	out := make([]rune, 0, visualBars*2)
	for _, h := range m.bars {
		if h < 0 {
			h = 0
		}
		if h >= len(glyphs) {
			h = len(glyphs) - 1
		}
		out = append(out, glyphs[h], ' ')
	}
	return string(out)
}

func (m Model) viewRecent() string {
	if len(m.recent) == 0 {
		return ""
	}
	s := "recent: "
	for i, e := range m.recent {
		if i > 0 {
			s += "  "
		}
		s += fmt.Sprintf("%s %s %s", e.Year, e.Persona, formatDuration(e.DurationSecs))
	}
	return footerStyle.Render(s)
}

func (m Model) personaHint() string {
	if len(m.state.Dialed) != 4 {
		return "dial a year"
	}
	p, ok := m.dir.Lookup(m.state.Dialed)
	if !ok {
		return "dial a year"
	}
	return p.Name + " • " + p.Era
}

func formatDuration(secs int) string {
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
