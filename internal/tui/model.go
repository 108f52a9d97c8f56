package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"caseline/internal/app"
	"caseline/internal/game"
	"caseline/internal/ranking"
	"caseline/internal/state"
	"caseline/internal/ui"
)

type view int

const (
	viewMain view = iota
	viewRanking
	viewAchievements
	viewHistory
	viewLeader
)

type dashModel struct {
	ctx context.Context
	a   *app.App

	width  int
	height int

	view view
	s    state.AppState

	input   textinput.Model
	editing bool

	// pollSeq guards against stale ticks: every view change bumps it, and
	// ticks carrying an older sequence are discarded.
	pollSeq int

	lastLog string
	err     error
}

type registeredMsg struct {
	res state.RegisterResult
	err error
}

type undoneMsg struct {
	res state.UndoResult
	err error
}

type refreshedMsg struct {
	seq int
	err error
}

type pollTickMsg struct {
	seq int
}

func newDashModel(ctx context.Context, a *app.App) dashModel {
	input := textinput.New()
	input.Placeholder = "case id"
	input.CharLimit = 64
	input.Width = 24

	return dashModel{
		ctx:     ctx,
		a:       a,
		s:       a.Store.State(),
		input:   input,
		lastLog: "Loaded.",
	}
}

func (m dashModel) Init() tea.Cmd {
	return nil
}

func (m dashModel) registerCmd(typ state.CaseType, caseID string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.a.Store.RegisterCase(m.ctx, typ, caseID)
		return registeredMsg{res: res, err: err}
	}
}

func (m dashModel) undoCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := m.a.Store.Undo(m.ctx)
		return undoneMsg{res: res, err: err}
	}
}

func (m dashModel) refreshCmd(seq int) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{seq: seq, err: m.a.RefreshTeam(m.ctx)}
	}
}

func (m dashModel) tickCmd(seq int) tea.Cmd {
	interval := m.a.Config.RankingPollInterval
	if m.view == viewLeader {
		interval = m.a.Config.LeaderPollInterval
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return pollTickMsg{seq: seq}
	})
}

// switchView changes the active view and starts or stops polling for it.
func (m dashModel) switchView(v view) (dashModel, tea.Cmd) {
	m.view = v
	m.pollSeq++
	if v == viewRanking || v == viewLeader {
		return m, tea.Batch(m.refreshCmd(m.pollSeq), m.tickCmd(m.pollSeq))
	}
	return m, nil
}

func (m dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case registeredMsg:
		m.s = m.a.Store.State()
		if msg.err != nil {
			m.lastLog = "Register failed: " + msg.err.Error()
			return m, nil
		}
		note := fmt.Sprintf("Registered. Total %d/%d.", msg.res.Counts.Total, m.s.DailyGoal)
		if msg.res.LevelUp {
			note += " " + ui.BadgeLevelUp
		}
		if msg.res.GoalMet {
			note += " " + ui.IconGoal + " Goal met!"
		}
		for _, def := range msg.res.NewlyUnlocked {
			note += fmt.Sprintf(" %s %s unlocked!", def.Icon, def.Name)
		}
		m.lastLog = note
		return m, nil

	case undoneMsg:
		m.s = m.a.Store.State()
		switch {
		case msg.err != nil:
			m.lastLog = "Undo failed: " + msg.err.Error()
		case !msg.res.Undone:
			m.lastLog = "Nothing to undo."
		default:
			m.lastLog = fmt.Sprintf("Undid %s case %s.", msg.res.Entry.Type, msg.res.Entry.CaseID)
		}
		return m, nil

	case refreshedMsg:
		if msg.seq != m.pollSeq {
			return m, nil
		}
		m.s = m.a.Store.State()
		if msg.err != nil {
			m.lastLog = "Refresh failed: " + msg.err.Error()
		} else {
			m.lastLog = fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))
		}
		return m, nil

	case pollTickMsg:
		if msg.seq != m.pollSeq {
			return m, nil
		}
		return m, tea.Batch(m.refreshCmd(msg.seq), m.tickCmd(msg.seq))

	case tea.KeyMsg:
		if m.editing {
			switch msg.String() {
			case "enter", "esc":
				m.editing = false
				m.input.Blur()
				return m, nil
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "1":
			return m.switchView(viewMain)
		case "2":
			return m.switchView(viewRanking)
		case "3":
			return m.switchView(viewAchievements)
		case "4":
			return m.switchView(viewHistory)
		case "5":
			return m.switchView(viewLeader)
		case "i":
			m.editing = true
			m.input.Focus()
			return m, textinput.Blink
		case "o":
			return m, m.registerCmd(state.CaseOn, m.takeCaseID())
		case "f":
			return m, m.registerCmd(state.CaseOff, m.takeCaseID())
		case "u":
			return m, m.undoCmd()
		case "m":
			if m.s.LevelUpModifier.Armed() {
				m.a.Store.DisarmModifier()
				m.lastLog = "Modifier disarmed."
			} else {
				m.a.Store.ArmModifier()
				m.lastLog = ui.IconBolt + " Modifier armed: next case counts as level-up."
			}
			m.s = m.a.Store.State()
			return m, nil
		case "a":
			if acked := m.a.Store.AcknowledgeAchievements(); len(acked) > 0 {
				m.lastLog = fmt.Sprintf("Acknowledged %d achievement(s).", len(acked))
			}
			m.s = m.a.Store.State()
			return m, nil
		case "r":
			m.pollSeq++
			return m, m.refreshCmd(m.pollSeq)
		}
	}
	return m, nil
}

func (m *dashModel) takeCaseID() string {
	id := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	return id
}

func (m dashModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}

	var body string
	switch m.view {
	case viewRanking:
		body = m.renderRanking()
	case viewAchievements:
		body = m.renderAchievements()
	case viewHistory:
		body = m.renderHistory()
	case viewLeader:
		body = m.renderLeader()
	default:
		body = m.renderMain()
	}

	return m.renderHeader() + "\n\n" + body + "\n" + m.renderFooter()
}

func (m dashModel) renderHeader() string {
	who := "signed out"
	if u := m.s.User; u != nil {
		who = fmt.Sprintf("%s (%s)", u.ID, u.Role)
	}
	mod := ""
	if m.s.LevelUpModifier.Armed() {
		mod = " " + ui.IconBolt + " armed"
	}
	return fmt.Sprintf("%s | %s | %s %s%s",
		ui.Accent(m.s.Theme).Render("Caseline"),
		who,
		ui.GoalText(m.s.Counts.Total, m.s.DailyGoal),
		ui.ProgressBar(m.s.Counts.Total, m.s.DailyGoal, 24),
		mod,
	)
}

func (m dashModel) renderMain() string {
	lines := []string{
		ui.PanelTitle.Render("Today"),
		fmt.Sprintf("  %s ON  %d", ui.IconOn, m.s.Counts.On),
		fmt.Sprintf("  %s OFF %d", ui.IconOff, m.s.Counts.Off),
		fmt.Sprintf("  %s LVL %d", ui.IconBolt, m.s.Counts.Level),
		"",
		fmt.Sprintf("%s Streak: %d (best %d)", ui.IconStreak, m.s.Streaks.Current, m.s.Streaks.Best),
	}
	if m.s.HourlyMetrics.TeamTotalToday > 0 {
		lines = append(lines, fmt.Sprintf("%s Team today: %d (you: %d%%)",
			ui.IconTeam, m.s.HourlyMetrics.TeamTotalToday, m.s.HourlyMetrics.MyParticipationPercent))
	}
	lines = append(lines,
		"",
		ui.LabelValue("Case id", m.input.View()),
		"",
		ui.Dim.Render("Keys: o=ON f=OFF u=undo m=modifier i=case-id a=ack 1-5=views q=quit"),
	)
	return strings.Join(lines, "\n")
}

func (m dashModel) renderRanking() string {
	out := []string{ui.PanelTitle.Render(ui.IconTrophy + " Team ranking")}
	if len(m.s.RemoteRanking) == 0 {
		out = append(out, ui.Muted.Render("(no ranking yet — waiting for the first refresh)"))
		return strings.Join(out, "\n")
	}
	selfID := ""
	if m.s.User != nil {
		selfID = m.s.User.ID
	}
	now := time.Now()
	for i, e := range m.s.RemoteRanking {
		marker := "  "
		if i == 0 {
			marker = ui.IconCrown + " "
		}
		row := fmt.Sprintf("%s%2d. %-12s %3d  %s", marker, i+1, e.ID, e.Score,
			ui.Dim.Render(ranking.LastActivityLabel(e.LastActivity, now)))
		if e.ID == selfID {
			row = ui.Gold.Render(row)
		} else if !ranking.IsActive(e, now) {
			row = ui.Muted.Render(row)
		}
		out = append(out, row)
	}
	return strings.Join(out, "\n")
}

func (m dashModel) renderAchievements() string {
	out := []string{ui.PanelTitle.Render(ui.IconTrophy + " Achievements")}
	for _, def := range game.Catalog() {
		switch {
		case m.s.Achievements.IsUnlocked(def.ID):
			name := def.Name
			if def.Legendary {
				name = ui.Gold.Render(name + " ★")
			}
			out = append(out, fmt.Sprintf("  %s %s — %s", def.Icon, name, ui.Good.Render("unlocked")))
		default:
			p := m.s.Achievements.Progress[def.ID]
			out = append(out, fmt.Sprintf("  %s %s — %d/%d (%d%%)", def.Icon, def.Name, p.Current, p.Target, p.Percentage))
		}
	}
	if len(m.s.Achievements.NewlyUnlocked) > 0 {
		out = append(out, "", ui.Warn.Render(fmt.Sprintf("%d new — press a to acknowledge", len(m.s.Achievements.NewlyUnlocked))))
	}
	return strings.Join(out, "\n")
}

func (m dashModel) renderHistory() string {
	out := []string{ui.PanelTitle.Render(ui.IconHistory + " Today's cases")}
	if len(m.s.History) == 0 {
		out = append(out, ui.Muted.Render("(none yet)"))
		return strings.Join(out, "\n")
	}
	// Newest first.
	for i := len(m.s.History) - 1; i >= 0; i-- {
		e := m.s.History[i]
		id := e.CaseID
		if id == "" {
			id = "-"
		}
		row := fmt.Sprintf("  %s %s %-12s %s", e.Timestamp.Local().Format("15:04"), ui.CaseIcon(string(e.Type)), id, strings.ToUpper(string(e.Type)))
		if e.LevelUp {
			row += " " + ui.BadgeLevelUp
		}
		out = append(out, row)
	}
	return strings.Join(out, "\n")
}

func (m dashModel) renderLeader() string {
	out := []string{ui.PanelTitle.Render(ui.IconTeam + " Leader dashboard")}
	if m.s.User == nil || m.s.User.Role != state.RoleLeader {
		out = append(out, ui.Muted.Render("(sign in as a leader to see team insights)"))
		return strings.Join(out, "\n")
	}
	if len(m.s.RemoteRanking) == 0 {
		out = append(out, ui.Muted.Render("(waiting for team data)"))
		return strings.Join(out, "\n")
	}

	kpis := ranking.KPIs{TeamTotal: m.s.HourlyMetrics.TeamTotalToday}
	for _, in := range ranking.Insights(m.s.RemoteRanking, kpis, time.Now()) {
		out = append(out, fmt.Sprintf("  %s %s", in.Icon, in.Text))
	}
	return strings.Join(out, "\n")
}

func (m dashModel) renderFooter() string {
	return "\n" + m.lastLog
}
