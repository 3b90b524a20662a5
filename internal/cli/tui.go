package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/devscout/pkg/candidate"
	"github.com/matzehuels/devscout/pkg/discovery"
	"github.com/matzehuels/devscout/pkg/store"
)

var (
	tuiDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	tuiDetailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
	tuiErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// resultsModel - interactive search results
// =============================================================================

// pageLoadedMsg reports the end of a load-more.
type pageLoadedMsg struct{ err error }

// candidateSavedMsg reports the outcome of saving a candidate.
type candidateSavedMsg struct {
	username string
	err      error
}

// resultsModel is the bubbletea model behind `search --interactive`.
// m loads the next page, s saves the selected candidate, q quits.
type resultsModel struct {
	ctx     context.Context
	orch    *discovery.Orchestrator
	store   store.Store
	savedBy string

	table   table.Model
	state   discovery.State
	loading bool
	status  string
	saved   map[string]bool
	width   int
}

func newResultsModel(ctx context.Context, orch *discovery.Orchestrator, st store.Store, savedBy string) resultsModel {
	cols := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Username", Width: 22},
		{Title: "Name", Width: 22},
		{Title: "Tier", Width: 18},
		{Title: "Score", Width: 6},
		{Title: "Followers", Width: 9},
		{Title: "Location", Width: 18},
		{Title: "Package", Width: 24},
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorDim).
		BorderBottom(true).
		Bold(true).
		Foreground(colorGray)
	styles.Selected = styles.Selected.Foreground(colorWhite).Background(colorCyan).Bold(false)
	t.SetStyles(styles)

	m := resultsModel{
		ctx:     ctx,
		orch:    orch,
		store:   st,
		savedBy: savedBy,
		table:   t,
		saved:   make(map[string]bool),
	}
	m.refresh()
	return m
}

func (m resultsModel) Init() tea.Cmd {
	return nil
}

func (m resultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(msg.Height-14, 5))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "m":
			if m.loading {
				return m, nil
			}
			if !m.state.HasMore {
				m.status = "No more results"
				return m, nil
			}
			m.loading = true
			m.status = "Loading more..."
			return m, m.loadMore()
		case "s":
			c, ok := m.selected()
			if !ok || c.Username() == "" {
				return m, nil
			}
			m.status = "Saving " + c.Username() + "..."
			return m, m.save(c)
		}

	case pageLoadedMsg:
		m.loading = false
		before := len(m.state.Results)
		m.refresh()
		m.status = ""
		if msg.err == nil {
			m.status = fmt.Sprintf("Loaded %d more", len(m.state.Results)-before)
		}
		return m, nil

	case candidateSavedMsg:
		if msg.err != nil {
			m.status = "Save failed: " + msg.err.Error()
			return m, nil
		}
		m.saved[store.Key(msg.username)] = true
		m.status = "Saved " + msg.username
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m resultsModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("%s  %s", m.state.Query, tuiDimStyle.Render(string(m.state.Registry)+" · "+string(m.state.Mode)))
	b.WriteString(StyleTitle.Render("devscout") + "  " + title)
	b.WriteString("\n")
	b.WriteString(tuiDimStyle.Render("↑/↓ navigate  m more  s save  q quit"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	more := iconEnd
	if m.state.HasMore {
		more = iconMore
	}
	b.WriteString(tuiDimStyle.Render(fmt.Sprintf("  [%d/%d] %s", m.table.Cursor()+1, len(m.state.Results), more)))
	b.WriteString("\n")

	if c, ok := m.selected(); ok {
		b.WriteString(m.renderDetail(c))
		b.WriteString("\n")
	}
	if f := m.state.Error; f != nil {
		b.WriteString(tuiErrorStyle.Render(iconWarning + " " + f.Message))
		if f.RateLimited() {
			b.WriteString(tuiDimStyle.Render("  (run 'devscout github login' for higher limits)"))
		}
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(tuiDimStyle.Render(m.status))
	}
	return b.String()
}

func (m resultsModel) renderDetail(c candidate.Candidate) string {
	lines := []string{StyleValue.Render(c.Username()) + "  " + renderTier(c.Impact)}
	if m.saved[store.Key(c.Username())] {
		lines[0] += "  " + StyleSuccess.Render(iconSuccess+" saved")
	}
	if p := c.Profile; p != nil {
		if p.Bio != nil && *p.Bio != "" {
			lines = append(lines, *p.Bio)
		}
		var facts []string
		if p.Company != nil && *p.Company != "" {
			facts = append(facts, *p.Company)
		}
		if p.PublicRepos != nil {
			facts = append(facts, strconv.Itoa(*p.PublicRepos)+" repos")
		}
		if len(facts) > 0 {
			lines = append(lines, tuiDimStyle.Render(strings.Join(facts, " · ")))
		}
	}
	if c.Record.Description != "" {
		lines = append(lines, tuiDimStyle.Render(c.Record.Name+": "+c.Record.Description))
	}
	if u := c.ProfileURL(); u != "" {
		lines = append(lines, StyleLink.Render(u))
	}

	style := tuiDetailStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(strings.Join(lines, "\n"))
}

// refresh pulls the orchestrator snapshot into the table.
func (m *resultsModel) refresh() {
	m.state = m.orch.State()
	rows := make([]table.Row, len(m.state.Results))
	for i, c := range m.state.Results {
		rows[i] = resultRow(i, c)
	}
	m.table.SetRows(rows)
}

func (m resultsModel) selected() (candidate.Candidate, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.state.Results) {
		return candidate.Candidate{}, false
	}
	return m.state.Results[i], true
}

func (m resultsModel) loadMore() tea.Cmd {
	ctx, orch := m.ctx, m.orch
	return func() tea.Msg {
		return pageLoadedMsg{err: orch.LoadMore(ctx)}
	}
}

func (m resultsModel) save(c candidate.Candidate) tea.Cmd {
	ctx, st, by := m.ctx, m.store, m.savedBy
	return func() tea.Msg {
		_, err := st.Save(ctx, store.FromCandidate(c, by))
		return candidateSavedMsg{username: c.Username(), err: err}
	}
}
