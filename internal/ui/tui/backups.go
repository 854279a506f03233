package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/feedsync/internal/backup"
)

// BackupAction is what the user chose to do with a backup.
type BackupAction int

const (
	// BackupNone means the user quit without choosing.
	BackupNone BackupAction = iota
	// BackupRestore restores the chosen backup.
	BackupRestore
	// BackupVerify checks the chosen backup.
	BackupVerify
	// BackupDelete removes the chosen backup.
	BackupDelete
)

// BackupChoice is the outcome of the backup browser.
type BackupChoice struct {
	Action BackupAction
	Backup backup.Metadata
}

type backupsKeyMap struct {
	Restore  key.Binding
	Verify   key.Binding
	Delete   key.Binding
	Filter   key.Binding
	ClearFlt key.Binding
	Quit     key.Binding
}

func defaultBackupsKeyMap() backupsKeyMap {
	return backupsKeyMap{
		Restore:  key.NewBinding(key.WithKeys("r", "enter"), key.WithHelp("r/enter", "restore")),
		Verify:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "verify")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		ClearFlt: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// BackupsModel is the BubbleTea model for browsing backups.
type BackupsModel struct {
	table     table.Model
	backups   []backup.Metadata
	filtered  []backup.Metadata
	keys      backupsKeyMap
	choice    BackupChoice
	pending   BackupChoice
	filter    string
	filtering bool
	confirm   bool
	quitting  bool
}

// NewBackupsModel creates a browser over backups, newest first as given.
func NewBackupsModel(backups []backup.Metadata) BackupsModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 30},
			{Title: "Kind", Width: 7},
			{Title: "Created", Width: 16},
			{Title: "Content", Width: 36},
		}),
		table.WithRows(backupRows(backups)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return BackupsModel{
		table:    t,
		backups:  backups,
		filtered: backups,
		keys:     defaultBackupsKeyMap(),
	}
}

func backupRows(backups []backup.Metadata) []table.Row {
	rows := make([]table.Row, len(backups))
	for i, b := range backups {
		content := b.Description
		if b.Guides > 0 || b.Feeds > 0 {
			content = fmt.Sprintf("%d guide(s), %d feed(s)", b.Guides, b.Feeds)
		}
		rows[i] = table.Row{
			b.ID,
			string(b.Kind),
			b.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncateText(content, 36),
		}
	}
	return rows
}

// Init implements tea.Model.
func (m BackupsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m BackupsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(5, msg.Height-8))

	case tea.KeyMsg:
		if m.confirm {
			switch msg.String() {
			case "y", "Y":
				m.choice = m.pending
				m.quitting = true
				return m, tea.Quit
			case "n", "N", "esc":
				m.confirm = false
				m.pending = BackupChoice{}
			}
			return m, nil
		}

		if m.filtering {
			switch msg.String() {
			case "enter":
				m.filtering = false
			case "esc":
				m.filter = ""
				m.filtering = false
				m.applyFilter()
			case "backspace":
				if m.filter != "" {
					m.filter = m.filter[:len(m.filter)-1]
					m.applyFilter()
				}
			default:
				if len(msg.String()) == 1 {
					m.filter += msg.String()
					m.applyFilter()
				}
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Filter):
			m.filtering = true
			return m, nil
		case key.Matches(msg, m.keys.ClearFlt):
			m.filter = ""
			m.applyFilter()
			return m, nil
		case key.Matches(msg, m.keys.Verify):
			if b, ok := m.current(); ok {
				m.choice = BackupChoice{Action: BackupVerify, Backup: b}
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		case key.Matches(msg, m.keys.Restore):
			return m.ask(BackupRestore), nil
		case key.Matches(msg, m.keys.Delete):
			return m.ask(BackupDelete), nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// ask switches to the confirmation prompt for action on the current row.
func (m BackupsModel) ask(action BackupAction) BackupsModel {
	if b, ok := m.current(); ok {
		m.pending = BackupChoice{Action: action, Backup: b}
		m.confirm = true
	}
	return m
}

func (m *BackupsModel) applyFilter() {
	m.filtered = m.backups
	if m.filter != "" {
		needle := strings.ToLower(m.filter)
		m.filtered = nil
		for _, b := range m.backups {
			if strings.Contains(strings.ToLower(b.ID), needle) ||
				strings.Contains(string(b.Kind), needle) ||
				strings.Contains(strings.ToLower(b.Description), needle) {
				m.filtered = append(m.filtered, b)
			}
		}
	}
	m.table.SetRows(backupRows(m.filtered))
}

func (m BackupsModel) current() (backup.Metadata, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.filtered) {
		return backup.Metadata{}, false
	}
	return m.filtered[i], true
}

// View implements tea.Model.
func (m BackupsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(listStyles.Title.Render("Backups"))
	b.WriteString("\n\n")

	if m.filter != "" || m.filtering {
		val := listStyles.FilterInput.Render(m.filter)
		if m.filtering {
			val += "█"
		}
		b.WriteString(listStyles.Filter.Render("Filter: ") + val + "\n\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.confirm {
		verb := "Restore"
		if m.pending.Action == BackupDelete {
			verb = "Delete"
		}
		b.WriteString(listStyles.Confirm.Render(fmt.Sprintf("%s backup %s? (y/n)", verb, m.pending.Backup.ID)))
		return b.String()
	}

	status := fmt.Sprintf("%d backup(s)", len(m.filtered))
	if m.filter != "" {
		status = fmt.Sprintf("%d of %d backup(s) (filtered)", len(m.filtered), len(m.backups))
	}
	b.WriteString(listStyles.Status.Render(status))
	b.WriteString("\n")
	keys := []string{"↑/↓ navigate", "r restore", "v verify", "d delete", "/ filter", "q quit"}
	b.WriteString(listStyles.Help.Render(strings.Join(keys, " • ")))
	return b.String()
}

// Choice returns what the user picked.
func (m BackupsModel) Choice() BackupChoice {
	return m.choice
}

// BrowseBackups runs the backup browser. An empty list returns no choice
// without starting the program.
func BrowseBackups(ctx context.Context, backups []backup.Metadata) (BackupChoice, error) {
	if len(backups) == 0 {
		return BackupChoice{}, nil
	}
	final, err := Run(ctx, NewBackupsModel(backups))
	if err != nil {
		return BackupChoice{}, fmt.Errorf("backup browser failed: %w", err)
	}
	if m, ok := final.(BackupsModel); ok {
		return m.Choice(), nil
	}
	return BackupChoice{}, nil
}
