package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/sync"
)

type additionKind int

const (
	additionList additionKind = iota
	additionFeed
)

// addition is one candidate row: a reading list or a feed.
type addition struct {
	kind  additionKind
	index int
	guide string
	title string
	url   string
}

// additionsKeyMap defines the key bindings for the additions picker.
type additionsKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Confirm   key.Binding
	Filter    key.Binding
	ClearFlt  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultAdditionsKeyMap() additionsKeyMap {
	return additionsKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "tab"),
			key.WithHelp("space/tab", "toggle"),
		),
		ToggleAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle all"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y/enter", "add selected"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		ClearFlt: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "cancel"),
		),
	}
}

// AdditionsModel is the BubbleTea model that lets the user pick which
// incoming reading lists and feeds to add.
type AdditionsModel struct {
	table       table.Model
	lists       []sync.ReadingListAddition
	feeds       []sync.FeedAddition
	items       []addition
	filtered    []addition
	selected    map[addition]bool
	keys        additionsKeyMap
	result      sync.Confirmation
	filter      string
	filtering   bool
	showHelp    bool
	confirmMode bool
	width       int
	height      int
	quitting    bool
	widths      additionsColumnWidths
}

var listStyles = struct {
	Title       lipgloss.Style
	Help        lipgloss.Style
	Filter      lipgloss.Style
	FilterInput lipgloss.Style
	Confirm     lipgloss.Style
	Status      lipgloss.Style
}{
	Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Filter:      lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	FilterInput: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	Confirm:     lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true).Padding(1, 2),
	Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
}

const (
	additionsCheckboxWidth = 3
	additionsKindWidth     = 5
	additionsGuideWidth    = 16
	additionsTitleWidth    = 28
	additionsURLWidth      = 40
	additionsColumnPadding = 2
	additionsColumnCount   = 5
)

type additionsColumnWidths struct {
	guide int
	title int
	url   int
}

func additionsColumns(totalWidth int) ([]table.Column, additionsColumnWidths) {
	widths := additionsColumnWidths{
		guide: additionsGuideWidth,
		title: additionsTitleWidth,
		url:   additionsURLWidth,
	}
	if totalWidth > 0 {
		base := additionsCheckboxWidth + additionsKindWidth + widths.guide + widths.title + widths.url +
			additionsColumnPadding*additionsColumnCount
		if extra := totalWidth - base; extra > 0 {
			titleExtra := extra / 2
			widths.title += titleExtra
			widths.url += extra - titleExtra
		}
	}
	return []table.Column{
		{Title: " ", Width: additionsCheckboxWidth},
		{Title: "Kind", Width: additionsKindWidth},
		{Title: "Guide", Width: widths.guide},
		{Title: "Title", Width: widths.title},
		{Title: "URL", Width: widths.url},
	}, widths
}

// NewAdditionsModel creates a picker with every candidate selected.
func NewAdditionsModel(lists []sync.ReadingListAddition, feeds []sync.FeedAddition) AdditionsModel {
	var items []addition
	for i, a := range lists {
		items = append(items, addition{
			kind:  additionList,
			index: i,
			guide: a.Guide.Title,
			title: a.List.Title,
			url:   a.List.URL,
		})
	}
	for i, a := range feeds {
		it := addition{kind: additionFeed, index: i, guide: a.Guide.Title, title: model.DisplayTitle(a.Feed)}
		switch f := a.Feed.(type) {
		case *model.DirectFeed:
			it.url = f.XMLURL
		case *model.QueryFeed:
			it.url = "query:" + string(f.QueryType)
		case *model.SearchFeed:
			it.url = "search:" + f.Query
		}
		items = append(items, it)
	}

	selected := make(map[addition]bool, len(items))
	for _, it := range items {
		selected[it] = true
	}

	columns, widths := additionsColumns(0)
	m := AdditionsModel{
		lists:    lists,
		feeds:    feeds,
		items:    items,
		filtered: items,
		selected: selected,
		keys:     defaultAdditionsKeyMap(),
		widths:   widths,
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(m.rows(items)),
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
	m.table = t
	return m
}

func (m AdditionsModel) rows(items []addition) []table.Row {
	rows := make([]table.Row, len(items))
	for i, it := range items {
		checkbox := "[ ]"
		if m.selected[it] {
			checkbox = "[✓]"
		}
		kind := "feed"
		if it.kind == additionList {
			kind = "list"
		}
		rows[i] = table.Row{
			checkbox,
			kind,
			truncateText(it.guide, m.widths.guide),
			truncateText(it.title, m.widths.title),
			truncateText(it.url, m.widths.url),
		}
	}
	return rows
}

// Init implements tea.Model.
func (m AdditionsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m AdditionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-10, 5))
		columns, widths := additionsColumns(msg.Width)
		m.widths = widths
		m.table.SetColumns(columns)
		m.table.SetRows(m.rows(m.filtered))

	case tea.KeyMsg:
		if m.confirmMode {
			switch msg.String() {
			case "y", "Y", "enter":
				m.result = m.accepted()
				m.quitting = true
				return m, tea.Quit
			case "n", "N", "esc":
				m.confirmMode = false
				return m, nil
			case "q", "ctrl+c":
				m.result = sync.Confirmation{Decision: sync.Cancelled}
				m.quitting = true
				return m, tea.Quit
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
				if len(m.filter) > 0 {
					m.filter = m.filter[:len(m.filter)-1]
					m.applyFilter()
				}
			default:
				if len(msg.Runes) > 0 {
					m.filter += string(msg.Runes)
					m.applyFilter()
				}
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.result = sync.Confirmation{Decision: sync.Cancelled}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Filter):
			m.filtering = true
			return m, nil

		case key.Matches(msg, m.keys.ClearFlt):
			m.filter = ""
			m.applyFilter()
			return m, nil

		case key.Matches(msg, m.keys.Toggle):
			if it, ok := m.current(); ok {
				m.selected[it] = !m.selected[it]
				m.table.SetRows(m.rows(m.filtered))
			}
			return m, nil

		case key.Matches(msg, m.keys.ToggleAll):
			count := 0
			for _, it := range m.filtered {
				if m.selected[it] {
					count++
				}
			}
			selectAll := count < len(m.filtered)
			for _, it := range m.filtered {
				m.selected[it] = selectAll
			}
			m.table.SetRows(m.rows(m.filtered))
			return m, nil

		case key.Matches(msg, m.keys.Confirm):
			m.confirmMode = true
			return m, nil
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *AdditionsModel) applyFilter() {
	if m.filter == "" {
		m.filtered = m.items
	} else {
		needle := strings.ToLower(m.filter)
		var out []addition
		for _, it := range m.items {
			if strings.Contains(strings.ToLower(it.guide), needle) ||
				strings.Contains(strings.ToLower(it.title), needle) ||
				strings.Contains(strings.ToLower(it.url), needle) {
				out = append(out, it)
			}
		}
		m.filtered = out
	}
	m.table.SetRows(m.rows(m.filtered))
}

func (m AdditionsModel) current() (addition, bool) {
	c := m.table.Cursor()
	if c >= 0 && c < len(m.filtered) {
		return m.filtered[c], true
	}
	return addition{}, false
}

func (m AdditionsModel) selectedCount() int {
	n := 0
	for _, it := range m.items {
		if m.selected[it] {
			n++
		}
	}
	return n
}

// accepted builds the confirmation from the selected rows. Items hidden by
// the filter keep their selection.
func (m AdditionsModel) accepted() sync.Confirmation {
	c := sync.Confirmation{Decision: sync.Accepted}
	for _, it := range m.items {
		if !m.selected[it] {
			continue
		}
		switch it.kind {
		case additionList:
			c.ReadingLists = append(c.ReadingLists, m.lists[it.index])
		case additionFeed:
			c.Feeds = append(c.Feeds, m.feeds[it.index])
		}
	}
	return c
}

// View implements tea.Model.
func (m AdditionsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(listStyles.Title.Render("Sync In: new items from the service"))
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

	if m.confirmMode {
		b.WriteString(listStyles.Confirm.Render(
			fmt.Sprintf("Add %d of %d item(s)? (y/n, q cancels the additions)", m.selectedCount(), len(m.items))))
		return b.String()
	}

	status := fmt.Sprintf("%d of %d item(s) selected", m.selectedCount(), len(m.items))
	if m.filter != "" {
		status = fmt.Sprintf("%d selected, %d of %d shown (filtered)", m.selectedCount(), len(m.filtered), len(m.items))
	}
	b.WriteString(listStyles.Status.Render(status))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(listStyles.Help.Render(`Navigation:
  ↑/k      Move up
  ↓/j      Move down

Selection:
  Space/Tab  Toggle current item
  a          Toggle all shown items

Actions:
  y/Enter  Add selected items
  /        Filter by guide, title or URL
  Esc      Clear filter

General:
  ?        Toggle full help
  q        Cancel, nothing is added`))
	} else {
		keys := []string{"↑/↓ navigate", "space toggle", "a toggle all", "y add", "/ filter", "? help", "q cancel"}
		b.WriteString(listStyles.Help.Render(strings.Join(keys, " • ")))
	}
	return b.String()
}

// Result returns the confirmation. A model that quit without a decision
// counts as cancelled.
func (m AdditionsModel) Result() sync.Confirmation {
	if !m.quitting {
		return sync.Confirmation{Decision: sync.Cancelled}
	}
	return m.result
}

// Confirmer asks through the additions picker. It implements sync.Confirmer.
type Confirmer struct{}

var _ sync.Confirmer = Confirmer{}

// Confirm implements sync.Confirmer.
func (Confirmer) Confirm(ctx context.Context, lists []sync.ReadingListAddition, feeds []sync.FeedAddition) (sync.Confirmation, error) {
	final, err := Run(ctx, NewAdditionsModel(lists, feeds))
	if err != nil {
		return sync.Confirmation{}, fmt.Errorf("confirmation picker failed: %w", err)
	}
	if m, ok := final.(AdditionsModel); ok {
		return m.Result(), nil
	}
	return sync.Confirmation{Decision: sync.Cancelled}, nil
}
