package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/cobra"

	"objgraph/internal/analysis"
	"objgraph/internal/objgraph/styles"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse recovered functions in a terminal UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		program := tea.NewProgram(
			newModel(configFromViper()),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

type viewMode int

const (
	viewSummary viewMode = iota
	viewFunctions
	viewListing
)

type funcItem struct {
	addr       uint32
	name       string
	entry      bool
	filterTerm string
}

func (i funcItem) Title() string       { return fmt.Sprintf("%08x  %s", i.addr, i.name) }
func (i funcItem) Description() string { return "" }
func (i funcItem) FilterValue() string { return i.filterTerm }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(funcItem)
	if !ok {
		return
	}

	indicator, addrStyle := " ", styles.Address
	if index == m.Index() {
		indicator, addrStyle = ">", styles.Selected
	}
	name := styles.Function.Render(i.name)
	if i.entry {
		name += " (entry)"
	}
	fmt.Fprintf(w, " %s  %s  %s", indicator, addrStyle.Render(fmt.Sprintf("%08x", i.addr)), name)
}

type projectMsg struct {
	proj *project
	err  error
}

func loadProjectCmd(cfg Config) tea.Cmd {
	return func() tea.Msg {
		p, err := openProject(cfg)
		return projectMsg{proj: p, err: err}
	}
}

type model struct {
	cfg      Config
	proj     *project
	funcs    list.Model
	listing  viewport.Model
	summary  viewport.Model
	spinner  spinner.Model
	listings *lru.Cache[uint32, string]
	mode     viewMode
	loading  bool
	err      error
	width    int
	height   int
}

func newModel(cfg Config) model {
	funcs := list.New([]list.Item{}, itemDelegate{}, 80, 22)
	funcs.SetShowStatusBar(false)
	funcs.SetFilteringEnabled(true)
	funcs.Title = "Functions"
	funcs.Styles.Title = styles.Title

	listing := viewport.New()
	listing.SetWidth(80)
	listing.SetHeight(22)
	summary := viewport.New()
	summary.SetWidth(80)
	summary.SetHeight(22)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Selected

	cache, _ := lru.New[uint32, string](128)

	m := model{
		cfg:      cfg,
		funcs:    funcs,
		listing:  listing,
		summary:  summary,
		spinner:  s,
		listings: cache,
		loading:  true,
		width:    80,
		height:   24,
	}
	m.updateSummary()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(loadProjectCmd(m.cfg), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case projectMsg:
		m.loading = false
		m.proj, m.err = msg.proj, msg.err
		if m.proj != nil {
			m.updateFunctions()
		}
		m.updateSummary()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateSummary()
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.funcs.SetWidth(msg.Width)
		m.funcs.SetHeight(msg.Height - 2)
		m.listing.SetWidth(msg.Width)
		m.listing.SetHeight(msg.Height - 2)
		m.summary.SetWidth(msg.Width)
		m.summary.SetHeight(msg.Height - 2)
		m.updateSummary()

	case tea.KeyMsg:
		if m.mode == viewFunctions && m.funcs.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "i":
			m.mode = viewSummary
			return m, nil
		case "f":
			if m.proj != nil {
				m.mode = viewFunctions
			}
			return m, nil
		case "enter":
			if m.mode == viewFunctions {
				if item, ok := m.funcs.SelectedItem().(funcItem); ok {
					m.listing.SetContent(m.render(item.addr))
					m.listing.GotoTop()
					m.mode = viewListing
				}
			}
			return m, nil
		case "esc":
			if m.mode == viewListing {
				m.mode = viewFunctions
				return m, nil
			}
		case "tab":
			if m.proj != nil {
				m.mode = (m.mode + 1) % 3
			}
			return m, nil
		}
	}

	switch m.mode {
	case viewFunctions:
		m.funcs, cmd = m.funcs.Update(msg)
	case viewListing:
		m.listing, cmd = m.listing.Update(msg)
	default:
		m.summary, cmd = m.summary.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var content, menu string
	switch m.mode {
	case viewFunctions:
		content = m.funcs.View()
		menu = " Enter: listing • I: info • Tab: cycle • Q: quit "
	case viewListing:
		content = m.listing.View()
		menu = " Esc: functions • I: info • Tab: cycle • Q: quit "
	default:
		content = m.summary.View()
		if m.proj != nil {
			menu = " F: functions • Tab: cycle • Q: quit "
		} else {
			menu = " Q: quit "
		}
	}
	return content + "\n" + styles.Menu.Width(m.width).Render(menu)
}

// render returns the listing of the function at addr, cached by address.
func (m *model) render(addr uint32) string {
	if s, ok := m.listings.Get(addr); ok {
		return s
	}
	var sb strings.Builder
	writeListing(&sb, m.proj, analysis.Explore(m.proj.sess, addr, 0))
	s := sb.String()
	m.listings.Add(addr, s)
	return s
}

func (m *model) updateFunctions() {
	fns := m.proj.Functions()
	items := make([]list.Item, 0, len(fns))
	for _, f := range fns {
		name := m.proj.Name(f.addr)
		items = append(items, funcItem{
			addr:       f.addr,
			name:       name,
			entry:      f.entry,
			filterTerm: fmt.Sprintf("%x %s", f.addr, name),
		})
	}
	m.funcs.SetItems(items)
	m.funcs.Title = fmt.Sprintf("Functions (%d)", len(items))
}

func (m *model) updateSummary() {
	var md string
	switch {
	case m.loading:
		md = fmt.Sprintf("# objgraph\n\n%s Loading `%s`...", m.spinner.View(), m.cfg.Dump)
	case m.err != nil:
		md = "# objgraph\n\n**error:** " + m.err.Error()
	default:
		md = summaryMarkdown(m.proj)
	}
	m.summary.SetContent(strings.TrimSuffix(styles.Markdown(md, m.width-2), "\n"))
}
