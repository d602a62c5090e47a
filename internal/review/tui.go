package review

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/dealscan/internal/csvio"
	"github.com/amishk599/dealscan/internal/model"
)

// Lines per company item in the list view (name + subtitle + blank separator).
const companyItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	nameStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedNameStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(22)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	descDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	descHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	descBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// company is one table row as shown in the browser.
type company struct {
	row         int
	name        string
	status      model.Status
	growth      int
	risk        int
	class       string
	interesting bool
}

func companiesFrom(t *csvio.Table) []company {
	out := make([]company, len(t.Rows))
	for i := range t.Rows {
		growth, _ := strconv.Atoi(t.Get(i, csvio.ColGrowthPotential))
		risk, _ := strconv.Atoi(t.Get(i, csvio.ColRiskLevel))
		out[i] = company{
			row:         i,
			name:        t.Get(i, model.ColName),
			status:      model.Status(t.Get(i, csvio.ColStatus)),
			growth:      growth,
			risk:        risk,
			class:       t.Get(i, csvio.ColClassification),
			interesting: t.Get(i, csvio.ColInteresting) == "Yes",
		}
	}
	return out
}

// interestingByGrowth returns the interesting companies, highest growth first.
func interestingByGrowth(all []company) []company {
	var out []company
	for _, c := range all {
		if c.interesting {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].growth != out[j].growth {
			return out[i].growth > out[j].growth
		}
		return out[i].risk < out[j].risk
	})
	return out
}

type reviewModel struct {
	table         *csvio.Table
	all           []company
	interesting   []company
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=left, 1=right
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	// Detail view state
	view            viewState
	detail          company
	detailViewport  viewport.Model
	showDescription bool

	wantQuit bool
}

func newReviewModel(t *csvio.Table) reviewModel {
	all := companiesFrom(t)
	return reviewModel{
		table:       t,
		all:         all,
		interesting: interestingByGrowth(all),
	}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "r":
		if m.table.Get(m.detail.row, model.ColDescription) != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *reviewModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.all)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.interesting)-1, 0))
	}
}

func (m *reviewModel) ensureCursorVisible() {
	var vp *viewport.Model
	var cursor int
	if m.activePane == 0 {
		vp = &m.leftViewport
		cursor = m.leftCursor
	} else {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * companyItemHeight
	cursorBottom := cursorTop + companyItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	list := m.activeCompanies()
	if len(list) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detail = list[m.activeCursor()]
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.leftViewport.SetContent(renderCompanies(m.all, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderCompanies(m.interesting, m.rightCursor, m.activePane == 1))
}

func (m reviewModel) activeCompanies() []company {
	if m.activePane == 0 {
		return m.all
	}
	return m.interesting
}

func (m reviewModel) activeCursor() int {
	if m.activePane == 0 {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" All Companies (%d)", len(m.all))
	rightHeader := fmt.Sprintf(" Interesting (%d)", len(m.interesting))

	var leftHeaderRendered, rightHeaderRendered string
	var leftBorder, rightBorder lipgloss.Style

	if m.activePane == 0 {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		rightHeaderRendered = inactiveHeaderStyle.Render(rightHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
		rightBorder = inactiveBorderStyle.Width(paneWidth)
	} else {
		leftHeaderRendered = inactiveHeaderStyle.Render(leftHeader)
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		leftBorder = inactiveBorderStyle.Width(paneWidth)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	leftPane := leftBorder.Render(m.leftViewport.View())
	rightPane := rightBorder.Render(m.rightViewport.View())

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, " ", rightPane)

	failed := 0
	for _, c := range m.all {
		if c.status != model.StatusOK {
			failed++
		}
	}
	statusText := fmt.Sprintf(" %d total | %d interesting | %d failed    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.all), len(m.interesting), failed)
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Company Details")

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " esc/backspace back  ↑/↓ scroll  q quit"
	if m.table.Get(m.detail.row, model.ColDescription) != "" {
		statusText = " r desc  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	i := m.detail.row
	get := func(col string) string { return m.table.Get(i, col) }
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Company", get(model.ColName))
	addField("Founded", get(model.ColFoundedYear))
	addField("Employees", get(model.ColTotalEmployees))
	addField("Headquarters", get(model.ColHeadquarters))
	addField("Industry", get(model.ColIndustry))
	addField("Status", statusStyle(m.detail.status).Render(string(m.detail.status)))

	if msg := get(csvio.ColError); msg != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+msg) + "\n")
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return descDividerStyle.Render(label + fill)
	}

	if m.detail.status == model.StatusOK {
		b.WriteByte('\n')
		b.WriteString(divider("── Analysis ") + "\n\n")
		addField("Classification", get(csvio.ColClassification))
		addField("Growth Potential", get(csvio.ColGrowthPotential)+"/10")
		addField("Risk Level", get(csvio.ColRiskLevel)+"/10")
		addField("Interesting", get(csvio.ColInteresting))
		addField("Target Market", get(csvio.ColTargetMarket))
		addField("Competitive Advantage", get(csvio.ColCompetitiveAdvantage))

		if ra := get(csvio.ColRiskAssessment); ra != "" {
			b.WriteByte('\n')
			b.WriteString(detailLabelStyle.Render("Risk Assessment") + "\n")
			b.WriteString(descBodyStyle.Render(wordWrap(ra, wrapWidth)) + "\n")
		}
		writeList := func(label, joined string) {
			if joined == "" {
				return
			}
			b.WriteByte('\n')
			b.WriteString(detailLabelStyle.Render(label) + "\n")
			for _, item := range strings.Split(joined, strings.TrimSpace(csvio.ListSeparator)) {
				if item = strings.TrimSpace(item); item != "" {
					b.WriteString(detailValueStyle.Render("  • "+item) + "\n")
				}
			}
		}
		writeList("Key Strengths", get(csvio.ColKeyStrengths))
		writeList("Concerns", get(csvio.ColConcerns))
	}

	if desc := get(model.ColDescription); desc != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Description ") + "\n\n")
			b.WriteString(descBodyStyle.Render(wordWrap(desc, wrapWidth)) + "\n")
		} else {
			b.WriteString(descHintStyle.Render("  press r to read the company description") + "\n")
		}
	}

	return b.String()
}

func statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusOK:
		return okStyle
	case model.StatusRateLimited, model.StatusCancelled:
		return warnStyle
	default:
		return errorStyle
	}
}

func renderCompanies(list []company, cursor int, isActive bool) string {
	if len(list) == 0 {
		return "  (no companies)"
	}

	var b strings.Builder
	for i, c := range list {
		isSelected := isActive && i == cursor

		nameSt := nameStyle
		subtitleSt := subtitleStyle
		prefix := "  "
		if isSelected {
			nameSt = selectedNameStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(nameSt.Render(c.name))
		b.WriteByte('\n')

		b.WriteString(prefix)
		if c.status == model.StatusOK {
			b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · growth %d · risk %d", c.class, c.growth, c.risk)))
		} else {
			b.WriteString(statusStyle(c.status).Render(string(c.status)))
		}
		b.WriteByte('\n')

		if i < len(list)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RunReviewTUI launches the split-pane browser over an enriched table.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed esc to return to the picker.
func RunReviewTUI(t *csvio.Table) (bool, error) {
	p := tea.NewProgram(newReviewModel(t), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	final := result.(reviewModel)
	return final.wantQuit, nil
}
