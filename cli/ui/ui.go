// Package ui provides reusable terminal UI components for the inkwell CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/inkwell-notes/inkwell/cli/styles"
)

// SpinnerModel is a spinner component with a message.
type SpinnerModel struct {
	spinner  spinner.Model
	message  string
	quitting bool
	done     bool
	result   string
	err      error
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) SpinnerModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return SpinnerModel{
		spinner: s,
		message: message,
	}
}

func (m SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case SpinnerDoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m SpinnerModel) View() string {
	if m.done {
		if m.err != nil {
			return styles.FormatError(m.result) + "\n"
		}
		return styles.FormatSuccess(m.result) + "\n"
	}

	if m.quitting {
		return styles.FormatWarning("Cancelled") + "\n"
	}

	return m.spinner.View() + " " + styles.Normal.Render(m.message) + "\n"
}

// SpinnerDoneMsg signals that the spinner operation is complete.
type SpinnerDoneMsg struct {
	Result string
	Err    error
}

// RunWithSpinner runs fn while displaying a spinner, then prints the result
// line fn returned. The error from fn is returned unchanged.
func RunWithSpinner(message string, fn func() (string, error)) error {
	p := tea.NewProgram(NewSpinner(message))

	var fnErr error
	go func() {
		result, err := fn()
		fnErr = err
		if result == "" && err != nil {
			result = err.Error()
		}
		p.Send(SpinnerDoneMsg{Result: result, Err: err})
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return fnErr
}

// ProgressBar renders a determinate progress bar without running a full
// program loop; callers print successive frames on one line.
type ProgressBar struct {
	progress progress.Model
	label    string
}

// NewProgressBar creates a progress bar with the given label.
func NewProgressBar(label string) *ProgressBar {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
	)

	return &ProgressBar{
		progress: p,
		label:    label,
	}
}

// Frame renders the bar at the given completion ratio (0..1).
func (b *ProgressBar) Frame(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}
	return b.progress.ViewAs(percent) + " " + styles.Muted.Render(b.label)
}

// Table renders a bordered table.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a new table with headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &Table{
		headers: headers,
		widths:  widths,
	}
}

// AddRow adds a row to the table. Missing cells are left blank.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := 0; i < len(t.headers); i++ {
		if i < len(values) {
			row[i] = values[i]
			if len(values[i]) > t.widths[i] {
				t.widths[i] = len(values[i])
			}
		}
	}
	t.rows = append(t.rows, row)
}

// Render returns the formatted table string.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Primary).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().
		Foreground(styles.Text).
		Padding(0, 1)

	borderStyle := lipgloss.NewStyle().
		Foreground(styles.Border)

	var sb strings.Builder

	writeBorder := func(left, mid, right string) {
		sb.WriteString(borderStyle.Render(left))
		for i, w := range t.widths {
			sb.WriteString(borderStyle.Render(strings.Repeat("─", w+2)))
			if i < len(t.widths)-1 {
				sb.WriteString(borderStyle.Render(mid))
			}
		}
		sb.WriteString(borderStyle.Render(right))
		sb.WriteString("\n")
	}

	writeBorder("┌", "┬", "┐")

	sb.WriteString(borderStyle.Render("│"))
	for i, h := range t.headers {
		sb.WriteString(headerStyle.Width(t.widths[i]).Render(h))
		sb.WriteString(borderStyle.Render("│"))
	}
	sb.WriteString("\n")

	writeBorder("├", "┼", "┤")

	for _, row := range t.rows {
		sb.WriteString(borderStyle.Render("│"))
		for i, cell := range row {
			sb.WriteString(cellStyle.Width(t.widths[i]).Render(cell))
			sb.WriteString(borderStyle.Render("│"))
		}
		sb.WriteString("\n")
	}

	writeBorder("└", "┴", "┘")

	return strings.TrimSuffix(sb.String(), "\n")
}

// StatusBadge returns a styled badge for a projection or check status.
func StatusBadge(status string) string {
	switch strings.ToLower(status) {
	case "ready", "ok", "healthy", "success":
		return lipgloss.NewStyle().
			Background(styles.Success).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1).
			Render(status)
	case "rebuilding", "pending", "waiting":
		return lipgloss.NewStyle().
			Background(styles.Warning).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1).
			Render(status)
	case "error", "failed":
		return lipgloss.NewStyle().
			Background(styles.Error).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Render(status)
	default:
		return lipgloss.NewStyle().
			Background(styles.Surface).
			Foreground(styles.Text).
			Padding(0, 1).
			Render(status)
	}
}

// Banner returns the inkwell banner line.
func Banner() string {
	return styles.IconInk + " " + lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Primary).
		Render("inkwell") +
		" " +
		styles.Muted.Render("- event-sourced notes")
}

// Divider returns a horizontal divider line.
func Divider(width int) string {
	return styles.Dim.Render(strings.Repeat("─", width))
}

// ListItems formats a list of items with bullets.
func ListItems(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("  " + styles.InfoStyle.Render(styles.IconDot) + " ")
		sb.WriteString(styles.Normal.Render(item))
		sb.WriteString("\n")
	}
	return sb.String()
}

// NumberedList formats a numbered list.
func NumberedList(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		numStyle := lipgloss.NewStyle().
			Foreground(styles.Primary).
			Width(4)
		sb.WriteString(numStyle.Render(fmt.Sprintf("%d.", i+1)))
		sb.WriteString(styles.Normal.Render(item))
		sb.WriteString("\n")
	}
	return sb.String()
}
