package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"github.com/joshuapare/pagekit/mem/page"
)

// View renders the entire UI
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.showHelp {
		// Recreated every render so the background sees the latest state
		helpOverlay := overlay.New(
			&helpModel{keys: m.keys},
			&mainViewModel{model: &m},
			overlay.Center,
			overlay.Center,
			0,
			0,
		)
		return helpOverlay.View()
	}

	return m.renderMain()
}

func (m Model) renderMain() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderFreeLists(),
		m.renderStatus(),
	)
}

// renderHeader renders the title and the seed source
func (m Model) renderHeader() string {
	title := headerStyle.Render("Buddy Page Allocator")
	source := sourceStyle.Render(fmt.Sprintf("%s, %d pages, orders 0-%d",
		m.source, m.ctx.Pages(), m.ctx.LastOrder()))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, " ", source)
}

// renderFreeLists renders one row per order
func (m Model) renderFreeLists() string {
	width := m.width - 4
	if width < 40 {
		width = 80
	}

	var rows []string
	for order := 0; order <= m.ctx.LastOrder(); order++ {
		rows = append(rows, m.renderOrderRow(order, width))
	}
	return paneStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) renderOrderRow(order, width int) string {
	blocks := m.ctx.FreeBlocks(order)

	label := fmt.Sprintf("[%02d] %5d", order, len(blocks))
	var heads []string
	for _, pfn := range blocks {
		heads = append(heads, fmt.Sprintf("%x", uint64(pfn)))
	}
	line := strings.Join(heads, " ")
	if room := width - len(label) - 2; room > 0 && len(line) > room {
		line = line[:max(room-3, 0)] + "..."
	}

	if order == m.selected {
		return selectedRowStyle.Render(fmt.Sprintf("%s  %s", label, line))
	}
	if len(blocks) == 0 {
		return emptyOrderStyle.Render(label)
	}
	return orderStyle.Render(label) + "  " + barStyle.Render(line)
}

// renderStatus renders the counters and the last status message
func (m Model) renderStatus() string {
	st := m.ctx.Stats()
	free := fmt.Sprintf("free %s pages (%s)",
		statusCountStyle.Render(fmt.Sprint(st.FreePages)),
		formatBytes(st.FreePages<<page.PageBits))
	held := fmt.Sprintf("held %s blocks / %d pages",
		statusCountStyle.Render(fmt.Sprint(len(m.allocs))), m.outstandingPages())
	order := fmt.Sprintf("order %d", m.selected)

	parts := []string{free, held, order}
	if m.zero {
		parts = append(parts, "zeroing")
	}
	if m.statusMessage != "" {
		parts = append(parts, statusMessageStyle.Render(m.statusMessage))
	}
	parts = append(parts, "? help")

	return statusStyle.Render(strings.Join(parts, " | "))
}

// mainViewModel wraps the main UI for use as overlay background
type mainViewModel struct {
	model *Model
}

func (v *mainViewModel) Init() tea.Cmd { return nil }

func (v *mainViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { return v, nil }

func (v *mainViewModel) View() string { return v.model.renderMain() }

// helpModel renders the key bindings as the overlay foreground
type helpModel struct {
	keys KeyMap
}

func (h *helpModel) Init() tea.Cmd { return nil }

func (h *helpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { return h, nil }

func (h *helpModel) View() string {
	var b strings.Builder
	b.WriteString(helpTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n")

	for i, section := range h.keys.helpSections() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(modalTitleStyle.Render(section.Title))
		b.WriteString("\n")
		for _, binding := range section.Bindings {
			help := binding.Help()
			b.WriteString(helpKeyStyle.Render(help.Key))
			b.WriteString("  ")
			b.WriteString(helpDescStyle.Render(help.Desc))
			b.WriteString("\n")
		}
	}
	return modalStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
