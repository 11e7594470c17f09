package tui

import "charm.land/lipgloss/v2"

var (
	accent  = lipgloss.Color("#73C991")
	muted   = lipgloss.Color("#808080")
	warning = lipgloss.Color("#E5C07B")
	userCol = lipgloss.Color("#61AFEF")
	editCol = lipgloss.Color("#C678DD")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
	noticeStyle = lipgloss.NewStyle().Foreground(warning)

	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(userCol)
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	editLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(editCol)

	bubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	selectedBubbleStyle = bubbleStyle.BorderForeground(userCol)
	editingBubbleStyle  = bubbleStyle.BorderForeground(editCol)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(muted)
)
