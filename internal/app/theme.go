package app

import "charm.land/lipgloss/v2"

const (
	bubblePaddingVertical   = 0
	bubblePaddingHorizontal = 1
)

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStatusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	unreadBadgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	followPausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	turnHeaderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	turnDiffStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	currentTurnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("120")).Bold(true)
	selectedMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Bold(true)
	metaStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	pickerTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	pickerItemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	pickerCurrentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236")).Bold(true)
	composerFrameStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69")).Padding(0, 1)

	userBubbleStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	agentBubbleStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	thinkingBubbleStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("237")).Foreground(lipgloss.Color("244")).Faint(true).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	toolBubbleStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("179")).Foreground(lipgloss.Color("251")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	systemBubbleStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("237")).Foreground(lipgloss.Color("245")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	streamingMarkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
)
