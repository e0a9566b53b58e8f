package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("62")
	colorSecondary = lipgloss.Color("241")
	colorMuted     = lipgloss.Color("240")
	colorHighlight = lipgloss.Color("212")
	colorSuccess   = lipgloss.Color("78")
	colorWarning   = lipgloss.Color("214")
	colorError     = lipgloss.Color("196")
)

// NormalItem style for item titles.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// TimeBandHeader style for time band labels (e.g., "Just Now", "Today").
var TimeBandHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	MarginTop(1).
	Padding(0, 1)

// MetaItem style for scores, ages and other secondary details.
var MetaItem = lipgloss.NewStyle().
	Foreground(colorMuted)

// Summary style for the indented line under a title.
var Summary = lipgloss.NewStyle().
	Foreground(colorSecondary).
	PaddingLeft(4)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true).
	Padding(0, 1)

// HelpStyle for hints and empty states.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// Heading style for section titles.
var Heading = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorPrimary).
	Padding(0, 1)

// CommentAuthor style for comment bylines.
var CommentAuthor = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

var (
	statusReady   = lipgloss.NewStyle().Foreground(colorSuccess)
	statusWarning = lipgloss.NewStyle().Foreground(colorWarning)
	statusMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	statusError   = lipgloss.NewStyle().Foreground(colorError)
)
