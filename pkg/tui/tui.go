// Package tui is the full-screen chat interface. It renders the session's
// transcript and turns key presses into Controller operations; inference
// calls run as commands and are settled back on the UI goroutine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/agromind/plantchat/pkg/attachment"
	"github.com/agromind/plantchat/pkg/inference"
	"github.com/agromind/plantchat/pkg/paths"
	"github.com/agromind/plantchat/pkg/session"
	"github.com/agromind/plantchat/pkg/transcript"
)

const (
	composerPlaceholder = "Type a message or press ctrl+o to add an image..."
	editPlaceholder     = "Edit your message..."
	plantPlaceholder    = "Enter plant name (e.g., Corn)"
	pathPlaceholder     = "Path to a leaf image (png, jpeg, gif, webp, bmp, tiff)"
)

type focus int

const (
	focusComposer focus = iota
	focusPlant
	focusPath
)

// Options configure the chat interface.
type Options struct {
	AppName        string
	RenderMarkdown bool
	ExportDir      string
	Now            func() time.Time
}

// Model is the top-level bubbletea model.
type Model struct {
	ctx  context.Context
	ctrl *session.Controller
	gw   inference.Gateway
	opts Options

	keys     keyMap
	help     help.Model
	composer textinput.Model
	plant    textinput.Model
	path     textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	markdown *markdownRenderer

	focus    focus
	pathOpen bool
	selected int
	notice   string

	width, height int
	ready         bool
}

// New creates the model. ctx bounds every inference call it dispatches.
func New(ctx context.Context, ctrl *session.Controller, gw inference.Gateway, opts Options) *Model {
	if opts.AppName == "" {
		opts.AppName = "plantchat"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = paths.GetExportDir()
	}

	composer := textinput.New()
	composer.Prompt = "> "
	composer.Placeholder = composerPlaceholder
	composer.Focus()

	plant := textinput.New()
	plant.Prompt = "Plant: "
	plant.Placeholder = plantPlaceholder
	plant.CharLimit = 64

	path := textinput.New()
	path.Prompt = "Image: "
	path.Placeholder = pathPlaceholder

	return &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		gw:       gw,
		opts:     opts,
		keys:     defaultKeyMap(),
		help:     help.New(),
		composer: composer,
		plant:    plant,
		path:     path,
		viewport: viewport.New(viewport.WithWidth(80), viewport.WithHeight(20)),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		markdown: newMarkdownRenderer(opts.RenderMarkdown),
		selected: -1,
	}
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, ctrl *session.Controller, gw inference.Gateway, opts Options) error {
	p := tea.NewProgram(New(ctx, ctrl, gw, opts), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.composer.SetWidth(max(msg.Width-4, 10))
		m.plant.SetWidth(max(msg.Width/2, 10))
		m.path.SetWidth(max(msg.Width-10, 10))
		m.help.SetWidth(msg.Width)
		m.refresh()
		return m, nil

	case exchangeSettledMsg:
		if err := m.ctrl.Settle(msg.exchange, msg.outcome); err != nil {
			m.notice = err.Error()
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.ctrl.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case exportedMsg:
		if msg.err != nil {
			m.notice = "Export failed: " + msg.err.Error()
		} else {
			m.notice = "Conversation exported to " + msg.path
		}
		m.layout()
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		m.layout()
		return m, nil

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	}

	return m, m.updateFocused(msg)
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Send):
		if m.focus == focusPath {
			m.attachFromPath()
			return nil
		}
		return m.submit()
	case key.Matches(msg, m.keys.Cancel):
		m.cancel()
		return nil
	case key.Matches(msg, m.keys.Attach):
		m.openAttach()
		return nil
	case key.Matches(msg, m.keys.Detach):
		m.detach()
		return nil
	case key.Matches(msg, m.keys.SwitchFocus):
		m.switchFocus()
		return nil
	case key.Matches(msg, m.keys.Prev):
		m.moveSelection(-1)
		return nil
	case key.Matches(msg, m.keys.Next):
		m.moveSelection(1)
		return nil
	case key.Matches(msg, m.keys.Edit):
		m.beginEdit()
		return nil
	case key.Matches(msg, m.keys.Copy):
		return m.copyReply()
	case key.Matches(msg, m.keys.Export):
		return m.export()
	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input and mirrors its value into
// the controller.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case focusPlant:
		m.plant, cmd = m.plant.Update(msg)
		_ = m.ctrl.SetPlant(m.plant.Value())
	case focusPath:
		m.path, cmd = m.path.Update(msg)
	default:
		m.composer, cmd = m.composer.Update(msg)
		m.ctrl.SetComposerText(m.composer.Value())
	}
	m.layout()
	return cmd
}

func (m *Model) submit() tea.Cmd {
	m.ctrl.SetComposerText(m.composer.Value())
	if _, ok := m.ctrl.PendingAttachment(); ok {
		_ = m.ctrl.SetPlant(m.plant.Value())
	}

	e, err := m.ctrl.Submit()
	if err != nil {
		m.notice = err.Error()
		if errors.Is(err, session.ErrPlantRequired) {
			m.setFocus(focusPlant)
		}
		m.layout()
		return nil
	}

	m.notice = ""
	m.selected = -1
	m.composer.SetValue(m.ctrl.ComposerText())
	m.syncEditMode()
	if e == nil {
		m.notice = "Edit cancelled."
		m.refresh()
		return nil
	}

	m.plant.Reset()
	m.setFocus(focusComposer)
	m.refresh()
	return tea.Batch(dispatchCmd(m.ctx, m.gw, e), m.spinner.Tick)
}

func (m *Model) cancel() {
	switch {
	case m.pathOpen:
		m.closeAttach()
	case m.isEditing():
		m.ctrl.CancelEdit()
		m.composer.Reset()
		m.syncEditMode()
	default:
		m.notice = ""
	}
	m.refresh()
}

func (m *Model) openAttach() {
	if m.isEditing() {
		m.notice = session.ErrEditInProgress.Error()
		m.layout()
		return
	}
	m.pathOpen = true
	m.path.Reset()
	m.setFocus(focusPath)
	m.layout()
}

func (m *Model) closeAttach() {
	m.pathOpen = false
	m.path.Reset()
	m.setFocus(focusComposer)
}

func (m *Model) attachFromPath() {
	raw := strings.TrimSpace(m.path.Value())
	if raw == "" {
		m.closeAttach()
		m.layout()
		return
	}

	preview, err := m.ctrl.AttachFile(paths.ExpandHome(raw))
	if err != nil {
		m.notice = err.Error()
		m.layout()
		return
	}

	m.pathOpen = false
	m.path.Reset()
	m.plant.Reset()
	m.notice = fmt.Sprintf("Attached %s (%s, %dx%d).", filepath.Base(raw), preview.Format, preview.Width, preview.Height)
	m.setFocus(focusPlant)
	m.layout()
}

func (m *Model) detach() {
	if _, ok := m.ctrl.PendingAttachment(); !ok {
		return
	}
	if err := m.ctrl.RemoveAttachment(); err != nil {
		m.notice = err.Error()
	}
	m.plant.Reset()
	m.setFocus(focusComposer)
	m.layout()
}

func (m *Model) switchFocus() {
	if _, ok := m.ctrl.PendingAttachment(); !ok {
		return
	}
	if m.focus == focusPlant {
		m.setFocus(focusComposer)
	} else {
		m.setFocus(focusPlant)
	}
	m.layout()
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.composer.Blur()
	m.plant.Blur()
	m.path.Blur()
	switch f {
	case focusPlant:
		m.plant.Focus()
	case focusPath:
		m.path.Focus()
	default:
		m.composer.Focus()
	}
}

// moveSelection steps through messages; -1 means no selection.
func (m *Model) moveSelection(delta int) {
	n := m.ctrl.Transcript().Len()
	if n == 0 {
		return
	}
	switch {
	case m.selected < 0 && delta < 0:
		m.selected = n - 1
	case m.selected < 0:
		m.selected = 0
	default:
		m.selected = max(0, min(n-1, m.selected+delta))
	}
	m.refresh()
}

// beginEdit edits the selected message, or the latest editable one.
func (m *Model) beginEdit() {
	index := m.selected
	if index < 0 {
		index = m.lastEditable()
	}
	if index < 0 {
		m.notice = "No message to edit."
		m.layout()
		return
	}

	if err := m.ctrl.BeginEdit(index); err != nil {
		m.notice = err.Error()
		m.layout()
		return
	}

	m.notice = ""
	m.composer.SetValue(m.ctrl.ComposerText())
	m.composer.CursorEnd()
	m.setFocus(focusComposer)
	m.syncEditMode()
	m.refresh()
}

func (m *Model) lastEditable() int {
	msgs := m.ctrl.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Editable() {
			return i
		}
	}
	return -1
}

func (m *Model) copyReply() tea.Cmd {
	msgs := m.ctrl.Messages()
	index := m.selected
	if index < 0 {
		index = len(msgs) - 1
	}
	for ; index >= 0; index-- {
		if msg := msgs[index]; msg.BotText != "" && !msg.Pending() {
			return copyTextToClipboard(msg.BotText)
		}
	}
	m.notice = "No reply to copy."
	m.layout()
	return nil
}

func (m *Model) export() tea.Cmd {
	path := filepath.Join(m.opts.ExportDir, transcript.ExportFileName(m.opts.Now()))
	return exportCmd(path, m.ctrl.Messages())
}

func (m *Model) isEditing() bool {
	_, editing := m.ctrl.EditTarget()
	return editing
}

func (m *Model) syncEditMode() {
	if m.isEditing() {
		m.composer.Placeholder = editPlaceholder
	} else {
		m.composer.Placeholder = composerPlaceholder
	}
}

// refresh re-renders the transcript into the viewport and keeps the newest
// message in view unless a message is selected.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.layout()
	if m.selected < 0 {
		m.viewport.GotoBottom()
	}
}

func (m *Model) layout() {
	if !m.ready {
		return
	}
	footer := m.footerView()
	m.viewport.SetWidth(m.width)
	m.viewport.SetHeight(max(m.height-1-lipgloss.Height(footer), 1))
}

func (m *Model) headerView() string {
	title := headerStyle.Render("🌱 " + m.opts.AppName)
	status := ""
	if m.ctrl.Busy() {
		status = mutedStyle.Render("  " + m.spinner.View() + " Analyzing...")
	}
	return ansi.Truncate(title+status, m.width, "…")
}

func (m *Model) footerView() string {
	var lines []string

	if att, ok := m.ctrl.PendingAttachment(); ok {
		lines = append(lines,
			mutedStyle.Render(fmt.Sprintf("📷 %s (%s, %dx%d)", att.Name, att.Preview.Format, att.Preview.Width, att.Preview.Height)),
			m.plant.View()+"  "+mutedStyle.Render("Known: "+strings.Join(attachment.KnownPlants(), ", ")),
		)
	}
	if m.pathOpen {
		lines = append(lines, m.path.View())
	}

	label := "Send"
	if m.isEditing() {
		target, _ := m.ctrl.EditTarget()
		label = fmt.Sprintf("Update #%d", target+1)
	}
	lines = append(lines, inputStyle.Width(m.width).Render(m.composer.View()+"  "+mutedStyle.Render("["+label+"]")))

	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(ansi.Truncate(m.notice, m.width, "…")))
	}

	_, attached := m.ctrl.PendingAttachment()
	lines = append(lines, m.help.ShortHelpView(m.keys.ShortHelp(m.isEditing(), attached)))
	return strings.Join(lines, "\n")
}

func (m *Model) render() string {
	if !m.ready {
		return mutedStyle.Render("Loading…")
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.viewport.View(), m.footerView())
}

func (m *Model) View() tea.View {
	view := tea.NewView(m.render())
	view.AltScreen = true
	view.WindowTitle = m.opts.AppName
	return view
}
