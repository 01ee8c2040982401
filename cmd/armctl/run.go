package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/armctl/pkg/arm"
	"github.com/gwillem/armctl/pkg/input"
	"github.com/gwillem/armctl/pkg/input/spacenav"
	"github.com/gwillem/armctl/pkg/logging"
	"github.com/gwillem/armctl/pkg/teleop"
)

type RunCommand struct {
	Sim        bool   `long:"sim" description:"Use the simulated arm regardless of the configuration"`
	NoSpaceNav bool   `long:"no-spacenav" description:"Do not connect to spacenavd; jogging is disabled"`
	LogFile    string `long:"log-file" description:"Also write log output to this file"`
}

const (
	headerHeight = 3 // title + status + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 9 // log box + key help
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

var axisNames = [6]string{"vx", "vy", "vz", "roll", "pitch", "yaw"}

var axisColors = map[string]string{
	"vx":    "196", // red
	"vy":    "46",  // green
	"vz":    "51",  // cyan
	"roll":  "208", // orange
	"pitch": "226", // yellow
	"yaw":   "201", // magenta
}

// spacemouse buttons: left opens the gripper, right closes it
var spaceNavButtons = map[int]input.Action{
	0: input.ActionGripperOpen,
	1: input.ActionGripperClose,
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	faultStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

type runModel struct {
	ctrl     *teleop.Controller
	cancel   context.CancelFunc
	keys     input.KeyMap
	actions  *input.Queue
	hook     *logging.ChannelHook
	prompter *tuiPrompter
	address  string

	chart  *streamlinechart.Model
	prompt *promptRequest
	answer textinput.Model

	width    int
	height   int
	logs     []string
	state    teleop.State
	last     arm.Velocity
	quitting bool
}

type stateMsg teleop.State
type logMsg string
type doneMsg struct{ err error }

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(hook *logging.ChannelHook) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-hook.Lines())
	}
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 8)
	return width, height
}

func newRunModel(ctrl *teleop.Controller, cancel context.CancelFunc, keys input.KeyMap, actions *input.Queue,
	hook *logging.ChannelHook, prompter *tuiPrompter, address string, scale float64) runModel {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(-scale, scale),
	)
	for _, name := range axisNames {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	answer := textinput.New()
	answer.CharLimit = 128
	answer.Width = 40

	return runModel{
		ctrl:     ctrl,
		cancel:   cancel,
		keys:     keys,
		actions:  actions,
		hook:     hook,
		prompter: prompter,
		address:  address,
		chart:    &chart,
		answer:   answer,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.hook),
		waitForPrompt(m.prompter),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.answerPrompt(promptReply{err: input.ErrClosed})
			m.cancel()
			return m, nil
		}
		if m.prompt != nil {
			return m.updatePrompt(msg)
		}
		if action, ok := m.keys.Lookup(msg.String()); ok {
			if !m.actions.Push(action) {
				m.addLog("busy, key ignored: " + action.String())
			}
		}
		return m, nil

	case promptMsg:
		req := promptRequest(msg)
		m.prompt = &req
		m.answer.Reset()
		focus := m.answer.Focus()
		return m, tea.Batch(focus, textinput.Blink)

	case stateMsg:
		m.state = teleop.State(msg)
		// freeze the chart while the arm is idle
		if v := m.state.Velocity; v != m.last || !v.IsZero() {
			values := v.Values()
			for i, name := range axisNames {
				m.chart.PushDataSet(name, values[i])
			}
			m.chart.DrawAll()
			m.last = v
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.hook)

	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	if m.prompt != nil {
		var cmd tea.Cmd
		m.answer, cmd = m.answer.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m runModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.answerPrompt(promptReply{answer: m.answer.Value()})
		return m, waitForPrompt(m.prompter)
	case tea.KeyEsc:
		m.answerPrompt(promptReply{err: input.ErrClosed})
		return m, waitForPrompt(m.prompter)
	}
	var cmd tea.Cmd
	m.answer, cmd = m.answer.Update(msg)
	return m, cmd
}

func (m *runModel) answerPrompt(r promptReply) {
	if m.prompt == nil {
		return
	}
	m.prompt.reply <- r
	m.prompt = nil
	m.answer.Blur()
}

func (m runModel) View() string {
	if m.quitting {
		return "Session ended.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("armctl"))
	sb.WriteString(fmt.Sprintf(" - %s - %d Hz", m.address, int(1/m.ctrl.Period().Seconds())))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))
	logLines := statusStyle.Render("No messages")
	if len(m.logs) > 0 {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	if m.prompt != nil {
		sb.WriteString(promptStyle.Render(m.prompt.question) + " " + m.answer.View())
		sb.WriteString(statusStyle.Render("  (enter to confirm, esc to cancel)"))
	} else {
		sb.WriteString(statusStyle.Render(strings.Join(m.keys.Help(), "  ") + "  ctrl+c exit"))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (m runModel) renderStatus() string {
	st := m.state
	var health string
	switch {
	case !st.Arm.Connected:
		health = faultStyle.Render("offline")
	case st.Arm.FaultPresent || st.Error != nil:
		health = faultStyle.Render("fault")
	case st.Arm.MotionReady:
		health = okStyle.Render("ready")
	default:
		health = statusStyle.Render("not ready")
	}
	playback := "idle"
	if st.Playing {
		playback = "playing " + st.Phase.String()
	}
	return statusStyle.Render(fmt.Sprintf("%s  mode %s  speed %.0f  radius %.0f  steps %d  gripper %s  %s",
		health, st.Arm.Mode, st.Speed, st.Radius, st.Steps, st.Gripper, playback))
}

func renderLegend() string {
	items := make([]string, 0, len(axisNames))
	for _, name := range axisNames {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	keys := input.DefaultKeyMap()
	if err := keys.Rebind(cfg.Keys); err != nil {
		return fmt.Errorf("key map: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out io.Writer = io.Discard
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger := newLogger(cfg, out)
	hook := logging.NewChannelHook(64, logger.GetLevel())
	logger.AddHook(hook)

	store, err := sequenceStore(cfg)
	if err != nil {
		return err
	}

	st, err := openStation(ctx, cfg, c.Sim, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	actions := input.NewQueue(16)

	var motion input.Continuous
	if !c.NoSpaceNav {
		dev, err := spacenav.Dial(ctx, cfg.SpaceNav, spacenav.Options{Buttons: spaceNavButtons, Actions: actions})
		if err != nil {
			logger.WithError(err).Warn("No 3D mouse found, jogging disabled")
		} else {
			defer dev.Close()
			motion = dev
		}
	}

	prompter := newTUIPrompter()
	ctrl, err := teleop.NewController(teleop.Config{
		Arm:             st.arm,
		Motion:          motion,
		Actions:         actions,
		Prompter:        prompter,
		Store:           store,
		ToolOffset:      st.offset,
		ToolPayload:     st.payload,
		Multiplier:      cfg.Multiplier,
		Speed:           cfg.Speed,
		Radius:          cfg.Radius,
		MaxIncludeDepth: cfg.IncludeDepth(),
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	address := cfg.Arm
	if c.Sim {
		address = "sim"
	}
	p := tea.NewProgram(newRunModel(ctrl, cancel, keys, actions, hook, prompter, address, cfg.Multiplier),
		tea.WithAltScreen())

	done := make(chan error, 1)
	go func() {
		err := ctrl.Run(ctx)
		done <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("terminal UI: %w", err)
	}
	cancel()
	err = <-done
	if err != nil && !errors.Is(err, teleop.ErrQuit) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
