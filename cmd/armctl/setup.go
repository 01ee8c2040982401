package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/armctl/pkg/robot"
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("armctl Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	if robot.ConfigExists(opts.Config) {
		fmt.Printf("Updating %s\n\n", opts.Config)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	useGripper := cfg.Gripper != nil
	if err := stationForm(cfg, &useGripper).Run(); err != nil {
		return abortedForm(err)
	}

	if useGripper {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Serial-bus gripper ━━━"))
		fmt.Println()
		g, err := setupGripper()
		if err != nil {
			return err
		}
		cfg.Gripper = g
	} else {
		cfg.Gripper = nil
	}

	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start a session with: " + headerStyle.Render("armctl run"))
	return nil
}

func abortedForm(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		fmt.Println()
		os.Exit(0)
	}
	return err
}

func options(names []string) []huh.Option[string] {
	out := make([]huh.Option[string], 0, len(names))
	for _, n := range names {
		out = append(out, huh.NewOption(n, n))
	}
	return out
}

func stationForm(cfg *robot.Config, useGripper *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Arm address").
				Description(`Bridge websocket URL, or "sim" for the simulator`).
				Value(&cfg.Arm).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == robot.SimAddress || strings.HasPrefix(s, "ws://") || strings.HasPrefix(s, "wss://") {
						return nil
					}
					return errors.New(`use "sim" or a ws:// URL`)
				}),
			huh.NewSelect[string]().
				Title("Tool offset").
				Options(options(cfg.Tools.OffsetNames())...).
				Value(&cfg.Tool),
			huh.NewSelect[string]().
				Title("Tool payload").
				Options(options(cfg.Tools.PayloadNames())...).
				Value(&cfg.Payload),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Sequence directory").
				Description("Where sequence files are saved and loaded").
				Value(&cfg.SequenceDir),
			huh.NewSelect[string]().
				Title("Malformed lines in sequence files").
				Options(
					huh.NewOption("Refuse the whole file", "strict"),
					huh.NewOption("Skip the bad lines", "lenient"),
				).
				Value(&cfg.LoadPolicy),
			huh.NewConfirm().
				Title("Drive the gripper with a serial-bus servo?").
				Description("Instead of the arm's own gripper outputs").
				Value(useGripper),
		),
	)
}

type servoChoice struct {
	port  string
	servo feetech.FoundServo
}

func setupGripper() (*robot.GripperConfig, error) {
	fmt.Println("Scanning for servos...")
	buses, err := scanPorts(1, 10)
	if err != nil {
		return nil, err
	}

	var choices []servoChoice
	var servoOpts []huh.Option[int]
	for _, b := range buses {
		for _, s := range b.servos {
			label := fmt.Sprintf("%s servo #%d (%v)", b.port, s.ID, s.Model)
			servoOpts = append(servoOpts, huh.NewOption(label, len(choices)))
			choices = append(choices, servoChoice{port: b.port, servo: s})
		}
	}
	if len(choices) == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the gripper is connected and powered on.")
		os.Exit(1)
	}

	var picked int
	err = huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().
			Title("Which servo drives the gripper?").
			Options(servoOpts...).
			Value(&picked),
	)).Run()
	if err != nil {
		return nil, abortedForm(err)
	}
	choice := choices[picked]

	bus, err := openBus(choice.port)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", choice.port, err)
	}
	defer bus.Close()
	servo := feetech.NewServo(bus, choice.servo.ID, choice.servo.Model)

	// torque off so the jaws can be moved by hand
	ctx := context.Background()
	servo.Disable(ctx)

	pos, err := servo.Position(ctx)
	if err != nil {
		return nil, fmt.Errorf("read servo %d: %w", choice.servo.ID, err)
	}

	fmt.Println(subHeaderStyle.Render("Record gripper range"))
	fmt.Println("Move the jaws by hand. Press 'o' with the gripper fully open")
	fmt.Println("and 'c' with it fully closed.")
	fmt.Println()

	final, err := tea.NewProgram(newCalibrationModel(servo, pos)).Run()
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	cm := final.(calibrationModel)
	if cm.open < 0 || cm.closed < 0 {
		fmt.Println("Calibration cancelled.")
		os.Exit(0)
	}

	cal := robot.CalibrationFrom(choice.servo.ID, cm.open, cm.closed)
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("gripper calibration: %w", err)
	}
	fmt.Printf("Gripper calibrated: %d..%d\n", cal.RangeMin, cal.RangeMax)
	return &robot.GripperConfig{Port: choice.port, Calibration: cal}, nil
}

type positionReader interface {
	Position(ctx context.Context) (int, error)
}

// Calibration TUI model
type calibrationModel struct {
	servo    positionReader
	current  int
	open     int
	closed   int
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(servo positionReader, current int) calibrationModel {
	return calibrationModel{servo: servo, current: current, open: -1, closed: -1}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "o":
			m.open = m.current
		case "c":
			m.closed = m.current
		case "enter":
			if m.open >= 0 && m.closed >= 0 {
				m.quitting = true
				return m, tea.Quit
			}
		case "q", "ctrl+c":
			m.open, m.closed = -1, -1
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		if pos, err := m.servo.Position(context.Background()); err == nil {
			m.current = pos
		}
		return m, tick()
	}
	return m, nil
}

func recorded(v int) string {
	if v < 0 {
		return "-"
	}
	return strconv.Itoa(v)
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	currentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Current", "Open", "Closed").
		Row(strconv.Itoa(m.current), recorded(m.open), recorded(m.closed)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return currentStyle
			case (col == 1 && m.open >= 0) || (col == 2 && m.closed >= 0):
				return tableGoodStyle
			default:
				return tableCellStyle
			}
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	if m.open >= 0 && m.closed >= 0 {
		sb.WriteString(dimStyle.Render("Press Enter when done, o/c to re-record"))
	} else {
		sb.WriteString(dimStyle.Render("o = record open, c = record closed, q = cancel"))
	}
	return sb.String()
}
