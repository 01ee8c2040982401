package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armctl/pkg/sequence"
)

type CheckCommand struct {
	Print bool `short:"p" long:"print" description:"List the commands of every file"`
	Args  struct {
		Files []string `positional-arg-name:"file" required:"1" description:"Sequence names or paths"`
	} `positional-args:"yes"`
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableBadStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
	tableGoodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
)

var errInvalidFiles = errors.New("invalid sequence files")

type fileReport struct {
	name   string
	seq    *sequence.Sequence
	bad    []*sequence.ParseError
	ioErr  error
	counts map[sequence.Kind]int
}

func (c *CheckCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := sequenceStore(cfg)
	if err != nil {
		return err
	}
	store.Policy = sequence.Lenient

	reports := make([]fileReport, 0, len(c.Args.Files))
	failed := false
	for _, name := range c.Args.Files {
		r := checkFile(store, name)
		if r.ioErr != nil || len(r.bad) > 0 {
			failed = true
		}
		reports = append(reports, r)
	}

	fmt.Println(renderSummary(reports))
	for _, r := range reports {
		if r.ioErr != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("%s: %v", r.name, r.ioErr)))
			continue
		}
		for _, pe := range r.bad {
			fmt.Println(errorStyle.Render(fmt.Sprintf("%s:%d: %v", r.name, pe.Line, pe.Err)) +
				dimStyle.Render("  "+pe.Text))
		}
		if c.Print && r.seq != nil {
			fmt.Println()
			fmt.Println(subHeaderStyle.Render(r.name))
			fmt.Println(renderCommands(r.seq))
		}
	}

	if failed {
		return errInvalidFiles
	}
	fmt.Println(successStyle.Render("All files valid."))
	return nil
}

func checkFile(store sequence.Store, name string) fileReport {
	r := fileReport{name: name, counts: make(map[sequence.Kind]int)}
	seq, err := store.Load(name)
	if seq == nil {
		r.ioErr = err
		return r
	}
	r.seq = seq
	r.bad = sequence.ParseErrors(err)
	if err != nil && len(r.bad) == 0 {
		r.ioErr = err
	}
	for _, cmd := range seq.Commands() {
		r.counts[cmd.Kind()]++
	}
	return r
}

func renderSummary(reports []fileReport) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		if r.ioErr != nil && r.seq == nil {
			rows = append(rows, []string{r.name, "-", "-", "-", "-", "-", "unreadable"})
			continue
		}
		rows = append(rows, []string{
			r.name,
			strconv.Itoa(r.seq.Len()),
			strconv.Itoa(r.counts[sequence.KindMoveTo]),
			strconv.Itoa(r.counts[sequence.KindGripper]),
			strconv.Itoa(r.counts[sequence.KindPause]),
			strconv.Itoa(r.counts[sequence.KindInclude]),
			strconv.Itoa(len(r.bad)),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("File", "Steps", "Moves", "Gripper", "Pauses", "Includes", "Bad lines").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 6 && row >= 0 && row < len(reports) {
				r := reports[row]
				if r.ioErr != nil || len(r.bad) > 0 {
					return tableBadStyle
				}
				return tableGoodStyle
			}
			return tableCellStyle
		}).
		Render()
}

func renderCommands(seq *sequence.Sequence) string {
	rows := make([][]string, 0, seq.Len())
	for i, cmd := range seq.All() {
		rows = append(rows, []string{strconv.Itoa(i + 1), cmd.Kind().String(), sequence.Format(cmd)})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Kind", "Line").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Render()
}
