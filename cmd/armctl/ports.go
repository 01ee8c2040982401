package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"
)

type PortsCommand struct {
	MaxID int `long:"max-id" default:"10" description:"Highest servo id to probe on each port"`
}

type busInfo struct {
	port   string
	servos []feetech.FoundServo
	err    error
}

func (c *PortsCommand) Execute(args []string) error {
	fmt.Println("Scanning serial ports...")
	fmt.Println()

	buses, err := scanPorts(1, c.MaxID)
	if err != nil {
		return err
	}
	if len(buses) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	rows := make([][]string, 0, len(buses))
	for _, b := range buses {
		rows = append(rows, []string{b.port, describeServos(b)})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "Servos").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 1 && row >= 0 && row < len(buses) && len(buses[row].servos) > 0 {
				return tableGoodStyle
			}
			return tableCellStyle
		})
	fmt.Println(t.Render())
	return nil
}

func describeServos(b busInfo) string {
	if b.err != nil {
		return "error: " + b.err.Error()
	}
	if len(b.servos) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(b.servos))
	for _, s := range b.servos {
		parts = append(parts, fmt.Sprintf("#%d (%v)", s.ID, s.Model))
	}
	return strings.Join(parts, ", ")
}

// scanPorts probes every serial port for feetech servos with ids in
// [minID, maxID].
func scanPorts(minID, maxID int) ([]busInfo, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}

	var buses []busInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		info := busInfo{port: port}

		bus, err := openBus(port)
		if err != nil {
			info.err = err
			buses = append(buses, info)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		info.servos, info.err = bus.Scan(ctx, minID, maxID)
		cancel()
		bus.Close()

		buses = append(buses, info)
	}
	return buses, nil
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}
