package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"armctl.json" description:"Configuration file"`

	Run   RunCommand   `command:"run" description:"Start an interactive teleoperation and recording session"`
	Play  PlayCommand  `command:"play" description:"Play a sequence file and exit"`
	Check CheckCommand `command:"check" description:"Validate sequence files"`
	Setup SetupCommand `command:"setup" description:"Create or update the configuration file"`
	Ports PortsCommand `command:"ports" description:"List serial ports and the servos found on them"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armctl - teleoperate a robot arm, record command sequences and play them back"

	_, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
