package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dougsko/rigsetup/pkg/client"
)

var (
	address = flag.String("addr", "http://127.0.0.1:8080", "rigsetupd web panel address")
	hold    = flag.Duration("hold", 150*time.Millisecond, "Button hold time for click")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		showHelp()
		return
	}

	c := client.NewPanelClient(*address)
	if err := run(c, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *client.PanelClient, args []string) error {
	switch args[0] {
	case "status":
		st, err := c.GetStatus()
		if err != nil {
			return err
		}
		return printJSON(st)

	case "settings":
		rec, err := c.GetSettings()
		if err != nil {
			return err
		}
		return printJSON(rec)

	case "history":
		limit := 10
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q", args[1])
			}
			limit = n
		}
		entries, err := c.GetHistory(limit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  cal=%d bfo=%d cw=%dms keyer=%s\n",
				e.SavedAt.Local().Format(time.DateTime), e.Record.OscillatorCal,
				e.Record.USBCarrierFreq, e.Record.CWActiveTimeoutMs, e.Record.KeyerMode)
		}
		return nil

	case "rotate":
		if len(args) < 2 {
			return fmt.Errorf("rotate needs a pulse count")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid pulse count %q", args[1])
		}
		return c.Rotate(n)

	case "click":
		return c.Click(*hold)
	case "press":
		return c.Press()
	case "release":
		return c.Release()
	case "menu":
		return c.OpenMenu()
	case "ping":
		if err := c.Ping(); err != nil {
			return err
		}
		fmt.Println("pong")
		return nil

	case "screen":
		if len(args) < 2 {
			return fmt.Errorf("screen needs an output file")
		}
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		if err := c.Screen(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()

	default:
		// Anything else goes to the daemon as a raw command
		resp, err := c.SendCommand(args[0])
		if err != nil {
			return err
		}
		fmt.Println(resp.String())
		return nil
	}
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func showHelp() {
	fmt.Println("rigsetupctl - rigsetupd remote panel")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <command>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -addr <url>        Web panel address (default: http://127.0.0.1:8080)")
	fmt.Println("  -hold <duration>   Button hold time for click (default: 150ms)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  status             Daemon and oscillator status")
	fmt.Println("  settings           Last saved settings")
	fmt.Println("  history [n]        Last n saved settings")
	fmt.Println("  rotate <pulses>    Turn the knob; negative is counter-clockwise")
	fmt.Println("  click              Push the knob button")
	fmt.Println("  press | release    Hold or let go of the knob button")
	fmt.Println("  menu               Open the setup menu")
	fmt.Println("  screen <file.png>  Save the panel screen")
	fmt.Println("  ping               Test connection")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s menu\n", os.Args[0])
	fmt.Printf("  %s rotate 30 && %s click\n", os.Args[0], os.Args[0])
	fmt.Printf("  %s 'ROTATE:-2'\n", os.Args[0])
}
