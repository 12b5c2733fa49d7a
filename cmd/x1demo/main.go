//go:build !tinygo

// Command x1demo is the host demo harness: it brings up the kernel
// against board/hostsim and runs one of the end-to-end scenarios
// described in SPEC_FULL.md §8, with a -headless/-ticks flag pair
// plus a -scenario selector and an optional visualizer window.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/richardbraun/x1/board/hostsim"
	"github.com/richardbraun/x1/driver/serial"
	"github.com/richardbraun/x1/internal/buildinfo"
	"github.com/richardbraun/x1/kernel"
	"github.com/richardbraun/x1/sched"
)

func main() {
	var (
		headless bool
		ticks    uint64
		scenario int
		window   bool
	)
	flag.BoolVar(&headless, "headless", true, "run without a visualizer window")
	flag.Uint64Var(&ticks, "ticks", 0, "stop the tick source after N ticks (0 = run until the scenario finishes)")
	flag.IntVar(&scenario, "scenario", 1, "end-to-end scenario to run (1-6)")
	flag.BoolVar(&window, "window", false, "open a visualizer window (only together with -headless=false)")
	flag.Parse()

	run, ok := scenarios[scenario]
	if !ok {
		fmt.Fprintf(os.Stderr, "x1demo %s: unknown scenario %d\n", buildinfo.Short(), scenario)
		os.Exit(2)
	}

	// The console sink is wrapped in a serial.Port rather than handed to
	// the kernel directly: it gives kpanic diagnostics and this banner
	// the same line discipline a real UART-backed port would have, and
	// is the one place this binary exercises driver/serial end to end.
	port := serial.NewPort(hostsim.NewConsole())
	kernel.Setup(port)
	port.WriteString(fmt.Sprintf("x1demo %s: starting scenario %d\n", buildinfo.Short(), scenario))

	result := make(chan error, 1)
	_, err := sched.Create(func(arg any) {
		result <- run()
	}, nil, "demo", sched.MinStackBytes, sched.MaxPriority)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ts := &hostsim.Ticker{Hz: sched.TickHz, MaxTicks: ticks}
	go kernel.Run(ctx, ts)

	if window && !headless {
		w := &hostsim.Window{Status: func() string {
			return fmt.Sprintf("x1demo %s\nscenario %d running...", buildinfo.Short(), scenario)
		}}
		go func() {
			if err := w.Run(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}()
	}

	if err := <-result; err != nil {
		fmt.Fprintf(os.Stderr, "scenario %d failed: %v\n", scenario, err)
		os.Exit(1)
	}

	fmt.Printf("scenario %d passed\n", scenario)
}
