//go:build tinygo

package main

import (
	"context"
	"time"

	"github.com/richardbraun/x1/board/pico"
	"github.com/richardbraun/x1/kernel"
	"github.com/richardbraun/x1/sched"
)

func main() {
	console := pico.NewConsole()
	kernel.Setup(console)

	_, _ = sched.Create(func(arg any) {
		scenario1()
	}, nil, "demo", sched.MinStackBytes, sched.MaxPriority)

	ts := &pico.Ticker{Period: time.Second / time.Duration(sched.TickHz)}
	go kernel.Run(context.Background(), ts)

	select {}
}
