// Command benchmark measures submit-to-resolve latency per lane against a
// live run loop and prints the distribution per lane.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/delveq/domsched/elemtree"
	"github.com/delveq/domsched/pace"
	"github.com/delveq/domsched/sched"
)

const (
	elementsKey = "elements"
	opsKey      = "ops"
	perFrameKey = "max-per-frame"
	frameUsKey  = "frame-us"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure mutation scheduling latency per lane",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  elementsKey,
				Usage: "Number of elements in the tree",
				Value: 256,
			},
			&cli.UintFlag{
				Name:  opsKey,
				Usage: "Operations to submit per lane",
				Value: 10_000,
			},
			&cli.UintFlag{
				Name:  perFrameKey,
				Usage: "Batch bound per pacing cycle",
				Value: sched.DefaultMaxPerFrame,
			},
			&cli.UintFlag{
				Name:  frameUsKey,
				Usage: "Frame interval in microseconds",
				Value: 1000,
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	elements := int(cmd.Uint(elementsKey))
	ops := int(cmd.Uint(opsKey))
	perFrame := int(cmd.Uint(perFrameKey))
	frame := time.Duration(cmd.Uint(frameUsKey)) * time.Microsecond

	root := elemtree.NewRoot()
	els := make([]*elemtree.Element, elements)
	for i := range els {
		els[i] = elemtree.New("div", fmt.Sprintf("el-%d", i))
		if err := root.InsertChild(els[i]); err != nil {
			return err
		}
	}

	loop := pace.NewLoop(pace.WithFrameInterval(frame))
	loop.Start()
	defer loop.Stop()
	s := sched.New(loop, sched.WithMaxPerFrame(perFrame))

	log.Printf("submitting %s ops per lane across %s elements",
		humanize.Comma(int64(ops)), humanize.Comma(int64(elements)))

	tbl := table.NewWriter()
	tbl.SetTitle("Mutation scheduling latency")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"lane", "applied", "avg", "min", "p75", "p99", "max"})

	for _, lane := range []sched.Priority{sched.Immediate, sched.High, sched.Normal, sched.Low} {
		tach := tachymeter.New(&tachymeter.Config{Size: ops})
		handles := make([]*sched.Handle, 0, ops)
		starts := make([]time.Time, 0, ops)

		for i := 0; i < ops; i++ {
			el := els[i%len(els)]
			starts = append(starts, time.Now())
			// unkeyed on purpose: keyed ops would collapse and skew
			// the latency distribution
			h := s.Submit(el, sched.KindSetStyle,
				sched.Payload{Name: "opacity", Value: "0.5"},
				sched.WithPriority(lane))
			handles = append(handles, h)
		}

		applied := 0
		for i, h := range handles {
			r, err := h.Wait(ctx)
			if err != nil {
				return err
			}
			if r.Applied() {
				applied++
			}
			tach.AddTime(time.Since(starts[i]))
		}

		calc := tach.Calc()
		tbl.AppendRows([]table.Row{{
			lane.String(),
			humanize.Comma(int64(applied)),
			calc.Time.Avg,
			calc.Time.Min,
			calc.Time.P75,
			calc.Time.P99,
			calc.Time.Max,
		}})
	}
	tbl.Render()

	m := s.Metrics()
	log.Printf("total=%s executed=%s peak batch=%v",
		humanize.Comma(int64(m.TotalOperations)),
		humanize.Comma(int64(m.TotalExecuted)),
		m.PeakBatch)
	return nil
}
