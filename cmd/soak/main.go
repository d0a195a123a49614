// Command soak drives a sustained mixed workload through the scheduler and
// prints a metrics table once per second.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/delveq/domsched/elemtree"
	"github.com/delveq/domsched/pace"
	"github.com/delveq/domsched/sched"
)

var (
	duration = flag.Duration("duration", 10*time.Second, "how long to run")
	elements = flag.Int("elements", 512, "elements in the tree")
	rate     = flag.Int("rate", 20_000, "submissions per second")
)

var classNames = []string{"dimmed", "hidden", "active", "pinned", "stale"}

func main() {
	flag.Parse()
	log.Print("starting soak run, please wait...")
	defer log.Print("soak run finished")

	root := elemtree.NewRoot()
	els := make([]*elemtree.Element, *elements)
	for i := range els {
		els[i] = elemtree.New("div", fmt.Sprintf("el-%d", i))
		if err := root.InsertChild(els[i]); err != nil {
			log.Fatal(err)
		}
	}

	loop := pace.NewLoop()
	loop.Start()
	defer loop.Stop()
	s := sched.New(loop)

	rng := rand.New(rand.NewSource(1))
	lanes := []sched.Priority{sched.High, sched.Normal, sched.Normal, sched.Low}

	stop := time.After(*duration)
	report := time.NewTicker(time.Second)
	defer report.Stop()
	pump := time.NewTicker(10 * time.Millisecond)
	defer pump.Stop()
	perPump := *rate / 100

	for {
		select {
		case <-stop:
			render(s.Metrics())
			return
		case <-report.C:
			render(s.Metrics())
		case <-pump.C:
			for i := 0; i < perPump; i++ {
				submitOne(s, els[rng.Intn(len(els))], rng, lanes)
			}
		}
	}
}

func submitOne(s *sched.Scheduler, el *elemtree.Element, rng *rand.Rand, lanes []sched.Priority) {
	lane := sched.WithPriority(lanes[rng.Intn(len(lanes))])
	switch rng.Intn(4) {
	case 0:
		s.ApplyClass(el, sched.ClassToggle, classNames[rng.Intn(len(classNames))], lane)
	case 1:
		s.SetStyle(el, "opacity", fmt.Sprintf("0.%d", rng.Intn(10)), lane)
	case 2:
		v := fmt.Sprint(rng.Intn(100))
		s.SetAttribute(el, "data-rank", &v, lane)
	default:
		s.Submit(el, sched.KindSetText, sched.Payload{Value: "tick"}, lane)
	}
}

func render(m sched.Metrics) {
	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{"lane", "depth", "cycles"})
	for p := sched.Immediate; p <= sched.Low; p++ {
		tbl.Append([]string{
			p.String(),
			humanize.Comma(int64(m.Lanes[p].Depth)),
			humanize.Comma(int64(m.Lanes[p].Cycles)),
		})
	}
	tbl.SetFooter([]string{
		fmt.Sprintf("submitted %s", humanize.Comma(int64(m.TotalOperations))),
		fmt.Sprintf("executed %s", humanize.Comma(int64(m.TotalExecuted))),
		fmt.Sprintf("avg %v peak %v", m.AvgBatch, m.PeakBatch),
	})
	tbl.Render()
}
