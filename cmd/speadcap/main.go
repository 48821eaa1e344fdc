//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Command speadcap wires a UDP reader into a receive stream and
// writes every frozen heap it produces to a capture file. It
// supplements the core codec with a runnable end-to-end demonstration
// of the receive path, the way real protocol libraries ship a
// -cat/-dump tool alongside the wire format.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/urfave/cli/v2"

	"spead/config"
	"spead/descriptor"
	"spead/memorypool"
	"spead/metrics"
	"spead/reader/udpreader"
	"spead/ringbuffer"
	"spead/stream"
)

func main() {
	app := &cli.App{
		Name:  "speadcap",
		Usage: "capture a SPEAD stream to a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a TOML config file"},
			&cli.StringFlag{Name: "listen", Usage: "address to listen on, host:port", Value: "0.0.0.0:8888"},
			&cli.StringFlag{Name: "multicast-group", Usage: "multicast group to join, empty for unicast"},
			&cli.StringFlag{Name: "out", Usage: "capture file path", Required: true},
			&cli.BoolFlag{Name: "snappy", Usage: "snappy-compress each captured heap payload"},
			&cli.IntFlag{Name: "max-heaps", Usage: "live heap capacity", Value: 8},
			&cli.IntFlag{Name: "workers", Usage: "strand executor worker threads", Value: 4},
		},
		Action: runCapture,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "speadcap: %v\n", err)
		os.Exit(1)
	}
}

func runCapture(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
	}
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}
	if c.IsSet("multicast-group") {
		cfg.Multicast = c.String("multicast-group")
	}
	if c.IsSet("max-heaps") {
		cfg.MaxHeaps = c.Int("max-heaps")
	}
	if c.IsSet("workers") {
		cfg.WorkerThreads = c.Int("workers")
	}
	cfg.CapturePath = c.String("out")
	cfg.CaptureSnappy = c.Bool("snappy")

	executor := stream.NewExecutor(cfg.WorkerThreads)
	defer executor.Close()

	st := stream.NewStream(executor, nil)
	st.SetMaxHeaps(cfg.MaxHeaps)
	st.SetMemoryPool(memorypool.NewSyncPool(64 * 1024))

	collector := metrics.NewCollector(time.Minute, map[string]string{"session": st.ID()})
	st.SetMetrics(collector)

	registry := descriptor.NewRegistry(0)
	tail := ringbuffer.New(cfg.RingBufferCapacity)

	sink, err := newCaptureSink(cfg.CapturePath, cfg.CaptureSnappy, registry, tail)
	if err != nil {
		return err
	}
	defer sink.Close()
	st.SetSink(sink)

	r := udpreader.New(st, cfg.ListenAddr, cfg.Multicast, 0)
	st.AddReader(r)
	if err := st.StartReaders(); err != nil {
		return fmt.Errorf("spead: starting reader: %w", err)
	}
	glog.Infof("speadcap: session %s listening on %s, writing to %s", st.ID(), cfg.ListenAddr, cfg.CapturePath)

	var consumers sync.WaitGroup
	consumers.Add(1)
	go runLiveTail(&consumers, tail, registry)

	stopMetrics := make(chan struct{})
	consumers.Add(1)
	go logMetricsPeriodically(&consumers, st.ID(), collector, stopMetrics)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	glog.Infof("speadcap: session %s shutting down", st.ID())
	st.Stop()
	tail.Stop()
	close(stopMetrics)
	consumers.Wait()
	return nil
}

// runLiveTail drains the ring buffer's secondary fan-out of frozen
// heaps for as long as the stream runs, logging each one's descriptor
// name when the registry has learned it. It is the consumer half of
// the producer/consumer split ringbuffer.RingBuffer documents for
// itself.
func runLiveTail(wg *sync.WaitGroup, tail *ringbuffer.RingBuffer, registry *descriptor.Registry) {
	defer wg.Done()
	for {
		h, ok := tail.PopBlocking()
		if !ok {
			return
		}
		name := "<unknown>"
		for _, p := range h.Items() {
			if d, ok := registry.Get(p.ID); ok {
				name = d.Name
				break
			}
		}
		glog.V(1).Infof("speadcap: live-tail heap %d item %s (%d bytes)", h.HeapCnt(), name, len(h.Payload()))
	}
}

// logMetricsPeriodically emits the collector's datapoints to the log
// every 30 seconds, the way a real deployment would instead hand them
// to an sfxclient.Scheduler.
func logMetricsPeriodically(wg *sync.WaitGroup, sessionID string, collector *metrics.Collector, stop <-chan struct{}) {
	defer wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, dp := range collector.Datapoints() {
				glog.V(1).Infof("speadcap: session %s metric %s=%v", sessionID, dp.Metric, dp.Value)
			}
		case <-stop:
			return
		}
	}
}
