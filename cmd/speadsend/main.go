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

// Command speadsend builds one heap from a set of id:value items,
// optionally attaches a descriptor for the first item, serializes it,
// and writes the resulting packets to a UDP socket — the send-path
// counterpart to speadcap.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"spead/config"
	"spead/descriptor"
	"spead/heap"
	"spead/wire"
)

func main() {
	app := &cli.App{
		Name:  "speadsend",
		Usage: "send one SPEAD heap to a UDP destination",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a TOML config file"},
			&cli.StringFlag{Name: "dest", Usage: "destination address, host:port", Required: true},
			&cli.Uint64Flag{Name: "heap-cnt", Usage: "heap count to send", Value: 1},
			&cli.IntFlag{Name: "max-packet", Usage: "maximum bytes per packet", Value: 1472},
			&cli.StringSliceFlag{Name: "item", Usage: "id:value pair, repeatable (value sent as an address item)"},
			&cli.StringSliceFlag{Name: "immediate", Usage: "id:value pair, repeatable (value sent as an immediate item)"},
			&cli.StringFlag{Name: "descriptor-name", Usage: "if set, attach a descriptor with this name to the first item"},
		},
		Action: runSend,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "speadsend: %v\n", err)
		os.Exit(1)
	}
}

func parsePair(s string) (wire.ItemID, string, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("expected id:value, got %q", s)
	}
	id, err := strconv.ParseUint(parts[0], 0, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parsing item id %q: %w", parts[0], err)
	}
	return wire.ItemID(id), parts[1], nil
}

func runSend(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
	}
	fl := cfg.Flavour.ToFlavour()

	sh, err := heap.NewSendHeap(fl, c.Uint64("heap-cnt"))
	if err != nil {
		return err
	}

	var firstID wire.ItemID
	haveFirst := false
	for _, raw := range c.StringSlice("item") {
		id, value, err := parsePair(raw)
		if err != nil {
			return err
		}
		sh.AddItem(id, []byte(value), false)
		if !haveFirst {
			firstID, haveFirst = id, true
		}
	}
	for _, raw := range c.StringSlice("immediate") {
		id, value, err := parsePair(raw)
		if err != nil {
			return err
		}
		n, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return fmt.Errorf("parsing immediate value %q: %w", value, err)
		}
		var buf [8]byte
		for i := 7; i >= 0; i-- {
			buf[i] = byte(n)
			n >>= 8
		}
		sh.AddItem(id, buf[:], true)
		if !haveFirst {
			firstID, haveFirst = id, true
		}
	}

	if name := c.String("descriptor-name"); name != "" && haveFirst {
		if err := sh.AddDescriptor(descriptor.Descriptor{ID: firstID, Name: name}); err != nil {
			return err
		}
	}

	packets, err := sh.Serialize(c.Int("max-packet"))
	if err != nil {
		return err
	}

	conn, err := net.Dial("udp4", c.String("dest"))
	if err != nil {
		return fmt.Errorf("spead: dialing %q: %w", c.String("dest"), err)
	}
	defer conn.Close()

	for _, pkt := range packets {
		if _, err := conn.Write(pkt); err != nil {
			return fmt.Errorf("spead: writing packet: %w", err)
		}
	}
	fmt.Printf("speadsend: sent heap %d as %d packet(s) to %s\n", c.Uint64("heap-cnt"), len(packets), c.String("dest"))
	return nil
}
