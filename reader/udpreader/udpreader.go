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

// Package udpreader implements a reference stream.Reader reading
// packets off a UDP socket, optionally joined to a multicast group.
// It is not part of the protocol engine itself — spec.md treats
// concrete readers as out of scope — but exercises the Reader
// contract and gives the module a runnable receive path, the way the
// teacher's OutboundProcessor runs its own goroutine loop around a
// shutdown channel and a WaitGroup (pkg/io/outboundprocessor.go).
package udpreader

import (
	"fmt"
	"net"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/ipv4"

	"spead/stream"
	"spead/wire"
)

// Reader reads SPEAD packets off a UDP socket and posts them onto a
// stream's strand. It implements stream.Reader.
type Reader struct {
	listenAddr string
	multicast  string
	bufSize    int

	stream *stream.Stream

	conn     *net.UDPConn
	pktConn  *ipv4.PacketConn
	wg       sync.WaitGroup
	stopOnce sync.Once
	doneCh   chan struct{}
}

// New builds a Reader that listens on listenAddr (host:port) and, if
// multicastGroup is non-empty, joins that multicast group on every
// available interface. bufSize bounds the largest single datagram it
// will accept; datagrams larger than bufSize are silently truncated
// by the kernel, exactly as plain UDP read semantics dictate.
func New(s *stream.Stream, listenAddr, multicastGroup string, bufSize int) *Reader {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &Reader{
		listenAddr: listenAddr,
		multicast:  multicastGroup,
		bufSize:    bufSize,
		stream:     s,
		doneCh:     make(chan struct{}),
	}
}

// Start opens the socket, joins the multicast group if configured,
// and launches the read loop. It returns once the socket is ready;
// the read loop itself runs in the background until Stop is called.
func (r *Reader) Start() error {
	addr, err := net.ResolveUDPAddr("udp4", r.listenAddr)
	if err != nil {
		return fmt.Errorf("spead: resolving %q: %w", r.listenAddr, err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("spead: listening on %q: %w", r.listenAddr, err)
	}
	r.conn = conn

	if r.multicast != "" {
		group, err := net.ResolveUDPAddr("udp4", r.multicast)
		if err != nil {
			conn.Close()
			return fmt.Errorf("spead: resolving multicast group %q: %w", r.multicast, err)
		}
		pktConn := ipv4.NewPacketConn(conn)
		ifaces, err := net.Interfaces()
		if err != nil {
			conn.Close()
			return fmt.Errorf("spead: listing interfaces: %w", err)
		}
		joined := 0
		for i := range ifaces {
			if err := pktConn.JoinGroup(&ifaces[i], &net.UDPAddr{IP: group.IP}); err == nil {
				joined++
			}
		}
		if joined == 0 {
			conn.Close()
			return fmt.Errorf("spead: failed to join multicast group %q on any interface", r.multicast)
		}
		r.pktConn = pktConn
	}

	r.wg.Add(1)
	go r.readLoop()
	return nil
}

// Stop closes the socket and waits for the read loop to exit. It is
// safe to call more than once.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() {
		close(r.doneCh)
		if r.conn != nil {
			r.conn.Close()
		}
	})
	r.wg.Wait()
}

func (r *Reader) readLoop() {
	defer r.wg.Done()

	buf := make([]byte, r.bufSize)
	for {
		select {
		case <-r.doneCh:
			return
		default:
		}

		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.doneCh:
				return
			default:
				glog.Warningf("spead: udp read error: %v", err)
				continue
			}
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])

		hdr, _, err := wire.DecodeHeader(packet)
		if err != nil {
			glog.V(1).Infof("spead: dropping malformed packet: %v", err)
			continue
		}

		r.stream.Post(func() {
			r.stream.AddPacket(hdr)
		})
	}
}
