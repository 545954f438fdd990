package telnet_test

import (
	"io"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sphildreth/blackboard/internal/app"
	"github.com/sphildreth/blackboard/internal/config"
	"github.com/sphildreth/blackboard/internal/network/telnet"
	"github.com/sphildreth/blackboard/internal/nodes"
)

var _ = Describe("Server", func() {
	var (
		server  *telnet.Server
		manager *nodes.Manager
	)

	dial := func() net.Conn {
		var conn net.Conn
		Eventually(func() error {
			addr := server.Addr()
			if addr == nil {
				return io.ErrNoProgress
			}
			var err error
			conn, err = net.Dial("tcp", addr.String())
			return err
		}, 2*time.Second).Should(Succeed())
		conn.SetDeadline(time.Now().Add(2 * time.Second))
		return conn
	}

	BeforeEach(func() {
		manager = nodes.NewManager(2)

		var err error
		server, err = telnet.NewServer(config.TelnetConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    0,
		}, manager, app.Logger, func(conn *telnet.Connection, node *nodes.Node) {
			// Sessions read until the peer goes away.
			for {
				if _, ok := conn.ReadKey(); !ok {
					return
				}
			}
		})
		Expect(err).NotTo(HaveOccurred())

		go func() {
			defer GinkgoRecover()
			Expect(server.ListenAndServe()).To(Succeed())
		}()
	})

	AfterEach(func() {
		server.Stop()
	})

	It("requires a session handler", func() {
		_, err := telnet.NewServer(config.TelnetConfig{}, manager, app.Logger, nil)
		Expect(err).To(HaveOccurred())
	})

	It("negotiates with accepted connections", func() {
		conn := dial()
		defer conn.Close()

		// The option burst arrives before anything else.
		buf := make([]byte, 2)
		_, err := io.ReadFull(conn, buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(buf[0]).To(Equal(byte(telnet.IAC)))
		Expect(buf[1]).To(Equal(byte(telnet.WILL)))
	})

	It("enforces the connection ceiling", func() {
		first := dial()
		defer first.Close()
		second := dial()
		defer second.Close()

		// Both callers occupy a slot once their negotiation burst shows up.
		for _, conn := range []net.Conn{first, second} {
			buf := make([]byte, 1)
			_, err := io.ReadFull(conn, buf)
			Expect(err).NotTo(HaveOccurred())
		}
		Eventually(func() int {
			return len(manager.Active())
		}).Should(Equal(2))

		// The third caller is closed without a single byte of negotiation.
		third := dial()
		defer third.Close()

		buf := make([]byte, 16)
		n, err := third.Read(buf)
		Expect(n).To(BeZero())
		Expect(err).To(Equal(io.EOF))

		// A freed slot makes room for the next caller.
		first.Close()
		Eventually(func() int {
			return len(manager.Active())
		}, 2*time.Second).Should(Equal(1))

		fourth := dial()
		defer fourth.Close()

		one := make([]byte, 1)
		_, err = io.ReadFull(fourth, one)
		Expect(err).NotTo(HaveOccurred())
		Expect(one[0]).To(Equal(byte(telnet.IAC)))
	})
})
