package telnet_test

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sphildreth/blackboard/internal/app"
	"github.com/sphildreth/blackboard/internal/network/telnet"
)

var _ = Describe("Telnet Protocol", func() {
	var (
		serverConn net.Conn
		clientConn net.Conn
		connection *telnet.Connection
	)

	// drain keeps the server side pumping its inbound pipeline so IAC
	// sequences are processed while the test drives the client side.
	drain := func() {
		go func() {
			defer GinkgoRecover()
			buf := make([]byte, 1024)
			for {
				if _, err := connection.Read(buf); err != nil {
					return
				}
			}
		}()
	}

	BeforeEach(func() {
		serverConn, clientConn = net.Pipe()
		connection = telnet.NewConnection(serverConn, app.Logger, telnet.Options{})

		// Deadlines prevent infinite hangs on a broken expectation.
		serverConn.SetDeadline(time.Now().Add(2 * time.Second))
		clientConn.SetDeadline(time.Now().Add(2 * time.Second))
	})

	AfterEach(func() {
		connection.Disconnect()
		clientConn.Close()
	})

	Context("Negotiation", func() {
		It("responds to DO ECHO with WILL ECHO", func() {
			drain()

			_, err := clientConn.Write([]byte{telnet.IAC, telnet.DO, telnet.Echo})
			Expect(err).NotTo(HaveOccurred())

			buf := make([]byte, 1024)
			n, err := clientConn.Read(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf[:n]).To(Equal([]byte{telnet.IAC, telnet.WILL, telnet.Echo}))

			Eventually(func() bool {
				return connection.IsLocalOptionEnabled(telnet.Echo)
			}).Should(BeTrue())
		})

		It("refuses options it does not perform", func() {
			drain()

			const bogus = 99
			_, err := clientConn.Write([]byte{telnet.IAC, telnet.DO, bogus})
			Expect(err).NotTo(HaveOccurred())

			buf := make([]byte, 1024)
			n, err := clientConn.Read(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf[:n]).To(Equal([]byte{telnet.IAC, telnet.WONT, bogus}))
		})

		It("refuses options it does not want the client to perform", func() {
			drain()

			const bogus = 42
			_, err := clientConn.Write([]byte{telnet.IAC, telnet.WILL, bogus})
			Expect(err).NotTo(HaveOccurred())

			buf := make([]byte, 1024)
			n, err := clientConn.Read(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf[:n]).To(Equal([]byte{telnet.IAC, telnet.DONT, bogus}))
		})

		It("responds to WILL NAWS with DO NAWS", func() {
			drain()

			_, err := clientConn.Write([]byte{telnet.IAC, telnet.WILL, telnet.NAWS})
			Expect(err).NotTo(HaveOccurred())

			buf := make([]byte, 1024)
			n, err := clientConn.Read(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf[:n]).To(Equal([]byte{telnet.IAC, telnet.DO, telnet.NAWS}))

			Eventually(func() bool {
				return connection.IsRemoteOptionEnabled(telnet.NAWS)
			}).Should(BeTrue())
		})

		It("requests the terminal type after WILL TTYPE", func() {
			drain()

			_, err := clientConn.Write([]byte{telnet.IAC, telnet.WILL, telnet.TType})
			Expect(err).NotTo(HaveOccurred())

			expected := []byte{
				telnet.IAC, telnet.DO, telnet.TType,
				telnet.IAC, telnet.SB, telnet.TType, telnet.SEND, telnet.IAC, telnet.SE,
			}
			received := make([]byte, 0, len(expected))
			buf := make([]byte, 1024)
			for len(received) < len(expected) {
				n, err := clientConn.Read(buf)
				Expect(err).NotTo(HaveOccurred())
				received = append(received, buf[:n]...)
			}
			Expect(received).To(Equal(expected))
		})

		It("handles AYT", func() {
			drain()

			_, err := clientConn.Write([]byte{telnet.IAC, telnet.AYT})
			Expect(err).NotTo(HaveOccurred())

			buf := make([]byte, 1024)
			n, err := clientConn.Read(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf[:n]).To(Equal([]byte("\r\n[Yes]\r\n")))
		})

		It("delivers IAC IAC as a literal 0xFF data byte", func() {
			go func() {
				defer GinkgoRecover()
				_, err := clientConn.Write([]byte{telnet.IAC, telnet.IAC, 'A'})
				Expect(err).NotTo(HaveOccurred())
			}()

			received := make([]byte, 0, 2)
			buf := make([]byte, 16)
			for len(received) < 2 {
				n, err := connection.Read(buf)
				Expect(err).NotTo(HaveOccurred())
				received = append(received, buf[:n]...)
			}
			Expect(received).To(Equal([]byte{0xFF, 'A'}))
		})

		It("decodes an IAC sequence split across writes", func() {
			go func() {
				defer GinkgoRecover()
				clientConn.Write([]byte{telnet.IAC})
				time.Sleep(10 * time.Millisecond)
				clientConn.Write([]byte{telnet.DO})
				time.Sleep(10 * time.Millisecond)
				clientConn.Write([]byte{telnet.Echo, 'x'})
			}()

			// The reply only goes out once all three bytes have arrived.
			buf := make([]byte, 16)
			go func() {
				defer GinkgoRecover()
				for {
					if _, err := connection.Read(buf); err != nil {
						return
					}
				}
			}()

			reply := make([]byte, 16)
			n, err := clientConn.Read(reply)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply[:n]).To(Equal([]byte{telnet.IAC, telnet.WILL, telnet.Echo}))
		})
	})

	Context("Sub-negotiation", func() {
		It("parses NAWS window dimensions", func() {
			drain()

			// IAC SB NAWS <16-bit width> <16-bit height> IAC SE
			data := []byte{
				telnet.IAC, telnet.SB, telnet.NAWS,
				0, 100, 0, 40,
				telnet.IAC, telnet.SE,
			}
			_, err := clientConn.Write(data)
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() int {
				w, _ := connection.WindowSize()
				return w
			}, time.Second).Should(Equal(100))

			_, h := connection.WindowSize()
			Expect(h).To(Equal(40))
		})

		It("parses a TTYPE IS reply", func() {
			drain()

			data := []byte{telnet.IAC, telnet.SB, telnet.TType, telnet.IS}
			data = append(data, []byte("SyncTERM")...)
			data = append(data, telnet.IAC, telnet.SE)
			_, err := clientConn.Write(data)
			Expect(err).NotTo(HaveOccurred())

			Eventually(connection.TerminalType, time.Second).Should(Equal("SyncTERM"))
		})

		It("defaults the window size when NAWS never arrives", func() {
			w, h := connection.WindowSize()
			Expect(w).To(Equal(80))
			Expect(h).To(Equal(25))
		})
	})

	Context("Outbound escaping", func() {
		It("doubles 0xFF bytes in written data", func() {
			go func() {
				defer GinkgoRecover()
				_, err := connection.Write([]byte{'a', 0xFF, 'b'})
				Expect(err).NotTo(HaveOccurred())
			}()

			buf := make([]byte, 16)
			n, err := clientConn.Read(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf[:n]).To(Equal([]byte{'a', 0xFF, 0xFF, 'b'}))
		})
	})
})
