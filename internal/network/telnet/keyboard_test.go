package telnet_test

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sphildreth/blackboard/internal/app"
	"github.com/sphildreth/blackboard/internal/network/telnet"
)

var _ = Describe("Key Decoding", func() {
	var (
		serverConn net.Conn
		clientConn net.Conn
		connection *telnet.Connection
	)

	type sent struct {
		key telnet.KeyEvent
		ok  bool
	}

	// readKeys pulls n key events off the connection in the background so the
	// test can write client bytes without deadlocking the pipe.
	readKeys := func(n int) chan sent {
		results := make(chan sent, n)
		go func() {
			defer GinkgoRecover()
			for i := 0; i < n; i++ {
				key, ok := connection.ReadKey()
				results <- sent{key, ok}
			}
		}()
		return results
	}

	expectKey := func(results chan sent, code telnet.KeyCode) {
		var r sent
		Eventually(results, time.Second).Should(Receive(&r))
		Expect(r.ok).To(BeTrue())
		Expect(r.key.Code).To(Equal(code))
	}

	BeforeEach(func() {
		serverConn, clientConn = net.Pipe()
		connection = telnet.NewConnection(serverConn, app.Logger, telnet.Options{
			EscTimeout: 50 * time.Millisecond,
		})

		serverConn.SetDeadline(time.Now().Add(2 * time.Second))
		clientConn.SetDeadline(time.Now().Add(2 * time.Second))
	})

	AfterEach(func() {
		connection.Disconnect()
		clientConn.Close()
	})

	Context("ReadKey", func() {
		It("decodes printable characters", func() {
			results := readKeys(2)
			clientConn.Write([]byte("Hi"))

			var r sent
			Eventually(results).Should(Receive(&r))
			Expect(r.key).To(Equal(telnet.KeyEvent{Code: telnet.KeyChar, Ch: 'H'}))
			Eventually(results).Should(Receive(&r))
			Expect(r.key.Ch).To(Equal(byte('i')))
		})

		It("decodes CR LF as a single Enter", func() {
			results := readKeys(2)
			clientConn.Write([]byte("\r\nx"))

			expectKey(results, telnet.KeyEnter)

			var r sent
			Eventually(results).Should(Receive(&r))
			Expect(r.key).To(Equal(telnet.KeyEvent{Code: telnet.KeyChar, Ch: 'x'}))
		})

		It("decodes CR NUL as a single Enter", func() {
			results := readKeys(2)
			clientConn.Write([]byte{'\r', 0, 'x'})

			expectKey(results, telnet.KeyEnter)

			var r sent
			Eventually(results).Should(Receive(&r))
			Expect(r.key.Ch).To(Equal(byte('x')))
		})

		It("decodes arrow keys", func() {
			results := readKeys(4)
			clientConn.Write([]byte("\x1b[A\x1b[B\x1b[C\x1b[D"))

			expectKey(results, telnet.KeyUp)
			expectKey(results, telnet.KeyDown)
			expectKey(results, telnet.KeyRight)
			expectKey(results, telnet.KeyLeft)
		})

		It("decodes navigation keys", func() {
			results := readKeys(3)
			clientConn.Write([]byte("\x1b[3~\x1b[5~\x1b[6~"))

			expectKey(results, telnet.KeyDelete)
			expectKey(results, telnet.KeyPageUp)
			expectKey(results, telnet.KeyPageDown)
		})

		It("decodes function keys in both encodings", func() {
			results := readKeys(3)
			clientConn.Write([]byte("\x1bOP\x1b[15~\x1b[24~"))

			expectKey(results, telnet.KeyF1)
			expectKey(results, telnet.KeyF5)
			expectKey(results, telnet.KeyF12)
		})

		It("decodes both backspace encodings", func() {
			results := readKeys(2)
			clientConn.Write([]byte{0x08, 0x7F})

			expectKey(results, telnet.KeyBackspace)
			expectKey(results, telnet.KeyBackspace)
		})

		It("decodes a bare ESC as the Escape key after the timeout", func() {
			results := readKeys(1)
			clientConn.Write([]byte{0x1B})

			expectKey(results, telnet.KeyEscape)
		})

		It("absorbs unrecognized CSI sequences as a single unknown key", func() {
			results := readKeys(2)
			clientConn.Write([]byte("\x1b[99~x"))

			expectKey(results, telnet.KeyUnknown)

			var r sent
			Eventually(results).Should(Receive(&r))
			Expect(r.key.Ch).To(Equal(byte('x')))
		})

		It("discards stray control bytes", func() {
			results := readKeys(1)
			clientConn.Write([]byte{0x01, 0x02, 'z'})

			var r sent
			Eventually(results).Should(Receive(&r))
			Expect(r.key).To(Equal(telnet.KeyEvent{Code: telnet.KeyChar, Ch: 'z'}))
		})
	})

	Context("ReadLine", func() {
		type lineResult struct {
			line string
			ok   bool
		}

		readLine := func() chan lineResult {
			connection.SetEcho(false)
			results := make(chan lineResult, 1)
			go func() {
				defer GinkgoRecover()
				line, ok := connection.ReadLine()
				results <- lineResult{line, ok}
			}()
			return results
		}

		It("returns the accumulated line on Enter", func() {
			results := readLine()
			clientConn.Write([]byte("hello\r\n"))

			var r lineResult
			Eventually(results, time.Second).Should(Receive(&r))
			Expect(r.ok).To(BeTrue())
			Expect(r.line).To(Equal("hello"))
		})

		It("erases with backspace", func() {
			results := readLine()
			clientConn.Write([]byte("abX\x7f\r"))

			var r lineResult
			Eventually(results, time.Second).Should(Receive(&r))
			Expect(r.line).To(Equal("ab"))
		})

		It("clears the buffer on Escape", func() {
			results := readLine()
			clientConn.Write([]byte("zzz\x1b"))
			time.Sleep(100 * time.Millisecond)
			clientConn.Write([]byte("ok\r"))

			var r lineResult
			Eventually(results, time.Second).Should(Receive(&r))
			Expect(r.line).To(Equal("ok"))
		})

		It("swallows Enter on an empty buffer", func() {
			results := readLine()
			clientConn.Write([]byte("\r\n\r\ngo\r"))

			var r lineResult
			Eventually(results, time.Second).Should(Receive(&r))
			Expect(r.line).To(Equal("go"))
		})

		It("ignores navigation keys mid-line", func() {
			results := readLine()
			clientConn.Write([]byte("AB\x1b[3~C\r"))

			var r lineResult
			Eventually(results, time.Second).Should(Receive(&r))
			Expect(r.line).To(Equal("ABC"))
		})
	})
})
