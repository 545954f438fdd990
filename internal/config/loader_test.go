package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sphildreth/blackboard/internal/config"
)

var _ = Describe("Config Loading", func() {
	var dir string

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("loads a flat config file", func() {
		path := write("main.yml", `
maxNodes: 8
general:
  boardName: Testboard
listeners:
  telnet:
    enabled: true
    host: 127.0.0.1
    port: 2323
    idleTimeout: 5m
`)

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.MaxNodes).To(Equal(8))
		Expect(cfg.General.BoardName).To(Equal("Testboard"))
		Expect(cfg.Listeners.Telnet.Port).To(Equal(2323))
		Expect(cfg.Listeners.Telnet.IdleTimeout.Std()).To(Equal(5 * time.Minute))
	})

	It("merges included files, with the including file winning", func() {
		write("base.yml", `
maxNodes: 4
debug: true
`)
		path := write("main.yml", `
include:
  - base.yml
maxNodes: 16
`)

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.MaxNodes).To(Equal(16))
		Expect(cfg.Debug).To(BeTrue())
		Expect(cfg.LoadedFiles).To(HaveLen(2))
	})

	It("expands environment variables", func() {
		GinkgoT().Setenv("TEST_BOARD_NAME", "EnvBoard")
		path := write("main.yml", `
general:
  boardName: ${TEST_BOARD_NAME}
`)

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.General.BoardName).To(Equal("EnvBoard"))
	})

	It("rejects malformed durations", func() {
		path := write("main.yml", `
listeners:
  telnet:
    idleTimeout: not-a-duration
`)

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
	})

	It("errors on a missing file", func() {
		_, err := config.Load(filepath.Join(dir, "absent.yml"))
		Expect(err).To(HaveOccurred())
	})

	Describe("view definitions", func() {
		It("accepts next as a bare view name", func() {
			path := write("main.yml", `
views:
  welcome:
    type: art
    art: welcome
    next: main
`)

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Views["welcome"].Next.View).To(Equal("main"))
			Expect(cfg.Views["welcome"].Next.Delay).To(BeZero())
		})

		It("accepts next with a delay", func() {
			path := write("main.yml", `
views:
  splash:
    type: art
    next:
      view: main
      delay: 1500
`)

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Views["splash"].Next.View).To(Equal("main"))
			Expect(cfg.Views["splash"].Next.Delay).To(Equal(1500))
		})

		It("parses action tables", func() {
			path := write("main.yml", `
views:
  main:
    type: menu
    module: sysop
    actions:
      "1": info
      "?": help
`)

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Views["main"].Module).To(Equal("sysop"))
			Expect(cfg.Views["main"].Actions).To(HaveKeyWithValue("?", "help"))
		})
	})
})
