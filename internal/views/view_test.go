package views_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sphildreth/blackboard/internal/config"
	"github.com/sphildreth/blackboard/internal/modules"
	"github.com/sphildreth/blackboard/internal/nodes"
	"github.com/sphildreth/blackboard/internal/views"
)

// echoModule answers one command and refuses everything else, standing in
// for a real bound module.
type echoModule struct {
	lastCmd  string
	lastArgs string
}

func (m *echoModule) Name() string        { return "echo" }
func (m *echoModule) Description() string { return "test module" }

func (m *echoModule) HandleCommand(node *nodes.Node, cmd, args string) (bool, error) {
	if cmd != "echo" {
		return false, nil
	}
	m.lastCmd, m.lastArgs = cmd, args
	return true, nil
}

var _ = Describe("View Manager", func() {
	var (
		manager  *views.Manager
		registry *modules.Registry
		mod      *echoModule
		node     *nodes.Node
	)

	viewConfig := map[string]config.View{
		"main": {
			Type:   "menu",
			Module: "echo",
			Actions: map[string]string{
				"1": "info",
				"?": "help",
			},
		},
		"info": {
			Type: "art",
			Next: &config.NextView{View: "back"},
		},
		"help": {
			Type: "art",
			Next: &config.NextView{View: "main"},
		},
	}

	BeforeEach(func() {
		mod = &echoModule{}
		registry = modules.NewRegistry()
		registry.Register(mod)
		manager = views.NewManager(viewConfig, registry, "main")
		node = &nodes.Node{ID: 1}
	})

	Describe("navigation", func() {
		It("starts at the initial view", func() {
			Expect(manager.Current()).To(Equal("main"))
		})

		It("pushes on an action match", func() {
			handled, err := manager.HandleInput("1", node)
			Expect(err).NotTo(HaveOccurred())
			Expect(handled).To(BeTrue())
			Expect(manager.Current()).To(Equal("info"))
		})

		It("pops on the reserved back target", func() {
			manager.HandleInput("1", node)
			Expect(manager.Current()).To(Equal("info"))

			// Any key advances a view with an undelayed next.
			handled, err := manager.HandleInput("x", node)
			Expect(err).NotTo(HaveOccurred())
			Expect(handled).To(BeTrue())
			Expect(manager.Current()).To(Equal("main"))
		})

		It("pops to nowhere gracefully at the stack bottom", func() {
			Expect(manager.Pop()).To(Equal(""))
			Expect(manager.Current()).To(Equal("main"))
		})
	})

	Describe("module dispatch", func() {
		It("routes commands to the bound module first", func() {
			handled, err := manager.HandleInput("echo hello world", node)
			Expect(err).NotTo(HaveOccurred())
			Expect(handled).To(BeTrue())
			Expect(mod.lastCmd).To(Equal("echo"))
			Expect(mod.lastArgs).To(Equal("hello world"))
			Expect(manager.Current()).To(Equal("main"))
		})

		It("falls through to actions when the module declines", func() {
			handled, err := manager.HandleInput("?", node)
			Expect(err).NotTo(HaveOccurred())
			Expect(handled).To(BeTrue())
			Expect(manager.Current()).To(Equal("help"))
		})

		It("reports unhandled input", func() {
			handled, err := manager.HandleInput("gibberish", node)
			Expect(err).NotTo(HaveOccurred())
			Expect(handled).To(BeFalse())
		})
	})

	Describe("unknown views", func() {
		It("errors instead of navigating", func() {
			manager = views.NewManager(viewConfig, registry, "missing")
			_, err := manager.HandleInput("1", node)
			Expect(err).To(HaveOccurred())
		})
	})
})
