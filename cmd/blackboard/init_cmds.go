package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sphildreth/blackboard/internal/assets"
)

var initCmd = &cobra.Command{
	Use:   "init [config_name]",
	Short: "Initialize a new Blackboard BBS configuration",
	Long:  "Creates a new configuration file and directory structure for a Blackboard BBS, prompting for details.",
	Args:  cobra.MaximumNArgs(1),
	Run:   runInit,
}

type ConfigTemplateData struct {
	BoardName       string
	PrettyBoardName string
	Description     string
	Hostname        string
	Website         string
}

func runInit(cmd *cobra.Command, args []string) {
	configName := "config"
	if len(args) > 0 {
		configName = args[0]
	}
	safeName := sanitizeFilename(configName)

	var data ConfigTemplateData
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Board Name").
				Value(&data.BoardName),
			huh.NewInput().
				Title("Pretty Board Name").
				Description("Displayed in banners").
				Value(&data.PrettyBoardName),
			huh.NewInput().
				Title("Description").
				Value(&data.Description),
			huh.NewInput().
				Title("Hostname").
				Value(&data.Hostname),
			huh.NewInput().
				Title("Website").
				Value(&data.Website),
		),
	)

	if err := form.Run(); err != nil {
		log.Fatal(err)
	}

	configFile := safeName + ".yml"
	fmt.Printf("Initializing '%s' (config: %s)...\n", data.BoardName, configFile)

	for _, dir := range []string{"data", "logs", "art"} {
		path := filepath.Join(safeName, dir)
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("Error creating directory %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Created directory: %s\n", path)
	}

	viewsContent, err := assets.Templates.ReadFile("templates/views.yml")
	if err != nil {
		fmt.Printf("Error reading embedded views template: %v\n", err)
	} else {
		if err := os.WriteFile("views.yml", viewsContent, 0644); err != nil {
			fmt.Printf("Error writing views file: %v\n", err)
		} else {
			fmt.Println("Created views file: views.yml")
		}
	}

	tmplContent, err := assets.Templates.ReadFile("templates/config.yml")
	if err != nil {
		fmt.Printf("Error reading embedded config template: %v\n", err)
		os.Exit(1)
	}

	// Point the template's config/ paths at the directories just created.
	tmplContentStr := strings.ReplaceAll(string(tmplContent), "config/", safeName+"/")

	tmpl, err := template.New("config").Parse(tmplContentStr)
	if err != nil {
		fmt.Printf("Error parsing template: %v\n", err)
		os.Exit(1)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		fmt.Printf("Error executing template: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(configFile, buf.Bytes(), 0644); err != nil {
		fmt.Printf("Error writing config file %s: %v\n", configFile, err)
		os.Exit(1)
	}

	fmt.Printf("Configuration file created: %s\n", configFile)
	fmt.Println("Initialization complete.")
}

func sanitizeFilename(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	re := regexp.MustCompile(`[^a-z0-9_-]`)
	return re.ReplaceAllString(name, "")
}
