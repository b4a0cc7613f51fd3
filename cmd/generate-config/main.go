// Command generate-config writes an example config.yaml holding every default.
package main

import (
	"fmt"
	"os"

	"github.com/debemdeboas/the-press/internal/config"
	"gopkg.in/yaml.v3"
)

const header = "# The Press configuration example\n# Copy this file to config.yaml and customize as needed.\n# Secrets (ED25519_PUBKEY, CLERK_API, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY) belong in .env.\n\n"

func exampleConfig() ([]byte, error) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return append([]byte(header), data...), nil
}

func main() {
	output, err := exampleConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating YAML: %v\n", err)
		os.Exit(1)
	}

	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if outputFile == "-" {
		fmt.Print(string(output))
		return
	}

	if err := os.WriteFile(outputFile, output, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}
