// Command listtools loads a YAML file of server configurations and prints
// the tools one configured server exposes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jothir/mcpbridge"
)

func main() {
	configPath := flag.String("config", "servers.yaml", "path to the server config file")
	serverName := flag.String("server", "", "name of the server entry to query")
	flag.Parse()

	configs, err := mcpbridge.LoadServerConfigs(*configPath)
	if err != nil {
		log.Fatalf("failed to load configs: %v", err)
	}

	cfg, ok := configs[*serverName]
	if !ok {
		log.Fatalf("no server named %q in %s", *serverName, *configPath)
	}

	client := mcpbridge.NewClient()

	res := client.ListTools(context.Background(), cfg)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !res.OK {
		log.Fatalf("failed to list tools: %s", res.Message)
	}

	for _, tool := range res.Tools {
		fmt.Printf("%s\t%s\n", tool.Name, tool.Description)
	}
}
