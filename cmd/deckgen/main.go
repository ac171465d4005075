package main

import (
	"flag"
	"log"

	"github.com/openlh/star/internal/config"
)

func main() {
	output := flag.String("output", "cmd/starctl/config.toml", "output path for the starter config")
	validate := flag.Bool("validate", false, "validate an existing config file instead")
	input := flag.String("input", "", "config path for validation (defaults to the output path)")
	force := flag.Bool("force", false, "overwrite an existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = *output
		}
		cfg, err := config.LoadInstrumentConfig(path)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := config.BuildDeck(cfg); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated instrument config at %s", path)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote starter instrument config to %s", *output)
}
