// Package main provides the phrase seeder: it loads a YAML phrase pack into
// the phrases table so rounds draw from curated content instead of the
// built-in fallback.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/finalsentence/server/internal/config"
	"github.com/finalsentence/server/internal/game/phrase"
	"github.com/finalsentence/server/internal/storage/postgres"
)

// phrasePack is the on-disk shape of a phrase content file.
type phrasePack struct {
	Phrases []phrase.Phrase `yaml:"phrases"`
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	packPath := flag.String("pack", "content/phrases.yaml", "path to phrase pack YAML file")
	flag.Parse()

	raw, err := os.ReadFile(*packPath)
	if err != nil {
		log.Fatalf("reading phrase pack: %v", err)
	}

	var pack phrasePack
	if err := yaml.Unmarshal(raw, &pack); err != nil {
		log.Fatalf("parsing phrase pack: %v", err)
	}
	if len(pack.Phrases) == 0 {
		log.Fatalf("phrase pack %s contains no phrases", *packPath)
	}
	for i, p := range pack.Phrases {
		if strings.TrimSpace(p.Text) == "" {
			log.Fatalf("phrase %d in %s has empty text", i, *packPath)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer store.Close()

	inserted, updated, err := store.SeedPhrases(ctx, pack.Phrases)
	if err != nil {
		log.Fatalf("seeding phrases: %v", err)
	}

	fmt.Printf("seeded %d phrases (%d inserted, %d updated) in %s\n",
		len(pack.Phrases), inserted, updated, time.Since(start).Round(time.Millisecond))
}
