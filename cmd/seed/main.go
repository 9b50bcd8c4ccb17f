package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"mathwizard/internal/config"
	"mathwizard/internal/database"
	"mathwizard/internal/logging"
	"mathwizard/internal/models"
	"mathwizard/internal/repository"
	"mathwizard/internal/service"
)

//go:embed curriculum.yaml
var defaultCurriculum []byte

// embeddedProvider serves the built-in curriculum to koanf
type embeddedProvider []byte

func (p embeddedProvider) ReadBytes() ([]byte, error) { return p, nil }

func (p embeddedProvider) Read() (map[string]any, error) {
	return nil, fmt.Errorf("embedded provider does not support Read()")
}

func main() {
	path := flag.String("file", "", "YAML topic file (default: built-in curriculum)")
	replace := flag.Bool("replace", false, "Delete existing topics for each seeded year first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})

	topics, err := loadTopics(*path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load topics")
	}

	ctx := context.Background()

	db, err := database.InitializeWithConfig(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}

	topicService := service.NewTopicService(repository.NewTopicRepository(db))
	result, err := topicService.Seed(ctx, topics, *replace)
	if err != nil {
		logging.Error().Err(err).Msg("Seeding failed")
		os.Exit(1)
	}

	fmt.Printf("Seeded %d topics (%d new, %d updated, %d removed)\n",
		len(topics), result.Inserted, result.Updated, result.Deleted)
}

// loadTopics parses the "topics" list from path, or the built-in curriculum when path is empty
func loadTopics(path string) ([]models.Topic, error) {
	k := koanf.New(".")

	var provider koanf.Provider = embeddedProvider(defaultCurriculum)
	if path != "" {
		provider = file.Provider(path)
	}
	if err := k.Load(provider, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse topics: %w", err)
	}

	var topics []models.Topic
	if err := k.Unmarshal("topics", &topics); err != nil {
		return nil, fmt.Errorf("failed to decode topics: %w", err)
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics found")
	}
	return topics, nil
}
