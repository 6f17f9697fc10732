package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/contentcycle/internal/database"
	"github.com/BaSui01/contentcycle/service"
	"github.com/BaSui01/contentcycle/store"
	"github.com/BaSui01/contentcycle/types"
)

// =============================================================================
// 🌱 seed 命令
// =============================================================================

// personaSeedFile 画像种子文件结构
type personaSeedFile struct {
	Personas []personaSeed `yaml:"personas"`
}

// personaSeed 单个画像种子
type personaSeed struct {
	ID           string `yaml:"id"`
	Type         string `yaml:"type"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	SystemPrompt string `yaml:"system_prompt"`
}

func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	seedFile := fs.String("file", "", "Path to a YAML persona seed file (defaults to built-in personas)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	db, err := database.Open(database.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(),
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	st := newStore(db, logger)
	if err := st.AutoMigrate(); err != nil {
		logger.Fatal("Database migration failed", zap.Error(err))
	}

	ctx := context.Background()
	var created int

	if *seedFile != "" {
		created, err = seedFromFile(ctx, st, *seedFile)
	} else {
		// seed 命令只需要写库，不需要推理客户端
		svc := service.New(st, nil, cfg.AI.Parallelism, logger)
		created, err = svc.SeedPersonas(ctx)
	}
	if err != nil {
		logger.Fatal("Persona seeding failed", zap.Error(err))
	}

	fmt.Printf("Seeded %d personas\n", created)
}

// seedFromFile 从 YAML 文件写入画像，已存在的 ID 跳过。返回新增数量。
func seedFromFile(ctx context.Context, st *store.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file personaSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(file.Personas) == 0 {
		return 0, fmt.Errorf("seed file %s contains no personas", path)
	}

	created := 0
	for i, seed := range file.Personas {
		typ := types.PersonaType(seed.Type)
		if typ != types.PersonaTargetMarket && typ != types.PersonaRandom {
			return created, fmt.Errorf("persona %d: unknown type %q", i, seed.Type)
		}
		if seed.Name == "" || seed.SystemPrompt == "" {
			return created, fmt.Errorf("persona %d: name and system_prompt are required", i)
		}

		p := &store.Persona{
			ID:           seed.ID,
			Type:         typ,
			Name:         seed.Name,
			Description:  seed.Description,
			SystemPrompt: seed.SystemPrompt,
		}
		if p.ID == "" {
			p.ID = "persona-" + uuid.NewString()[:8]
		} else if _, err := st.GetPersona(ctx, p.ID); err == nil {
			continue
		} else if types.GetErrorCode(err) != types.ErrPersonaNotFound {
			return created, err
		}

		if err := st.CreatePersona(ctx, p); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
