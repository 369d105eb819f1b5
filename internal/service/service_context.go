package service

import (
	"fmt"
	"strings"

	"runlog/internal/config"
	"runlog/internal/db"
	"runlog/internal/parser"
)

type ServiceContext struct {
	Store      *db.GormStore
	Manager    *Manager
	Aggregator *Aggregator
	Config     *config.Config
}

func NewServiceContext(cfg *config.Config, store *db.GormStore) (*ServiceContext, error) {
	extractor, err := NewEventExtractor(cfg.Events)
	if err != nil {
		return nil, err
	}

	aggregator := NewAggregator(store)
	manager := NewManager(store, aggregator, extractor, ManagerOptions{
		Workers:  cfg.Ingest.Workers,
		FailFast: cfg.Ingest.FailFast,
		Lenient:  cfg.Ingest.Lenient,
	})

	return &ServiceContext{
		Store:      store,
		Manager:    manager,
		Aggregator: aggregator,
		Config:     cfg,
	}, nil
}

// NewEventExtractor 由配置中的事件模板构造提取器，为空时使用默认模板
func NewEventExtractor(events []config.EventConfig) (*parser.EventExtractor, error) {
	templates := make([]parser.EventTemplate, 0, len(events))
	for _, e := range events {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("事件模板缺少 name")
		}
		vt, err := parser.ParseValueType(e.Type)
		if err != nil {
			return nil, fmt.Errorf("事件模板 %s: %w", name, err)
		}
		templates = append(templates, parser.EventTemplate{Name: name, Type: vt})
	}
	return parser.NewEventExtractor(templates...), nil
}
