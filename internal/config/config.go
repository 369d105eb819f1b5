package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	// 通用事件提取模板（spark 日志中按字段名查找的指标）
	Events []EventConfig `yaml:"events"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	// mysql / sqlite
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Charset  string `yaml:"charset"`
	// sqlite 数据库文件路径
	Path string `yaml:"path"`
}

type IngestConfig struct {
	Root          string `yaml:"root"`
	SkipInstances bool   `yaml:"skip_instances"`
	// 并行解析的 run 数量；sqlite 下建议保持 1
	Workers int `yaml:"workers"`
	// true：第一个失败的 run 终止整个批次
	FailFast bool `yaml:"fail_fast"`
	// true：flink 日志中字段缺失的行记录后跳过，而不是让整个 run 失败
	Lenient bool `yaml:"lenient"`
}

type EventConfig struct {
	Name string `yaml:"name"`
	// string / double / int / timestamp
	Type string `yaml:"type"`
}

// Default 没有配置文件时使用的配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Path:    "runlog.db",
			Host:    "127.0.0.1",
			Port:    3306,
			Charset: "utf8mb4",
		},
		Ingest: IngestConfig{Workers: 1},
		Events: []EventConfig{
			{Name: "Executor Run Time", Type: "int"},
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if config.Ingest.Workers <= 0 {
		config.Ingest.Workers = 1
	}

	return config, nil
}

// MySQLDSN 按 go-sql-driver 格式拼接连接串
func (c DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
		c.Charset,
	)
}
