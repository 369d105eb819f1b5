package cli

import (
	"errors"
	"fmt"
	"log"
	"os"

	"runlog/internal/config"
	"runlog/internal/db"
	"runlog/internal/service"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/config.yaml"

func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "runlog",
		Short: "把 Flink / Spark 基准实验日志解析进关系库",
		Long: `runlog 遍历 <root>/<实验>/<run> 目录，读取每个 run 的 state.json 和引擎日志，
把作业、任务、子任务实例和事件写入数据库，并计算每个实验的平均运行时间。`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "配置文件路径")

	root.AddCommand(newParseCommand(&configPath))
	root.AddCommand(newServeCommand(&configPath))
	return root
}

// loadConfig 配置文件不存在时使用默认配置
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("配置文件 %s 不存在，使用默认配置", path)
		return config.Default(), nil
	}
	return cfg, err
}

func openServices(cfg *config.Config) (*service.ServiceContext, error) {
	gdb, err := db.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	svc, err := service.NewServiceContext(cfg, db.NewStore(gdb))
	if err != nil {
		return nil, fmt.Errorf("初始化服务失败: %w", err)
	}
	return svc, nil
}
