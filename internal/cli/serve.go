package cli

import (
	"fmt"
	"log"

	"runlog/internal/router"

	"github.com/spf13/cobra"
)

func newServeCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动只读查询 API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}

			svc, err := openServices(cfg)
			if err != nil {
				return err
			}

			r := router.SetupRouter(svc)
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			log.Printf("服务启动在 %s", addr)
			if err := r.Run(addr); err != nil {
				return fmt.Errorf("启动服务失败: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Int("port", 8080, "监听端口")
	return cmd
}
