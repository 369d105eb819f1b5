package cli

import (
	"fmt"

	"runlog/internal/config"
	"runlog/internal/service"

	"github.com/spf13/cobra"
)

func newParseCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [root]",
		Short: "解析一个实验结果目录",
		Long: `解析 <root>/<实验>/<run> 下的所有 run。runExitCode 非 0 的 run 会被跳过；
任何 run 失败时命令以非 0 退出。root 缺省时使用配置中的 ingest.root。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			applyIngestFlags(cmd, cfg)
			if len(args) == 1 {
				cfg.Ingest.Root = args[0]
			}
			if cfg.Ingest.Root == "" {
				return fmt.Errorf("缺少结果目录：请传入 root 参数或配置 ingest.root")
			}

			svc, err := openServices(cfg)
			if err != nil {
				return err
			}

			report, err := svc.Manager.ParsePath(cmd.Context(), cfg.Ingest.Root, cfg.Ingest.SkipInstances)
			if report != nil {
				fmt.Fprint(cmd.OutOrStdout(), service.RenderIngestSummary(report))
			}
			if err != nil {
				return err
			}
			if report.IsFailed() {
				return fmt.Errorf("%d 个 run 解析失败", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().Bool("skip-instances", false, "只记录 run 级时间，不创建 Task/TaskInstance/Event")
	cmd.Flags().Int("workers", 1, "并行解析的 run 数量")
	cmd.Flags().Bool("fail-fast", false, "第一个失败的 run 终止整个批次")
	cmd.Flags().Bool("lenient", false, "跳过字段缺失的日志行，而不是让 run 失败")
	return cmd
}

// applyIngestFlags 只覆盖命令行上显式给出的参数
func applyIngestFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("skip-instances") {
		cfg.Ingest.SkipInstances, _ = flags.GetBool("skip-instances")
	}
	if flags.Changed("workers") {
		if n, _ := flags.GetInt("workers"); n > 0 {
			cfg.Ingest.Workers = n
		}
	}
	if flags.Changed("fail-fast") {
		cfg.Ingest.FailFast, _ = flags.GetBool("fail-fast")
	}
	if flags.Changed("lenient") {
		cfg.Ingest.Lenient, _ = flags.GetBool("lenient")
	}
}
