package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/kawaii-watch/backend/internal/config"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/ai"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/session"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := playOptions{}
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:          "matchtester",
		Short:        "运行一场离线配对并打印每条消息的退化检测结果",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil {
				log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("配置加载失败: %w", err)
			}
			if !cfg.AI.Enabled() {
				return fmt.Errorf("Ark 凭证未配置，请设置 Model 与 ARK_API_KEY 或 AK/SK")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			svc, err := ai.NewService(ctx, cfg.AI)
			if err != nil {
				return err
			}

			loop := session.NewConfig(cfg.Session, cfg.AI.Temperature)
			if !cmd.Flags().Changed("temperature") {
				opts.Temperature = loop.Temperature
			}
			opts.Engine = loop.Engine
			opts.Detector = loop.Detector

			return play(ctx, cmd.OutOrStdout(), persona.NewMemoryStore(persona.Seed()), svc, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Girl, "girl", "", "女方persona名字，留空随机")
	flags.StringVar(&opts.Boy, "boy", "", "男方persona名字，留空随机")
	flags.StringVar(&opts.Opener, "opener", "", "先开口的一方: girl 或 boy，留空随机")
	flags.IntVar(&opts.Messages, "messages", 30, "最多生成的消息数")
	flags.Float64Var(&opts.Temperature, "temperature", config.DefaultTemperature, "采样温度")
	flags.BoolVar(&opts.KeepGoing, "keep-going", false, "检测到退化后继续对话")
	flags.BoolVar(&opts.Fast, "fast", false, "跳过模拟打字延迟")
	flags.DurationVar(&timeout, "timeout", 5*time.Minute, "整场测试的超时时间")

	return cmd
}
