package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/any-hub/swforge/internal/assets"
	"github.com/any-hub/swforge/internal/logging"
	"github.com/any-hub/swforge/internal/server"
	"github.com/any-hub/swforge/internal/server/routes"
	"github.com/any-hub/swforge/internal/version"
)

// newRootCmd 每次调用都构建新的命令树，测试之间不共享 flag 状态。
// 返回的 cleanup 负责关闭 trace 导出器，无论命令是否成功都应调用。
func newRootCmd() (*cobra.Command, func()) {
	opts := &cliOptions{}
	var configFlag string
	var shutdownTracing func(context.Context) error

	root := &cobra.Command{
		Use:           "swforge",
		Short:         "把 Workbox 缓存策略配置编译为 Service Worker 脚本",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath = resolveConfigPath(configFlag)
			shutdown, err := setupTracing(opts.trace, stdErr)
			if err != nil {
				return err
			}
			shutdownTracing = shutdown
			return nil
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./swforge.yaml，可被 SWFORGE_CONFIG 覆盖）")
	flags.BoolVar(&opts.trace, "trace", false, "将 OpenTelemetry span 输出到 stderr")
	flags.StringVar(&opts.templatePath, "template", "", "Service Worker 模板路径（默认读取 serviceworker.src）")
	flags.StringVar(&opts.publicPrefix, "public-prefix", "", "打包工具输出静态资源的 URL 前缀")

	root.AddCommand(
		newBuildCmd(opts),
		newCheckCmd(opts),
		newDumpConfigCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	cleanup := func() {
		if shutdownTracing != nil {
			_ = shutdownTracing(context.Background())
		}
	}
	return root, cleanup
}

func newBuildCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "编译 Service Worker 并同步 Workbox 运行时文件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), *opts)
		},
	}
	cmd.Flags().StringVar(&opts.outDir, "out", "public", "产物输出目录（对应站点根目录）")
	cmd.Flags().StringVar(&opts.workboxDir, "workbox-dir", "", "本地 Workbox 运行时文件目录，use_cdn=false 时复制到 workbox_public_url")
	return cmd
}

func runBuild(ctx context.Context, opts cliOptions) error {
	s, err := openSession(ctx, opts, "build")
	if err != nil {
		return err
	}
	sw := s.cfg.ServiceWorker
	if !sw.Enabled {
		s.logger.WithFields(logging.BaseFields("build", opts.configPath)).Info("serviceworker 未启用，跳过编译")
		return nil
	}

	res, err := s.compile(ctx)
	if err != nil {
		return err
	}

	out := osfs.New(opts.outDir)
	if err := assets.WriteArtifact(ctx, out, sw.Dest, res.Artifact.Text); err != nil {
		return err
	}

	fields := logging.CompileFields(res.JobID, sw.Dest, len(res.Artifact.Strategies), len(res.Artifact.CacheNames))
	fields["action"] = "build"
	fields["configPath"] = opts.configPath
	s.logger.WithFields(fields).Info("Service Worker 编译完成")

	if s.cfg.WorkboxActive() && !sw.Workbox.UseCDN {
		if opts.workboxDir == "" {
			s.logger.WithFields(logging.BaseFields("runtime_sync", opts.configPath)).
				Warn("未指定 --workbox-dir，跳过 Workbox 运行时文件同步")
		} else {
			report, err := assets.SyncRuntime(ctx, osfs.New(opts.workboxDir), out, sw.Workbox.WorkboxPublicURL)
			if err != nil {
				return err
			}
			s.logger.WithFields(logrus.Fields{
				"action":  "runtime_sync",
				"copied":  len(report.Copied),
				"skipped": len(report.Skipped),
				"ignored": len(report.Ignored),
			}).Info("Workbox 运行时文件同步完成")
		}
	}

	fmt.Fprintf(stdOut, "%s: %d strategies, %d caches\n", sw.Dest, len(res.Artifact.Strategies), len(res.Artifact.CacheNames))
	return nil
}

func newCheckCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "校验配置并列出弃用选项",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), *opts, "check_config")
			if err != nil {
				return err
			}
			for _, n := range s.notices {
				fmt.Fprintf(stdOut, "deprecated: %s\n", n.Message)
			}
			fields := logging.BaseFields("check_config", opts.configPath)
			if s.cfg.ServiceWorker.Enabled {
				res, err := s.compile(cmd.Context())
				if err != nil {
					return err
				}
				fields["strategies"] = len(res.Artifact.Strategies)
			}
			fields["deprecations"] = len(s.notices)
			fields["result"] = "ok"
			s.logger.WithFields(fields).Info("配置校验通过")
			fmt.Fprintln(stdOut, "ok")
			return nil
		},
	}
}

func newDumpConfigCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump-config",
		Short: "以 YAML 输出归一化后的配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), *opts, "dump_config")
			if err != nil {
				return err
			}
			data, err := s.cfg.DumpYAML()
			if err != nil {
				return err
			}
			_, err = stdOut.Write(data)
			return err
		},
	}
}

func newServeCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动诊断 HTTP 服务，展示当前编译结果",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, port, logger, err := newServeApp(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			fields := logrus.Fields{"action": "listen", "port": port}
			for k, v := range version.Info() {
				fields[k] = v
			}
			logger.WithFields(fields).Info("Fiber 服务启动")
			return app.Listen(fmt.Sprintf(":%d", port))
		},
	}
	cmd.Flags().IntVar(&opts.listenPort, "port", 0, "监听端口（默认读取 listen_port）")
	return cmd
}

// newServeApp 完成首次编译并装配诊断路由，启动监听由调用方负责。
func newServeApp(ctx context.Context, opts cliOptions) (*fiber.App, int, *logrus.Logger, error) {
	s, err := openSession(ctx, opts, "serve")
	if err != nil {
		return nil, 0, nil, err
	}
	store := server.NewSnapshotStore()

	rebuild := func(ctx context.Context) (server.Snapshot, error) {
		next, err := s.reload(ctx, "rebuild")
		if err != nil {
			return server.Snapshot{}, err
		}
		return snapshotOf(ctx, next)
	}

	if s.cfg.ServiceWorker.Enabled {
		snap, err := snapshotOf(ctx, s)
		if err != nil {
			return nil, 0, nil, err
		}
		store.Set(snap)
	}

	port := s.cfg.Global.ListenPort
	if opts.listenPort > 0 {
		port = opts.listenPort
	}
	app, err := server.NewApp(server.AppOptions{
		Logger:     s.logger,
		Snapshots:  store,
		ListenPort: port,
	})
	if err != nil {
		return nil, 0, nil, err
	}
	routes.RegisterDiagnosticRoutes(app, store, rebuild, s.logger)
	return app, port, s.logger, nil
}

func snapshotOf(ctx context.Context, s *session) (server.Snapshot, error) {
	res, err := s.compile(ctx)
	if err != nil {
		return server.Snapshot{}, err
	}
	return server.Snapshot{
		JobID:      res.JobID,
		ConfigPath: s.opts.configPath,
		Dest:       s.cfg.ServiceWorker.Dest,
		CompiledAt: time.Now().UTC(),
		Artifact:   res.Artifact,
	}, nil
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !asJSON {
				fmt.Fprintln(stdOut, version.Full())
				return nil
			}
			enc := json.NewEncoder(stdOut)
			enc.SetIndent("", "  ")
			return enc.Encode(version.Info())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}
