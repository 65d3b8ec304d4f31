package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/any-hub/swforge/internal/config"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath   string
	templatePath string
	publicPrefix string
	workboxDir   string
	outDir       string
	listenPort   int
	trace        bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

const configEnv = "SWFORGE_CONFIG"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run 执行 CLI 并返回退出码：0 成功，1 运行失败，2 配置或参数错误。
func run(args []string) int {
	cmd, cleanup := newRootCmd()
	defer cleanup()
	cmd.SetArgs(args)
	cmd.SetOut(stdOut)
	cmd.SetErr(stdErr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stdErr, err.Error())
		return exitCode(err)
	}
	return 0
}

var errUsage = errors.New("参数错误")

func exitCode(err error) int {
	if errors.Is(err, errUsage) || errors.Is(err, config.ErrSchema) || errors.Is(err, config.ErrExclusivity) {
		return 2
	}
	return 1
}

// resolveConfigPath 按 flag > 环境变量 > 默认值的顺序确定配置路径。
func resolveConfigPath(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(configEnv)); v != "" {
		return v
	}
	return config.DefaultPath
}

// resolveTemplatePath 未指定 --template 时，以配置文件所在目录解析 serviceworker.src。
func resolveTemplatePath(opts cliOptions, cfg *config.Config) string {
	if opts.templatePath != "" {
		return opts.templatePath
	}
	src := cfg.ServiceWorker.Src
	if src == "" || filepath.IsAbs(src) {
		return src
	}
	return filepath.Join(filepath.Dir(opts.configPath), src)
}
