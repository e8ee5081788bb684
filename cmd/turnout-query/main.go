// 命令行查询工具：与服务端共用同一调度链路，结果文本输出到标准输出
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"turnout/internal/app"
	"turnout/internal/config"
	"turnout/internal/dispatch"
	"turnout/internal/logger"
)

func main() {
	config.LoadDotEnv()
	logger.Setup()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], config.FromEnv(), os.Stdout, os.Stderr))
}

// run：退出码 0 表示有结果或明确无数据，1 表示查询失败，2 表示参数错误
func run(ctx context.Context, args []string, cfg config.Config, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("turnout-query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	location := fs.String("location", "", "location of the election and/or year, e.g. \"Provincetown MA 2024\"")
	electionType := fs.String("type", "", "type of election: local, county, state, federal, presidential")
	num := fs.Int("num", cfg.Search.NumResults, "number of search results (1-10)")
	noSummary := fs.Bool("no-summary", false, "skip document download and model summary")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.Search.NumResults = *num
	if *noSummary {
		cfg.Summarize.Enabled = false
	}

	d := app.NewDispatcher(ctx, cfg, nil)
	res, err := d.Dispatch(ctx, dispatch.Request{Location: *location, ElectionType: *electionType})
	if err != nil {
		fmt.Fprintln(stderr, dispatch.UserMessage(err))
		return 1
	}
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(struct {
			*dispatch.Result
			Text string `json:"text"`
		}{res, res.Text()})
		return 0
	}
	fmt.Fprintln(stdout, res.Text())
	return 0
}
