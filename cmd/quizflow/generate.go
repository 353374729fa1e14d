package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/structured"
)

// =============================================================================
// ✨ generate 命令
// =============================================================================

// errExhausted 重试预算用尽且没有得到合法输出
var errExhausted = errors.New("no valid output within the attempt budget")

// stringList 可重复的字符串参数
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// generateOptions generate 命令的参数
type generateOptions struct {
	configPath      string
	schemaPath      string
	systemPrompt    string
	inputs          stringList
	defaultCategory string
	valueOnly       bool
	verbose         bool
	model           string
	attempts        int
	showAttempts    bool
}

func parseGenerateFlags(args []string, errOut io.Writer) (*generateOptions, error) {
	opts := &generateOptions{}
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.schemaPath, "schema", "", "Path to JSON schema file (required)")
	fs.StringVar(&opts.systemPrompt, "system", "", "System prompt")
	fs.Var(&opts.inputs, "input", "User input (repeat for batched mode)")
	fs.StringVar(&opts.defaultCategory, "default", "", "Fallback for enumerated fields")
	fs.BoolVar(&opts.valueOnly, "value-only", false, "Reshape each record to {question, answer}")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log prompts and raw model output")
	fs.StringVar(&opts.model, "model", "", "Model override")
	fs.IntVar(&opts.attempts, "attempts", 0, "Maximum attempts (default from config)")
	fs.BoolVar(&opts.showAttempts, "show-attempts", false, "Print a summary of every attempt to stderr")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// 位置参数也视为输入
	opts.inputs = append(opts.inputs, fs.Args()...)
	if opts.schemaPath == "" {
		return nil, errors.New("--schema is required")
	}
	if len(opts.inputs) == 0 {
		return nil, errors.New("at least one --input is required")
	}
	return opts, nil
}

// buildRequest 单个输入使用单条模式，多个输入使用批量模式
func (o *generateOptions) buildRequest(schema *structured.Schema) structured.Request {
	var req structured.Request
	if len(o.inputs) == 1 {
		req = structured.SingleInput(o.systemPrompt, o.inputs[0], schema)
	} else {
		req = structured.BatchInput(o.systemPrompt, o.inputs, schema)
	}
	req.DefaultCategory = o.defaultCategory
	req.ValueOnly = o.valueOnly
	req.Verbose = o.verbose
	req.Model = o.model
	req.MaxAttempts = o.attempts
	return req
}

func loadSchema(path string) (*structured.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return structured.ParseSchema(data)
}

func runGenerate(args []string) {
	opts, err := parseGenerateFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		os.Exit(2)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	schema, err := loadSchema(opts.schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		os.Exit(1)
	}

	provider, err := newProvider(cfg.LLM, nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		os.Exit(1)
	}
	generator, err := newGenerator(provider, cfg.LLM, nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := generate(ctx, generator, opts.buildRequest(schema), opts.showAttempts, os.Stdout, os.Stderr); err != nil {
		logger.Error("generation failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// generate 执行一次生成并把记录以 JSON 数组写入 out
func generate(ctx context.Context, g *structured.Generator, req structured.Request, showAttempts bool, out, errOut io.Writer) error {
	records, attempts, err := g.RunWithAttempts(ctx, req)
	if showAttempts {
		for _, a := range attempts {
			fmt.Fprintln(errOut, a.String())
		}
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w (%d attempts)", errExhausted, len(attempts))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}
