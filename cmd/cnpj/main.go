package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacoelho/cnpj/internal/config"
	"github.com/jacoelho/cnpj/internal/exit"
	"github.com/jacoelho/cnpj/internal/logging"
	"github.com/jacoelho/cnpj/internal/runner"
)

func main() {
	exitCode := run(os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		result := exit.FromError(err)
		result.Output = stderr
		result.Print()
		return result.ExitCode
	}
	return exit.CodeSuccess
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "cnpj",
		Short:         "Convert CNPJ registry export files to CSV, JSON lines or SQLite",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newParseCmd(stdout, stderr), newLayoutCmd(stdout))
	return root
}

func newParseCmd(stdout, stderr io.Writer) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a batch import file",
		Example: `  cnpj parse --in F.K032001K.D90308 --out empresas.csv
  cnpj parse --in dados.txt -m uf:SP,cep:01000000-01999999 --ml
  cnpj parse --in dados.txt -t json --select '$.socios[*].nome'
  cnpj parse --in dados.txt -t sqlite --out empresas.db --table empresas`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, configFile)
			if err != nil {
				return err
			}

			logger := logging.Setup(stderr, logging.Level(cfg.Verbose), "text")
			r, err := runner.New(cfg)
			if err != nil {
				return err
			}
			r.SetOutput(stdout)
			r.SetErrorOutput(stderr)
			r.SetLogger(logger)

			summary, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			return summary.Print(stderr)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "YAML file with option values; flags override it")
	for _, opt := range config.Options {
		switch opt.Kind {
		case config.KindBool:
			cmd.Flags().BoolP(opt.Name, opt.Short, opt.Default == "true", opt.Usage)
		default:
			cmd.Flags().StringP(opt.Name, opt.Short, opt.Default, opt.Usage)
		}
	}
	return cmd
}

// loadConfig layers defaults, the config file and explicitly set flags.
func loadConfig(cmd *cobra.Command, configFile string) (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return nil, err
		}
	}

	for _, opt := range config.Options {
		flag := cmd.Flags().Lookup(opt.Name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := cfg.Set(opt.Name, flag.Value.String()); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLayoutCmd(stdout io.Writer) *cobra.Command {
	var layoutFile, encoding string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the effective record layout as YAML",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.Default()
			cfg.Layout = layoutFile
			cfg.Encoding = encoding

			schema, err := runner.LoadSchema(cfg)
			if err != nil {
				return err
			}
			return schema.Encode(stdout)
		},
	}

	cmd.Flags().StringVar(&layoutFile, "layout", "", "Record layout YAML file (built-in layout when empty)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "Input character encoding, overrides the layout")
	return cmd
}
