// FILE: lixenwraith/profile/cmd/profctl/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lixenwraith/profile"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	files   []string
	format  string
	verbose bool
}

// NewRootCommand assembles the profctl command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "profctl",
		Short: "Query and edit layered profile files",
		Long: `profctl answers merged lookups across an ordered list of profile files.

Files given first take priority. A section marked final in an earlier file
hides the same path in every later file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringArrayVarP(&opts.files, "file", "f", nil, "profile file, repeatable, highest priority first")
	rootCmd.PersistentFlags().StringVar(&opts.format, "format", "", "force file format (toml, yaml, json)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(
		newGetCommand(opts),
		newListCommand(opts),
		newDumpCommand(opts),
		newVerifyCommand(opts),
		newSetCommand(opts),
		newWatchCommand(opts),
	)
	return rootCmd
}

func (o *rootOptions) open(stderr io.Writer) (*profile.Profile, error) {
	logger := zerolog.Nop()
	if o.verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()
	}

	b := profile.NewBuilder().
		WithFormat(o.format).
		WithLogger(logger)
	if len(o.files) > 0 {
		b = b.WithFiles(o.files...).RequireFile()
	} else {
		b = b.WithFileDiscovery(profile.DefaultDiscoveryOptions("profctl"))
	}

	p, err := b.Build()
	if err != nil && !errors.Is(err, profile.ErrProfileNotFound) {
		return nil, err
	}
	if p == nil {
		return nil, err
	}
	return p, nil
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	var first bool
	cmd := &cobra.Command{
		Use:   "get PATH...",
		Short: "Print every value of a relation, merged across files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer p.Close()

			path := pathArgs(args)
			if first {
				v, err := p.String(path...)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}
			values, err := p.Values(path...)
			if err != nil {
				return err
			}
			for _, v := range values {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&first, "first", false, "print only the highest-priority value")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var sections, relations bool
	cmd := &cobra.Command{
		Use:   "list [PATH...]",
		Short: "List the entries of a section, merged across files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sections && relations {
				return fmt.Errorf("--sections and --relations are mutually exclusive")
			}
			p, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer p.Close()

			flags := profile.ListSection
			if sections {
				flags |= profile.SectionsOnly
			}
			if relations {
				flags |= profile.RelationsOnly
			}
			entries, err := p.Entries(pathArgs(args), flags)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.HasValue {
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", e.Name, e.Value)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s/\n", e.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sections, "sections", false, "only subsections")
	cmd.Flags().BoolVar(&relations, "relations", false, "only relations")
	return cmd
}

func newDumpCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every loaded file as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer p.Close()
			return p.Dump(cmd.OutOrStdout())
		},
	}
}

func newVerifyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the structural invariants of every loaded tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer p.Close()

			var errs []error
			for _, src := range p.Sources() {
				if err := src.Root().Verify(); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", src.Name())
			}
			return errors.Join(errs...)
		},
	}
}

func newSetCommand(opts *rootOptions) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "set PATH... VALUE",
		Short: "Add a relation to the first file and write it back",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer p.Close()

			path := pathArgs(args[:len(args)-1])
			if replace {
				if err := p.ClearRelation(path); err != nil && !errors.Is(err, profile.ErrNotFound) {
					return err
				}
			}
			if err := p.AddRelation(path, args[len(args)-1]); err != nil {
				return err
			}
			return p.Flush()
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "remove existing values first")
	return cmd
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch PATH...",
		Short: "Print the merged values of a relation each time a file changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchValues(ctx, cmd.OutOrStdout(), p, pathArgs(args))
		},
	}
}

func watchValues(ctx context.Context, out io.Writer, p *profile.Profile, path []string) error {
	changes := p.Watch()
	printValues(out, p, path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "# %s\n", change)
			printValues(out, p, path)
		}
	}
}

func printValues(out io.Writer, p *profile.Profile, path []string) {
	values, err := p.Values(path...)
	if err != nil {
		fmt.Fprintf(out, "(%v)\n", err)
		return
	}
	for _, v := range values {
		fmt.Fprintln(out, v)
	}
}

// pathArgs copies the path components; names may contain dots, as realm
// names do, so no splitting happens here.
func pathArgs(args []string) []string {
	return append([]string(nil), args...)
}
