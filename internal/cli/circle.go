package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pmerten/fedicircle/pkg/circle"
	"github.com/pmerten/fedicircle/pkg/config"
	"github.com/pmerten/fedicircle/pkg/fedi"
)

// circleOpts holds the command-line flags for the circle command.
type circleOpts struct {
	backend   string // software family, "auto" to detect
	config    string // weights/bands config file path
	redisAddr string // shared detection store, empty for in-process
	noCache   bool   // skip the persistent detection store
	jsonOut   bool   // machine-readable output
	all       bool   // include connections beyond the outer band
	plain     bool   // line-based progress instead of the live view
}

// circleCommand creates the main command computing an interaction circle.
func (c *CLI) circleCommand() *cobra.Command {
	opts := circleOpts{backend: "auto"}

	cmd := &cobra.Command{
		Use:   "circle <handle>",
		Short: "Compute the interaction circle of a fediverse account",
		Long: `Compute the interaction circle of a fediverse account.

The handle is resolved through webfinger, the instance software is detected,
and the account's recent notes are scored by who reacted, boosted, and
replied.

Examples:
  fedicircle circle user@mastodon.social
  fedicircle circle @user@pleroma.example --backend pleroma
  fedicircle circle user@misskey.io --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCircle(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.backend, "backend", "b", opts.backend,
		"backend family (auto|"+strings.Join(backendFamilies, "|")+")")
	cmd.Flags().StringVar(&opts.config, "config", "", "weights and band sizes config file (TOML)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address for a shared detection store")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "do not persist detection results between runs")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "write the full result as JSON to stdout")
	cmd.Flags().BoolVar(&opts.all, "all", false, "also list connections beyond the outer band")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "plain progress output, no live view")

	return cmd
}

func (c *CLI) runCircle(ctx context.Context, opts circleOpts, rawHandle string) error {
	forced, err := forcedFamily(opts.backend)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, opts.redisAddr, !opts.noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	builder := c.newBuilder(cfg, store)

	var result *circle.Result
	if opts.jsonOut || opts.plain {
		result, err = c.buildPlain(ctx, builder, rawHandle, forced)
	} else {
		result, err = c.buildLive(ctx, builder, rawHandle, forced)
	}
	if err != nil {
		return err
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result, cfg.Bands, opts.all)
	return nil
}

// buildPlain runs the pipeline with a spinner on stderr.
func (c *CLI) buildPlain(ctx context.Context, builder *circle.Builder, rawHandle, forced string) (*circle.Result, error) {
	spin := newSpinner(ctx, "resolving "+rawHandle)
	spin.Start()
	defer spin.Stop()

	builder.OnProgress(func(done, total int) {
		spin.SetMessage(fmt.Sprintf("processing notes %d/%d", done, total))
	})

	prog := newProgress(c.Logger)
	result, err := builder.Build(ctx, rawHandle, forced)
	if err != nil {
		return nil, err
	}
	spin.Stop()
	prog.done(fmt.Sprintf("Ranked %d connections", len(result.Ranked)))
	return result, nil
}

// buildLive runs the pipeline behind a bubbletea progress view.
func (c *CLI) buildLive(ctx context.Context, builder *circle.Builder, rawHandle, forced string) (*circle.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewCircleModel(strings.TrimPrefix(rawHandle, "@"), cancel))

	builder.OnProgress(func(done, total int) {
		p.Send(progressMsg{done: done, total: total})
	})

	go func() {
		p.Send(phaseMsg("detecting instance software"))
		result, err := builder.Build(ctx, rawHandle, forced)
		p.Send(resultMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		return nil, err
	}
	return final.(CircleModel).Result()
}

// forcedFamily maps the --backend flag onto a detection override. "auto"
// means no override.
func forcedFamily(flag string) (string, error) {
	if flag == "" || flag == "auto" {
		return "", nil
	}
	for _, family := range backendFamilies {
		if flag == family {
			return family, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q (want auto|%s)", flag, strings.Join(backendFamilies, "|"))
}

// printResult writes the banded circle to stdout.
func printResult(result *circle.Result, bands config.Bands, all bool) {
	subject := result.Subject
	name := subject.Name
	if name == "" {
		name = subject.Handle.Name
	}

	fmt.Println(StyleTitle.Render(name) + " " + StyleDim.Render("@"+subject.Handle.String()))
	printInfo("backend %s, %d connections ranked", result.Backend, len(result.Ranked))
	fmt.Println()

	rank := 1
	printBand := func(title string, users []fedi.RatedUser, size int) {
		fmt.Println(bandHeading(title, len(users), size))
		for _, u := range users {
			fmt.Println(bandLine(rank, u))
			rank++
		}
		fmt.Println()
	}

	printBand("Inner circle", result.Bands.Inner, bands.Inner)
	printBand("Middle circle", result.Bands.Middle, bands.Middle)
	printBand("Outer circle", result.Bands.Outer, bands.Outer)

	if all && len(result.Bands.Rest) > 0 {
		printBand("Beyond", result.Bands.Rest, len(result.Bands.Rest))
	}
}
