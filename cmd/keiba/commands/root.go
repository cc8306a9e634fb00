package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/annko/keiba-bot-go/internal/server"
	"github.com/annko/keiba-bot-go/internal/service/archive"
)

// Archiver is nil when no archive database is configured.
type Archiver interface {
	ArchiveAndNotify(ctx context.Context, date time.Time) (*archive.Summary, error)
}

// CacheAdmin is nil when Redis is disabled.
type CacheAdmin interface {
	IsConnected(ctx context.Context) bool
	Purge(ctx context.Context, product string) (int64, error)
}

type Env struct {
	Races    server.RaceAPI
	Archiver Archiver
	Cache    CacheAdmin
}

// Opener builds the environment once per invocation; the returned func releases it.
type Opener func(ctx context.Context) (*Env, func(), error)

type cli struct {
	open    Opener
	env     *Env
	release func()
	asJSON  bool
}

func NewRootCmd(open Opener) *cobra.Command {
	c := &cli{open: open}
	rootCmd := &cobra.Command{
		Use:           "keiba",
		Short:         "keiba scrapes JRA race results, odds and pedigrees.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, release, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.env, c.release = env, release
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.release != nil {
				c.release()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of a table")

	rootCmd.AddCommand(
		c.resultCmd(),
		c.infoCmd(),
		c.payoutsCmd(),
		c.cornersCmd(),
		c.lapsCmd(),
		c.databaseCmd(),
		c.idsCmd(),
		c.horseCmd(),
		c.umabashiraCmd(),
		c.oddsCmd(),
		c.resolveCmd(),
		c.archiveCmd(),
		c.cacheCmd(),
	)
	return rootCmd
}

func ExecuteContext(ctx context.Context, open Opener) {
	if err := NewRootCmd(open).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

// render prints v as JSON with --json, otherwise as a table.
func (c *cli) render(cmd *cobra.Command, v any, header table.Row, rows []table.Row) error {
	out := cmd.OutOrStdout()
	if c.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	t := newTable(out)
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
	return nil
}
