package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-outline/cmd/config"
	"github.com/mattsolo1/grove-outline/internal/printer"
	"github.com/mattsolo1/grove-outline/pkg/watcher"
)

func NewWatchCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Print the outline and reprint it when the notebook changes",
		Long: `Print the outline, then watch the notebook and reprint after each
burst of changes. Only the changed groups are reloaded; expanded and
collapsed groups keep their state.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := sessionOptions{filter: filter}
			if len(args) == 1 {
				opts.dir = args[0]
			}
			s, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer s.close()

			out := cmd.OutOrStdout()
			p := printer.New(out)
			p.Filtering = filter != ""
			if err := p.Fprint(out, s.rows.Items()); err != nil {
				return err
			}

			w, err := watcher.New(s.provider.Root().Path, func(dir string) {
				s.onChange(ctx, out, p, dir)
			}, watcher.Options{
				Debounce: s.cfg.WatchDebounce,
				Logger:   s.log.WithField("component", "watcher"),
			})
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Highlight items fuzzy matching the pattern")
	config.AddGlobalFlags(cmd)

	return cmd
}

func (s *session) onChange(ctx context.Context, out io.Writer, p *printer.Printer, dir string) {
	log := s.log.WithField("dir", dir)
	if err := s.refreshDir(ctx, dir); err != nil {
		if isNotFound(err) || ctx.Err() != nil {
			log.WithError(err).Debug("change outside the loaded outline")
			return
		}
		log.WithError(err).Warn("refresh failed")
		return
	}

	header := fmt.Sprintf("── %s %s", time.Now().Format("15:04:05"), dir)
	fmt.Fprintln(out)
	fmt.Fprintln(out, p.Styles.Muted.Render(header))
	if err := p.Fprint(out, s.rows.Items()); err != nil {
		log.WithError(err).Warn("print failed")
	}
}
