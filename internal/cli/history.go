package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thousandtech/chatroom/internal/cache"
	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/chattui/styles"
	"github.com/thousandtech/chatroom/internal/paging"
	"github.com/thousandtech/chatroom/internal/timeline"
)

const defaultPrintWidth = 80

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		offset  int
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "history <room>",
		Short: "Print recent messages of a room",
		Long: "Print one page of a room's history, oldest first, with time dividers.\n" +
			"--offset skips that many of the newest messages.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room := strings.TrimSpace(args[0])
			if room == "" {
				return fmt.Errorf("room is required")
			}
			if limit <= 0 {
				limit = appConfig.Paging.PageSize
			}
			if offset < 0 {
				return fmt.Errorf("offset must be >= 0")
			}
			return runHistory(cmd, room, limit, offset, offline)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "messages to print (default: paging.page_size)")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many newest messages")
	cmd.Flags().BoolVar(&offline, "offline", false, "read from the local transcript cache only")
	return cmd
}

func runHistory(cmd *cobra.Command, room string, limit, offset int, offline bool) error {
	cfg := appConfig
	ctx, cancel := commandContext(cmd)
	defer cancel()

	norm := newNormalizer(cfg)
	var fetcher paging.Fetcher = newAPI(cfg)
	if cfg.Cache.Enabled || offline {
		store, err := cache.Open(cfg.CachePath())
		if err != nil {
			if offline {
				return err
			}
		} else {
			defer store.Close()
			if offline {
				fetcher = store
			} else {
				fetcher = cache.NewFetcher(fetcher, store, norm, false)
			}
		}
	}

	page, err := fetcher.FetchPage(ctx, paging.Request{RoomID: room, Limit: limit, Offset: offset})
	if err != nil {
		return err
	}

	tl := timeline.New(currentUser(cfg), norm).AppendBatch(page.Messages)
	if jsonOutput {
		return writeHistoryJSON(cmd.OutOrStdout(), tl, page.HasMore)
	}
	writeHistoryText(cmd.OutOrStdout(), tl, time.Now(), outputWidth(cmd.OutOrStdout()))
	if page.HasMore {
		fmt.Fprintf(cmd.ErrOrStderr(), "more history: chatroom history %s --offset %d\n", room, offset+len(page.Messages))
	}
	return nil
}

func writeHistoryJSON(out io.Writer, tl timeline.Timeline, hasMore bool) error {
	msgs := tl.Messages()
	payload := chat.HistoryPage{
		Messages: make([]chat.RawMessage, 0, len(msgs)),
		HasMore:  hasMore,
	}
	for _, msg := range msgs {
		payload.Messages = append(payload.Messages, msg.Raw())
	}
	return writeJSON(out, payload)
}

func writeHistoryText(out io.Writer, tl timeline.Timeline, now time.Time, width int) {
	if tl.Len() == 0 {
		fmt.Fprintln(out, "No messages")
		return
	}
	msgStyles := styles.NewMessageStyles(styles.ThemeByName(appConfig.TUI.Theme), nil)
	zone := tl.Normalizer().Zone
	if zone == nil {
		zone = timeline.LoadZone("")
	}
	for _, line := range tl.Render(now) {
		switch line.Kind {
		case timeline.KindDivider:
			fmt.Fprintln(out, msgStyles.RenderDivider(line.Label, width))
		case timeline.KindMessage:
			clock := time.Unix(line.SentAt, 0).In(zone).Format("15:04")
			fmt.Fprintln(out, msgStyles.RenderHeader(line.Author, clock, line.Own))
			for _, body := range msgStyles.RenderBody(line.Body, width, "  ") {
				fmt.Fprintln(out, body)
			}
		}
	}
}

func outputWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !isTerminal(f) {
		return defaultPrintWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultPrintWidth
	}
	return width
}
