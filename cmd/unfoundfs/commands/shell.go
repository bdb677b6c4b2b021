package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unfound-os/unfoundfs/internal/cli/output"
	"github.com/unfound-os/unfoundfs/pkg/metrics"
	"github.com/unfound-os/unfoundfs/pkg/notify"
	"github.com/unfound-os/unfoundfs/pkg/vfs"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactively drive an engine from the terminal",
	Long: `Start an interactive session against a freshly built engine.

Every file operation goes through the full engine path, so cache hits,
readahead, and queued events are observable as you type. Type "help"
inside the shell for the command list.`,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, cleanup, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if cfg.Metrics.Enabled {
		server := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port}, engine)
		go server.Start(ctx)
	}

	fmt.Println(`unfoundfs shell ("help" for commands, "exit" to quit)`)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("unfoundfs> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}
		if err := runShellCommand(ctx, engine, fields); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func runShellCommand(ctx context.Context, engine *vfs.Engine, fields []string) error {
	switch fields[0] {
	case "help":
		printShellHelp()
		return nil

	case "open":
		if len(fields) < 2 {
			return fmt.Errorf("usage: open <path> [creat]")
		}
		flags := vfs.O_RDWR
		if len(fields) > 2 && fields[2] == "creat" {
			flags |= vfs.O_CREAT
		}
		fd, err := engine.Open(ctx, fields[1], flags)
		if err != nil {
			return err
		}
		fmt.Printf("fd %d\n", fd)
		return nil

	case "write":
		if len(fields) < 3 {
			return fmt.Errorf("usage: write <fd> <text>")
		}
		fd, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad descriptor %q", fields[1])
		}
		data := strings.Join(fields[2:], " ")
		n, err := engine.Write(ctx, fd, []byte(data))
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d bytes\n", n)
		return nil

	case "read":
		if len(fields) < 3 {
			return fmt.Errorf("usage: read <fd> <len>")
		}
		fd, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad descriptor %q", fields[1])
		}
		length, err := strconv.Atoi(fields[2])
		if err != nil || length < 0 {
			return fmt.Errorf("bad length %q", fields[2])
		}
		buf := make([]byte, length)
		n, err := engine.Read(ctx, fd, buf)
		if err != nil {
			return err
		}
		fmt.Printf("%q (%d bytes)\n", buf[:n], n)
		return nil

	case "seek":
		if len(fields) < 3 {
			return fmt.Errorf("usage: seek <fd> <offset> [set|cur|end]")
		}
		fd, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad descriptor %q", fields[1])
		}
		offset, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return fmt.Errorf("bad offset %q", fields[2])
		}
		whence := io.SeekStart
		if len(fields) > 3 {
			switch fields[3] {
			case "set":
				whence = io.SeekStart
			case "cur":
				whence = io.SeekCurrent
			case "end":
				whence = io.SeekEnd
			default:
				return fmt.Errorf("bad whence %q", fields[3])
			}
		}
		pos, err := engine.Seek(ctx, fd, offset, whence)
		if err != nil {
			return err
		}
		fmt.Printf("offset %d\n", pos)
		return nil

	case "close":
		if len(fields) < 2 {
			return fmt.Errorf("usage: close <fd>")
		}
		fd, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad descriptor %q", fields[1])
		}
		return engine.Close(fd)

	case "stat":
		if len(fields) < 2 {
			return fmt.Errorf("usage: stat <fd>")
		}
		fd, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad descriptor %q", fields[1])
		}
		info, err := engine.Stat(ctx, fd)
		if err != nil {
			return err
		}
		fmt.Printf("%s  id=%d  size=%d  offset=%d\n", info.Path, info.File, info.Size, info.Offset)
		return nil

	case "unlink":
		if len(fields) < 2 {
			return fmt.Errorf("usage: unlink <path>")
		}
		return engine.Unlink(ctx, fields[1])

	case "watch":
		if len(fields) < 2 {
			return fmt.Errorf("usage: watch <path-prefix> [mask]")
		}
		mask := notify.AllEvents
		if len(fields) > 2 {
			parsed, err := parseEventMask(fields[2])
			if err != nil {
				return err
			}
			mask = parsed
		}
		wd := engine.AddWatch(fields[1], mask)
		fmt.Printf("wd %d\n", wd)
		return nil

	case "unwatch":
		if len(fields) < 2 {
			return fmt.Errorf("usage: unwatch <wd>")
		}
		wd, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad watch descriptor %q", fields[1])
		}
		return engine.RemoveWatch(notify.WatchDescriptor(wd))

	case "events":
		max := 32
		if len(fields) > 1 {
			parsed, err := strconv.Atoi(fields[1])
			if err != nil || parsed <= 0 {
				return fmt.Errorf("bad count %q", fields[1])
			}
			max = parsed
		}
		events := engine.ReadEvents(max)
		if len(events) == 0 {
			fmt.Println("no pending events")
			return nil
		}
		table := output.NewTable("Type", "Path", "Time")
		for _, ev := range events {
			table.AddRow(ev.Type.String(), ev.Path, ev.Timestamp.Format("15:04:05.000"))
		}
		table.Render(os.Stdout)
		return nil

	case "stats":
		stats := engine.CacheStats()
		fmt.Printf("hits=%d misses=%d evictions=%d resident=%d hit_rate=%.1f%% pending_events=%d\n",
			stats.Hits, stats.Misses, stats.Evictions, stats.Resident,
			stats.HitRate()*100, engine.PendingEvents())
		return nil

	default:
		return fmt.Errorf("unknown command %q (try \"help\")", fields[0])
	}
}

// parseEventMask parses a comma-separated list of event names into a
// watch mask, e.g. "create,modify".
func parseEventMask(s string) (notify.EventType, error) {
	var mask notify.EventType
	for _, name := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "create":
			mask |= notify.Create
		case "modify":
			mask |= notify.Modify
		case "delete":
			mask |= notify.Delete
		case "access":
			mask |= notify.Access
		case "all":
			mask |= notify.AllEvents
		default:
			return 0, fmt.Errorf("unknown event type %q", name)
		}
	}
	return mask, nil
}

func printShellHelp() {
	fmt.Print(`Commands:
  open <path> [creat]          open a file, optionally creating it
  read <fd> <len>              read bytes at the current offset
  write <fd> <text>            write text at the current offset
  seek <fd> <offset> [whence]  reposition (whence: set, cur, end)
  close <fd>                   release the descriptor
  stat <fd>                    show file id, size, and offset
  unlink <path>                delete a file
  watch <prefix> [mask]        register a watch (mask: create,modify,delete,access,all)
  unwatch <wd>                 remove a watch
  events [max]                 drain pending events
  stats                        show cache and queue counters
  exit                         leave the shell
`)
}
