// Command inspect dumps thread records from a store directory. Point it at
// the daemon's --db directory with the daemon stopped; the store allows a
// single process at a time.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"threaddb/pkg/state"
	"threaddb/pkg/store"
	"threaddb/pkg/thread"
)

func main() {
	var (
		dbPath   = flag.String("db", "./.threaddb", "data directory of the daemon")
		threadID = flag.String("thread", "", "dump one thread with its interactions")
		raw      = flag.Bool("json", false, "print raw records as json")
	)
	flag.Parse()

	if err := state.EnsureStateDirs(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(2)
	}
	if err := store.Open(state.PathsVar.Store); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: open store: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = store.Close() }()

	var err error
	if *threadID != "" {
		err = dumpThread(*threadID, *raw)
	} else {
		err = dumpThreads(*raw)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

func dumpThreads(raw bool) error {
	return store.View(func(s *store.Snap) error {
		threads, err := store.ListThreads(s)
		if err != nil {
			return err
		}
		if raw {
			enc := json.NewEncoder(os.Stdout)
			for i := range threads {
				if err := enc.Encode(&threads[i]); err != nil {
					return err
				}
			}
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tNAME\tSTATE\tARCHIVED\tUNREAD\tLAST")
		for i := range threads {
			t := &threads[i]
			archived, err := thread.IsArchived(s, t)
			if err != nil {
				return err
			}
			unread, err := thread.UnreadCount(s, t)
			if err != nil {
				return err
			}
			last, err := thread.LastMessageText(s, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\t%d\t%s\n",
				t.ID, t.Kind, t.Name(), t.FriendRequest, archived, unread, preview(last))
		}
		return tw.Flush()
	})
}

func dumpThread(id string, raw bool) error {
	return store.View(func(s *store.Snap) error {
		t, err := store.GetThread(s, id)
		if err != nil {
			return err
		}
		ins, err := store.ListInteractions(s, id)
		if err != nil {
			return err
		}

		if raw {
			enc := json.NewEncoder(os.Stdout)
			if err := enc.Encode(t); err != nil {
				return err
			}
			for i := range ins {
				if err := enc.Encode(&ins[i]); err != nil {
					return err
				}
			}
			return nil
		}

		fmt.Printf("thread %s (%s)\n", t.ID, t.Kind)
		fmt.Printf("  name:     %s\n", t.Name())
		fmt.Printf("  state:    %s\n", t.FriendRequest)
		fmt.Printf("  color:    %s\n", t.Color)
		fmt.Printf("  created:  %s\n", fmtTS(t.CreatedTS))
		if t.ArchivedTS != 0 {
			fmt.Printf("  archived: %s\n", fmtTS(t.ArchivedTS))
		}
		if t.Draft != "" {
			fmt.Printf("  draft:    %s\n", preview(t.Draft))
		}
		fmt.Printf("  interactions: %d\n", len(ins))
		for i := range ins {
			in := &ins[i]
			kind := ""
			if in.Control {
				kind = " [control]"
			}
			fmt.Printf("    %s %s%s %s\n", fmtTS(in.TS), in.Direction, kind, preview(in.Body))
		}
		return nil
	})
}

func preview(s string) string {
	const max = 48
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func fmtTS(ns int64) string {
	if ns == 0 {
		return "-"
	}
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}
