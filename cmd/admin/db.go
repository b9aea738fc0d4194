package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"towerproof.dev/internal/persistence/indexdb"
	"towerproof.dev/internal/platform/config"
)

func dbCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dbPath := fs.String("db", env.IndexPath, "sqlite verdict index")
	limit := fs.Int("limit", 20, "result limit")
	reason := fs.String("reason", "", "reason filter (OK = successful runs)")
	_ = fs.Parse(args)

	q := "recent"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()
	ctx := context.Background()

	switch q {
	case "recent":
		rows, err := idx.Recent(ctx, *limit, strings.TrimSpace(*reason))
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "reasons":
		counts, err := idx.ReasonCounts(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			printJSON(struct {
				Reason string `json:"reason"`
				Count  int    `json:"count"`
			}{k, counts[k]})
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want recent|reasons)")
		os.Exit(2)
	}
}
