package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"towerproof.dev/internal/persistence/runlog"
	"towerproof.dev/internal/platform/config"
	"towerproof.dev/internal/sim/tuning"
)

func main() {
	env, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "env:", err)
		os.Exit(1)
	}
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(env, os.Args[2:])
			return
		case "verdicts":
			verdictsCmd(env, os.Args[2:])
			return
		case "tuning":
			tuningCmd(env, os.Args[2:])
			return
		}
	}
	listCmd(env, os.Args[1:])
}

// listCmd prints one header line per recorded bundle.
func listCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", env.DataDir, "runtime data directory")
	_ = fs.Parse(args)

	paths, err := runlog.FindBundles(filepath.Join(*dataDir, "runs"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, p := range paths {
		h, _, err := runlog.ReadBundle(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(p), err)
			continue
		}
		printJSON(struct {
			Path string `json:"path"`
			runlog.Header
		}{filepath.Base(p), h})
	}
}

// verdictsCmd dumps verdict log parts in hour and part order.
func verdictsCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("verdicts", flag.ExitOnError)
	dataDir := fs.String("data", env.DataDir, "runtime data directory")
	failedOnly := fs.Bool("failed", false, "only failed verdicts")
	_ = fs.Parse(args)

	files, err := filepath.Glob(filepath.Join(*dataDir, "verdicts", "verdicts-*.jsonl.zst"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, f := range files {
		_, entries, err := runlog.ReadVerdicts(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(f), err)
			continue
		}
		for _, e := range entries {
			if *failedOnly && e.Verdict.Success {
				continue
			}
			printJSON(e)
		}
	}
}

// tuningCmd validates a tuning file and prints the effective values.
func tuningCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("tuning", flag.ExitOnError)
	path := fs.String("tuning", env.TuningPath, "tuning yaml (empty = built-in defaults)")
	_ = fs.Parse(args)

	t := tuning.Defaults()
	if *path != "" {
		var err error
		t, err = tuning.Load(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "tuning:", err)
			os.Exit(1)
		}
	}
	if _, err := t.SimConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "tuning:", err)
		os.Exit(1)
	}
	out, err := yaml.Marshal(t)
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal:", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
