// Command hcibrain extracts positioned research content from a single
// academic PDF and writes the result as JSON or XLSX.
//
// Usage:
//
//	hcibrain [-config config.yaml] [-format json|xlsx] [-o out] paper.pdf
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	hcibrain "github.com/nbhansen/hcibrain-sub000"
	"github.com/nbhansen/hcibrain-sub000/export"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	format := flag.String("format", "json", "Output format: json or xlsx")
	out := flag.String("o", "", "Output file (default stdout; required for xlsx)")
	title := flag.String("title", "", "Paper title (default: first line of the document)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hcibrain [flags] paper.pdf")
		flag.PrintDefaults()
		os.Exit(2)
	}
	pdfPath := flag.Arg(0)

	if *format != "json" && *format != "xlsx" {
		fatal("unknown format %q (want json or xlsx)", *format)
	}
	if *format == "xlsx" && *out == "" {
		fatal("-o is required with -format xlsx")
	}

	cfg := hcibrain.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = hcibrain.LoadConfig(*configPath)
		if err != nil {
			fatal("loading config: %v", err)
		}
	}
	if v := os.Getenv("HCIBRAIN_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	engine, err := hcibrain.New(cfg)
	if err != nil {
		fatal("creating engine: %v", err)
	}

	var opts []hcibrain.Option
	if *title != "" {
		opts = append(opts, hcibrain.WithPaper(hcibrain.Paper{Title: *title}))
	}

	res, err := engine.ExtractFile(context.Background(), pdfPath, opts...)
	if err != nil {
		fatal("extracting %s: %v", pdfPath, err)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fatal("creating output: %v", err)
		}
		defer f.Close()
		w = f
	}

	switch *format {
	case "xlsx":
		err = export.WriteXLSX(w, res)
	default:
		err = export.WriteJSON(w, res)
	}
	if err != nil {
		fatal("writing output: %v", err)
	}

	fmt.Fprintf(os.Stderr, "extracted %d elements (%d unmapped, %d chunks failed)\n",
		res.Summary.TotalElements, res.Summary.ElementsUnmapped, res.Summary.ChunksFailed)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "hcibrain: "+format+"\n", args...)
	os.Exit(1)
}
