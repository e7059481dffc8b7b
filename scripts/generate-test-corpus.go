//go:build ignore

// Generates a synthetic document corpus for benchmarking ingest and search.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var topics = []string{
	"indexing", "retrieval", "chunking", "embeddings", "rank fusion",
	"snapshots", "tokenization", "vector search", "keyword search",
	"deployment", "configuration", "monitoring",
}

var sentences = []string{
	"The %s pipeline splits every document into overlapping spans.",
	"Results from %s are merged before ranking.",
	"Operators tune %s through the configuration file.",
	"A failure in %s degrades gracefully instead of failing the query.",
	"Benchmarks for %s run against a synthetic corpus.",
	"The %s subsystem persists its state atomically.",
	"Changes to %s settings require a full reindex.",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for i := 0; i < *numFiles; i++ {
		topic := topics[rng.Intn(len(topics))]
		body := fmt.Sprintf("# Notes on %s\n\n", topic)
		paragraphs := 3 + rng.Intn(8)
		for p := 0; p < paragraphs; p++ {
			lines := 2 + rng.Intn(5)
			for l := 0; l < lines; l++ {
				tmpl := sentences[rng.Intn(len(sentences))]
				body += fmt.Sprintf(tmpl, topics[rng.Intn(len(topics))]) + " "
			}
			body += "\n\n"
		}

		ext := ".md"
		if rng.Intn(4) == 0 {
			ext = ".txt"
		}
		path := filepath.Join(*outputDir, fmt.Sprintf("doc_%05d%s", i, ext))
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	fmt.Printf("generated %d files in %s\n", *numFiles, *outputDir)
}
