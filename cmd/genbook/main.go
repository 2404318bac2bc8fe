// Command genbook writes a synthetic message dataset in the feed CSV
// format.
package main

import (
	"flag"
	"os"

	"go.uber.org/zap"

	"tyr/gen"
)

func main() {
	out := flag.String("out", "data/dataset.csv", "output file")
	messages := flag.Int64("n", 10_000_000, "number of messages")
	seed := flag.Uint64("seed", 42, "RNG seed")
	basePrice := flag.Int64("base-price", 100_000, "center price in ticks")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal("create output", zap.Error(err))
	}

	g := gen.New(gen.Config{
		Messages:  *messages,
		Seed:      *seed,
		BasePrice: *basePrice,
	})
	n, err := g.WriteTo(f)
	if err != nil {
		log.Fatal("generate", zap.Error(err))
	}
	if err := f.Close(); err != nil {
		log.Fatal("close output", zap.Error(err))
	}

	log.Info("dataset written",
		zap.String("file", *out),
		zap.Int64("messages", n),
	)
}
