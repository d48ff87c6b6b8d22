package main

import (
	"fmt"
	"log"
	"time"

	"github.com/beetlebugorg/labelindex/pkg/labels"
)

const input = "germany.ce"

func main() {
	// Share built indexes across handles while the file is unchanged
	cache := labels.NewCache(512 * 1024 * 1024) // 512MB
	metrics := &labels.BasicMetricsCollector{}

	fmt.Println("=== Building from c.e ===")
	start := time.Now()
	h := labels.Init(input,
		labels.WithCache(cache),
		labels.WithMetricsCollector(metrics),
		labels.WithFanOut(32),
		labels.WithWorkers(8),
	)
	defer h.Close()
	if !h.IsGood() {
		log.Fatal(h.Err())
	}
	fmt.Printf("Built in %v\n", time.Since(start))

	// A second handle for the same file reuses the cached index
	start = time.Now()
	again := labels.Init(input, labels.WithCache(cache), labels.WithFanOut(32))
	defer again.Close()
	fmt.Printf("Cached in %v\n", time.Since(start))

	// Snapshots skip parsing entirely
	fmt.Println("\n=== Snapshot ===")
	if err := labels.SaveSnapshot("germany.lblx", h.Index(), labels.SnapshotOptions{
		Compression: labels.CompressionLZ4,
	}); err != nil {
		log.Fatal(err)
	}
	start = time.Now()
	snap := labels.Init("germany.lblx")
	defer snap.Close()
	fmt.Printf("Loaded snapshot in %v (same index: %v)\n",
		time.Since(start), snap.Index().Fingerprint() == h.Index().Fingerprint())

	viewport := labels.NewBox(8.5, 48.5, 9.5, 49.0)
	for range 1000 {
		h.Count(viewport, 0.5)
	}
	stats := metrics.GetStats()
	fmt.Printf("\nParsed: %d labels, rejected: %d\n", stats.BuiltLabels, stats.RejectedLabels)
	fmt.Printf("Cache: %+v\n", cache.Stats())
}
