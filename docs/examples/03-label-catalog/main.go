package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/beetlebugorg/labelindex/pkg/labels"
)

func main() {
	opts := labels.DefaultLoadOptions()
	opts.ErrorLog = os.Stderr
	opts.Progress = func(loaded, total int) {
		fmt.Printf("\rLoading: %d/%d", loaded, total)
	}

	catalog, err := labels.BuildCatalogFromDir(context.Background(), "data/", opts,
		labels.WithGeographic(true))
	if err != nil {
		log.Fatal(err)
	}
	defer catalog.Close()

	fmt.Printf("\nCatalog contains %d label files\n\n", catalog.Len())

	for _, d := range catalog.All() {
		b := d.Box()
		fmt.Printf("Dataset: %s\n", d.Name)
		fmt.Printf("  Path: %s\n", d.Path)
		fmt.Printf("  Labels: %d\n", d.Handle.Index().Len())
		fmt.Printf("  Bounds: [%.4f,%.4f] to [%.4f,%.4f]\n",
			b.MinX, b.MinY, b.MaxX, b.MaxY)
	}

	// Find the files covering a viewport and query them together
	viewport := labels.NewBox(5.9, 47.3, 15.0, 55.1)
	for _, d := range catalog.Datasets(viewport) {
		fmt.Printf("Covering: %s\n", d.Name)
	}
	fmt.Printf("Labels at threshold 1: %d\n", catalog.Count(viewport, 1))
}
