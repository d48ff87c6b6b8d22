package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/labelindex/pkg/labels"
)

func main() {
	// Build the index from a c.e file
	h := labels.Init("baden-wuerttemberg.ce")
	defer h.Close()

	if !h.IsGood() {
		log.Fatal(h.Err())
	}

	idx := h.Index()
	fmt.Printf("Labels: %d\n", idx.Len())
	fmt.Printf("Tree height: %d (%d nodes)\n", idx.Height(), idx.NodeCount())

	bounds := idx.Bounds()
	fmt.Printf("Bounds: [%.4f,%.4f] to [%.4f,%.4f]\n",
		bounds.MinX, bounds.MinY,
		bounds.MaxX, bounds.MaxY)
}
