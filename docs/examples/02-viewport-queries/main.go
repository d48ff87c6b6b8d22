package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/labelindex/pkg/labels"
)

func main() {
	// Labels are 0.02 x 0.01 degrees at size factor 1
	h := labels.Init("baden-wuerttemberg.ce",
		labels.WithTemplate(labels.Template{Width: 0.02, Height: 0.01}),
		labels.WithGeographic(true),
	)
	defer h.Close()
	if !h.IsGood() {
		log.Fatal(h.Err())
	}

	// Define viewport (Stuttgart area)
	viewport := labels.NewBox(9.0, 48.7, 9.3, 48.9)

	// Zooming out raises the threshold and fewer labels survive
	for _, minT := range []float64{0, 0.5, 1, 2} {
		fmt.Printf("threshold %.1f: %d labels\n", minT, h.Count(viewport, minT))
	}

	for l := range h.Query(viewport, 1) {
		fmt.Printf("  %s (prio %d)\n", l.Text, l.Priority)
	}

	// Boxes with MinX > MaxX cross the antimeridian in geographic indexes
	pacific := labels.Box{MinX: 170, MinY: -50, MaxX: -170, MaxY: -10}
	ids := h.QueryIDs(pacific, 0)
	fmt.Printf("Labels across the antimeridian: %d\n", ids.GetCardinality())
}
