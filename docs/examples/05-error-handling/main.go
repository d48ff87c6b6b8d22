package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/beetlebugorg/labelindex/pkg/labels"
)

func safeInit(path string) (*labels.Handle, error) {
	h := labels.Init(path, labels.WithGeographic(true))
	if h.IsGood() {
		idx := h.Index()
		if n := len(idx.Rejected()); n > 0 {
			log.Printf("Warning: %s: %d labels rejected", path, n)
			for _, verr := range idx.Rejected() {
				log.Printf("  %v", verr)
			}
		}
		return h, nil
	}

	err := h.Err()
	h.Close()

	var pe *labels.ParseError
	switch {
	case errors.Is(err, labels.ErrNotFound):
		return nil, fmt.Errorf("label file not found: %s", path)
	case errors.Is(err, labels.ErrEmptyIndex):
		return nil, fmt.Errorf("%s contains no usable labels", path)
	case errors.As(err, &pe):
		return nil, fmt.Errorf("%s is not a valid c.e file (line %d): %w", path, pe.Line, err)
	default:
		return nil, err
	}
}

func main() {
	h, err := safeInit("baden-wuerttemberg.ce")
	if err != nil {
		log.Printf("Error: %v", err)
		return
	}
	defer h.Close()
	fmt.Printf("Successfully loaded %d labels\n", h.Index().Len())

	// Try a missing file
	_, err = safeInit("nonexistent.ce")
	if err != nil {
		log.Printf("Expected error: %v", err)
	}

	// Handles report ErrReleased after Close
	h.Close()
	fmt.Printf("After close: good=%v err=%v\n", h.IsGood(), h.Err())
}
