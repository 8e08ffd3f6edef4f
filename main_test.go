package main

import (
	"testing"
)

func TestMain(t *testing.T) {
	// Placeholder: main() is not invoked here and nothing is asserted.
	if testing.Short() {
		t.Skip("skipping main test in short mode")
	}
}
