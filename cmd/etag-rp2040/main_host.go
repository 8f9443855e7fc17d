//go:build !rp2040

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "etag-rp2040 targets the RP2040 board; build with tinygo -target=pico.")
	fmt.Fprintln(os.Stderr, "For host runs use cmd/feedersim.")
	os.Exit(2)
}
