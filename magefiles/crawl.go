//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Crawl builds the CLI and runs one pass over the enabled subscriptions.
func Crawl() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "crawl")
}

// Status builds the CLI and prints database counts and subscriptions.
func Status() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "status")
}
