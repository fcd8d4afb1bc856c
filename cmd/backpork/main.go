// Package main provides the backpork CLI for downgrading and re-signing
// wrapped executables.
package main

func main() {
	Execute()
}
