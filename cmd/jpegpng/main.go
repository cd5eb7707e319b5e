// Command jpegpng converts the JPEG images of a directory to PNG.
package main

import "os"

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(execute(newRootCommand(), os.Args[1:]))
}
