// Command liststreams prints the stream names inside an OLE2 compound
// file.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/TalentFormula/msdoc/ole2"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: liststreams <file>")
		os.Exit(1)
	}

	file, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("failed to open file: %v", err)
	}
	defer file.Close()

	reader, err := ole2.NewReader(file)
	if err != nil {
		log.Fatalf("failed to read compound file: %v", err)
	}

	for _, name := range reader.ListStreams() {
		fmt.Printf("%q\n", name)
	}
}
