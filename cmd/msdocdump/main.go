// Command msdocdump prints a .doc file's text, formatting runs, and
// metadata; useful for eyeballing what the decoders produce.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/TalentFormula/msdoc/pkg/msdoc"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: msdocdump <file.doc>")
		os.Exit(1)
	}

	doc, err := msdoc.Open(os.Args[1])
	if err != nil {
		log.Fatalf("failed to open document: %v", err)
	}
	defer doc.Close()

	text, err := doc.Text()
	if err != nil {
		log.Fatalf("failed to extract text: %v", err)
	}
	fmt.Println("=== Text ===")
	fmt.Println(text)

	runs, err := doc.GetFormattedText()
	if err == nil {
		fmt.Println("\n=== Formatted runs ===")
		for _, run := range runs {
			flags := ""
			if run.CharProps.Bold != nil && *run.CharProps.Bold {
				flags += "B"
			}
			if run.CharProps.Italic != nil && *run.CharProps.Italic {
				flags += "I"
			}
			fmt.Printf("[%d,%d) %-2s %q\n", run.StartCP, run.EndCP, flags, run.Text)
		}
	}

	sections, err := doc.GetSections()
	if err == nil && len(sections) > 0 {
		fmt.Printf("\n=== Sections (%d) ===\n", len(sections))
		for i, s := range sections {
			fmt.Printf("#%d [%d,%d) columns=%d landscape=%v\n",
				i, s.StartCP, s.EndCP, s.Properties.Columns, s.Properties.Landscape)
		}
	}

	_, equations, err := doc.GetEquations()
	if err == nil && len(equations) > 0 {
		fmt.Printf("\n=== Equations: %d ===\n", len(equations))
	}

	meta := doc.Metadata()
	fmt.Println("\n=== Metadata ===")
	fmt.Printf("Title:       %s\n", meta.Title)
	fmt.Printf("Subject:     %s\n", meta.Subject)
	fmt.Printf("Author:      %s\n", meta.Author)
	fmt.Printf("Keywords:    %s\n", meta.Keywords)
	fmt.Printf("Comments:    %s\n", meta.Comments)
	fmt.Printf("Application: %s\n", meta.ApplicationName)
	fmt.Printf("Company:     %s\n", meta.Company)
	fmt.Printf("Category:    %s\n", meta.Category)
	if !meta.Created.IsZero() {
		fmt.Printf("Created:     %s\n", meta.Created)
	}
}
