// Driver is a load test for a running image manager. Each worker generates image
// archives, moves them into the upload directory, and waits for the resulting
// version to be listed by the REST API. Workers are added one at a time until all
// are running, then removed one at a time. The ingest rate is printed periodically.
package main

import (
	"fmt"
	"os"
)

func main() {
	config, ran, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ran {
		os.Exit(0)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Parsed Configuration:")
	fmt.Printf("%-20s%s\n", "  UploadPath:", config.uploadPath)
	fmt.Printf("%-20s%s\n", "  ServerURL:", config.serverURL)
	fmt.Printf("%-20s%d\n", "  Workers:", config.workers)
	fmt.Printf("%-20s%d\n", "  IterationSeconds:", config.iterationSeconds)
	fmt.Printf("%-20s%d\n", "  TallySeconds:", config.tallySeconds)
	fmt.Printf("%-20s%d\n", "  WaitSeconds:", config.waitSeconds)
	fmt.Printf("%-20s%v\n", "  Delete:", config.delete)
	fmt.Printf("%-20s%v\n", "  Shuffle:", config.shuffle)

	if err := runTests(config); err != nil {
		fmt.Fprintf(os.Stderr, "Error running tests: %s\n", err)
		os.Exit(1)
	}
}
