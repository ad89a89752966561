package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/lyftr-ai/inbox/internal/signature"
)

func main() {
	secret := flag.String("secret", "", "Webhook shared secret")
	bodyFile := flag.String("body", "", "File containing request body (or use stdin)")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Usage: sign -secret <webhook-secret> [-body <file>]")
		fmt.Fprintln(os.Stderr, "  Reads body from stdin if -body not specified")
		fmt.Fprintln(os.Stderr, "  Prints the X-Signature header value for the body")
		os.Exit(1)
	}

	var body []byte
	var err error
	if *bodyFile != "" {
		body, err = os.ReadFile(*bodyFile)
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("X-Signature: %s\n", signature.Compute(*secret, body))
}
