package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Exit codes: 0 success, 2 precondition or IO failure, 3 verification found
// problems.
const (
	exitFailure      = 2
	exitVerification = 3
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		if errors.Is(err, errVerificationProblems) {
			os.Exit(exitVerification)
		}
		os.Exit(exitFailure)
	}
}
