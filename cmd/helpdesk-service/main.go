package main

import (
	"fmt"
	"os"

	"github.com/psds-microservice/helpdesk-service/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "helpdesk-service:", err)
		os.Exit(1)
	}
}
