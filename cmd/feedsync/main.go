// Command feedsync synchronizes a local feed reader's guides with the
// feed synchronisation service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/klauern/feedsync/internal/cli"
)

func main() {
	if err := cli.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
