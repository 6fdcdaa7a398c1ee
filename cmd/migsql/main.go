// Command migsql tracks dependency-linked raw SQL items and writes the
// migrations that move a database from one version of them to the next.
package main

import (
	"context"
	"fmt"
	"os"
	"time"
)

func main() {
	a := &app{now: time.Now}

	if err := a.command().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "migsql:", err)
		os.Exit(1)
	}
}
