package main

import (
	"context"
	"fmt"
	"os"

	"github.com/youthorg/admingate/internal/tools/sessionctl"
)

func main() {
	if err := sessionctl.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
