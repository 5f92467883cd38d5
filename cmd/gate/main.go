package main

import (
	"context"
	"fmt"
	"os"

	"github.com/youthorg/admingate/internal/tools/gatectl"
)

func main() {
	if err := gatectl.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
