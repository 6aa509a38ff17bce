package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) > 3 {
		panic("allowed in main")
	}

	defer func() {
		os.Exit(0)
	}()

	fmt.Println("ok")
	os.Exit(1)
}

func init() {
	os.Exit(2) // want "os.Exit is forbidden outside main function"
}

func helper() {
	panic("forbidden in helpers") // want "panic is forbidden outside main function"
}

type runner struct{}

func (runner) main() {
	os.Exit(3) // want "os.Exit is forbidden outside main function"
}
