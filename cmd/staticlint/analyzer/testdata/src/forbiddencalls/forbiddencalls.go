package forbiddencalls

import (
	"log" // want "standard log package is forbidden, use zerolog"
	"os"
)

func SomePanicFunction() {
	panic("this is forbidden") // want "panic is forbidden outside main function"
}

func SomeLogFunction() {
	log.Println("reported at the import")
}

func SomeOsExitFunction() {
	os.Exit(1) // want "os.Exit is forbidden outside main function"
}

func main() {
	panic("main outside package main is not special") // want "panic is forbidden outside main function"
}

type shadow struct{}

func (shadow) panic(string) {}

func NotTheBuiltin() {
	var s shadow
	s.panic("method named panic is fine")
}
