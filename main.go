// main.go
//
// Command coge turns a plain-language instruction into a shell command by
// racing text-generation backends. The CLI lives in package cmd.
package main

import (
	"github.com/vovanmozg/coge/cmd"
)

func main() {
	cmd.Execute()
}
