// The main package for the keyword-crawler executable.
package main

import (
	"github.com/JakeFAU/keyword-crawler/cmd"
)

func main() {
	cmd.Execute()
}
