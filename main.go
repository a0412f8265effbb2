package main

import "github.com/rasnes/wikiviews/cmd"

func main() {
	cmd.Execute()
}
