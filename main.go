package main

import "github.com/navicore/searchtools/cmd/searchtools"

func main() {
	searchtools.Execute()
}
