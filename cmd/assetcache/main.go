package main

import "github.com/rbmmusic/assetcache/cmd/assetcache/cmd"

func main() {
	cmd.Execute()
}
