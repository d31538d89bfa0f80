package main

import "OnlineStore/cmd"

func main() {
	cmd.Execute()
}
