package main

import "anon-match-backend/cmd"

func main() {
	cmd.Run()
}
